package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/codr1/Sideout/internal/api/apiutil"
	dbgen "github.com/codr1/Sideout/internal/db/generated"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes = 72
)

// unknownAccountHash is compared against when the email has no account so
// the response time does not reveal which accounts exist.
var unknownAccountHash, _ = hashPassword("sideout-timing-equalizer")

// validatePassword applies the registration policy. Passwords bcrypt would
// truncate are rejected instead of silently shortened.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apiutil.FieldError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}
	if len(password) > maxPasswordBytes {
		return apiutil.FieldError{Field: "password", Reason: fmt.Sprintf("must be at most %d bytes", maxPasswordBytes)}
	}
	return nil
}

// hashPassword returns the value stored in users.password_hash.
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// passwordMatches reports whether password opens user's account. A nil user
// still pays for one bcrypt comparison and never matches.
func passwordMatches(user *dbgen.User, password string) bool {
	hash := unknownAccountHash
	if user != nil {
		hash = user.PasswordHash
	}
	matched := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	return matched && user != nil
}
