package auth

import (
	"strings"
	"testing"

	dbgen "github.com/codr1/Sideout/internal/db/generated"
)

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		password string
		wantErr  bool
	}{
		{password: "short", wantErr: true},
		{password: "sp1ke-it"},
		{password: strings.Repeat("a", maxPasswordBytes)},
		{password: strings.Repeat("a", maxPasswordBytes+1), wantErr: true},
		// Multi-byte runes count by bytes, as bcrypt does.
		{password: strings.Repeat("é", 37), wantErr: true},
	}

	for _, tc := range cases {
		err := validatePassword(tc.password)
		if (err != nil) != tc.wantErr {
			t.Errorf("validatePassword(%d bytes): expected error %v, got %v", len(tc.password), tc.wantErr, err)
		}
	}
}

func TestPasswordMatches(t *testing.T) {
	hash, err := hashPassword("sp1ke-it-hard")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if hash == "" || hash == "sp1ke-it-hard" {
		t.Fatalf("expected an opaque hash, got %q", hash)
	}

	coach := &dbgen.User{ID: 1, PasswordHash: hash}
	if !passwordMatches(coach, "sp1ke-it-hard") {
		t.Fatal("expected password to match")
	}
	if passwordMatches(coach, "wrong") {
		t.Fatal("expected password mismatch to fail")
	}
	if passwordMatches(&dbgen.User{ID: 2, PasswordHash: "not-a-valid-hash"}, "sp1ke-it-hard") {
		t.Fatal("expected invalid stored hash to fail")
	}
}

func TestPasswordMatchesUnknownAccount(t *testing.T) {
	if unknownAccountHash == "" {
		t.Fatal("expected timing hash to be initialized")
	}
	if passwordMatches(nil, "sideout-timing-equalizer") {
		t.Fatal("expected unknown account never to match, even with the timing password")
	}
}
