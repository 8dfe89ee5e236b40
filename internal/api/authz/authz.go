package authz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

const (
	RoleHeadCoach      = "head_coach"
	RoleAssistantCoach = "assistant_coach"
	RolePlayer         = "player"
	RoleParent         = "parent"
)

type AuthUser struct {
	ID    int64
	Email string
	Name  string
}

// RoleLookup resolves a user's role on a team. It returns sql.ErrNoRows when
// the user is not a member.
type RoleLookup interface {
	TeamMemberRole(ctx context.Context, teamID, userID int64) (string, error)
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value has a different type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}

	return user
}

// RoleAllowed reports whether role is a known team role.
func RoleAllowed(role string) bool {
	switch role {
	case RoleHeadCoach, RoleAssistantCoach, RolePlayer, RoleParent:
		return true
	default:
		return false
	}
}

// IsCoachingRole reports whether role may mutate team schedule and roster data.
func IsCoachingRole(role string) bool {
	return role == RoleHeadCoach || role == RoleAssistantCoach
}

// RequireUser returns the authenticated user or ErrUnauthenticated.
func RequireUser(ctx context.Context) (*AuthUser, error) {
	user := UserFromContext(ctx)
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// RequireTeamRole checks that the current user belongs to teamID with one of
// roles (any role when none are given) and returns that role.
func RequireTeamRole(ctx context.Context, lookup RoleLookup, teamID int64, roles ...string) (string, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return "", err
	}
	if lookup == nil {
		return "", errors.New("role lookup not configured")
	}

	role, err := lookup.TeamMemberRole(ctx, teamID, user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrForbidden
		}
		return "", fmt.Errorf("lookup team role: %w", err)
	}

	if len(roles) == 0 {
		return role, nil
	}
	for _, allowed := range roles {
		if strings.EqualFold(role, allowed) {
			return role, nil
		}
	}
	return role, ErrForbidden
}

// RequireCoach checks that the current user holds a coaching role on teamID.
func RequireCoach(ctx context.Context, lookup RoleLookup, teamID int64) (string, error) {
	return RequireTeamRole(ctx, lookup, teamID, RoleHeadCoach, RoleAssistantCoach)
}
