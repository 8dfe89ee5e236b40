package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/codr1/Sideout/internal/api/authz"
	"github.com/codr1/Sideout/internal/db"
	dbgen "github.com/codr1/Sideout/internal/db/generated"
)

var userSeq atomic.Int64

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// SeedUser inserts a user with a unique email. The password hash is not a
// valid bcrypt hash; use auth tests' own helpers when login matters.
func SeedUser(t *testing.T, database *db.DB, name string) dbgen.User {
	t.Helper()

	n := userSeq.Add(1)
	user, err := database.Queries.CreateUser(context.Background(), dbgen.CreateUserParams{
		Email:        fmt.Sprintf("user%d@example.com", n),
		Name:         name,
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedTeam inserts a team and makes coach its head coach.
func SeedTeam(t *testing.T, database *db.DB, coach dbgen.User, name string) dbgen.Team {
	t.Helper()

	ctx := context.Background()
	team, err := database.Queries.CreateTeam(ctx, dbgen.CreateTeamParams{
		Name:            name,
		Season:          "2024",
		Level:           "varsity",
		CreatedByUserID: coach.ID,
	})
	if err != nil {
		t.Fatalf("seed team: %v", err)
	}
	AddMember(t, database, team.ID, coach.ID, authz.RoleHeadCoach)
	return team
}

func AddMember(t *testing.T, database *db.DB, teamID, userID int64, role string) {
	t.Helper()

	if _, err := database.Queries.UpsertTeamMember(context.Background(), dbgen.UpsertTeamMemberParams{
		TeamID: teamID,
		UserID: userID,
		Role:   role,
	}); err != nil {
		t.Fatalf("seed team member: %v", err)
	}
}

// WithUser returns req carrying user as the authenticated caller.
func WithUser(req *http.Request, user dbgen.User) *http.Request {
	ctx := authz.ContextWithUser(req.Context(), &authz.AuthUser{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	})
	return req.WithContext(ctx)
}

// SeedPlayer adds a roster entry to teamID, optionally linked to an account.
func SeedPlayer(t *testing.T, database *db.DB, teamID int64, firstName string, linked *dbgen.User) dbgen.Player {
	t.Helper()

	params := dbgen.CreatePlayerParams{
		TeamID:    teamID,
		FirstName: firstName,
		LastName:  "Tester",
		Status:    "active",
	}
	if linked != nil {
		params.UserID = sql.NullInt64{Int64: linked.ID, Valid: true}
	}
	player, err := database.Queries.CreatePlayer(context.Background(), params)
	if err != nil {
		t.Fatalf("seed player: %v", err)
	}
	return player
}

// SeedEvent inserts a single practice on date for teamID.
func SeedEvent(t *testing.T, database *db.DB, teamID int64, createdBy dbgen.User, date string) dbgen.ScheduleEvent {
	t.Helper()

	event, err := database.Queries.CreateScheduleEvent(context.Background(), dbgen.CreateScheduleEventParams{
		TeamID:          teamID,
		EventType:       "practice",
		Title:           "Practice",
		EventDate:       date,
		CreatedByUserID: createdBy.ID,
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return event
}
