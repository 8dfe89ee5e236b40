package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	dbgen "github.com/codr1/Sideout/internal/db/generated"
	"github.com/codr1/Sideout/internal/testutil"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	svc, err := New()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	t.Cleanup(func() {
		_ = svc.Stop()
	})
	return svc
}

func TestAddJobValidation(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.AddJob(" ", "* * * * *", func() {}); !errors.Is(err, ErrEmptyJobName) {
		t.Fatalf("expected ErrEmptyJobName, got %v", err)
	}
	if _, err := svc.AddJob("job", "", func() {}); !errors.Is(err, ErrEmptyCronExpr) {
		t.Fatalf("expected ErrEmptyCronExpr, got %v", err)
	}
	if _, err := svc.AddJob("job", "not a cron", func() {}); err == nil {
		t.Fatal("expected invalid cron expression to be rejected")
	}

	var nilService *Service
	if _, err := nilService.AddJob("job", "* * * * *", func() {}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestRegisterSessionCleanupJob(t *testing.T) {
	svc := newTestService(t)
	database := testutil.NewTestDB(t)

	if err := RegisterSessionCleanupJob(svc, database, "*/30 * * * *"); err != nil {
		t.Fatalf("register job: %v", err)
	}
	jobs := svc.Jobs()
	if len(jobs) != 1 || jobs[0].Name() != sessionCleanupJobName {
		t.Fatalf("expected %s job, got %d jobs", sessionCleanupJobName, len(jobs))
	}

	if err := RegisterSessionCleanupJob(svc, nil, "*/30 * * * *"); err == nil {
		t.Fatal("expected error without database")
	}
}

func TestRunSessionCleanup(t *testing.T) {
	database := testutil.NewTestDB(t)
	user := testutil.SeedUser(t, database, "Coach")
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	for token, expiresAt := range map[string]time.Time{
		"stale": now.Add(-24 * time.Hour),
		"live":  now.Add(24 * time.Hour),
	} {
		if err := database.Queries.CreateSession(ctx, dbgen.CreateSessionParams{
			TokenHash: token,
			UserID:    user.ID,
			ExpiresAt: expiresAt,
		}); err != nil {
			t.Fatalf("insert session: %v", err)
		}
	}

	if purged := runSessionCleanup(ctx, database, now); purged != 1 {
		t.Fatalf("expected 1 purged session, got %d", purged)
	}
	if _, err := database.Queries.GetSession(ctx, "live"); err != nil {
		t.Fatalf("expected live session to remain: %v", err)
	}
	if purged := runSessionCleanup(ctx, database, now); purged != 0 {
		t.Fatalf("expected second run to purge nothing, got %d", purged)
	}
}
