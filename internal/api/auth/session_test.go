package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dbgen "github.com/codr1/Sideout/internal/db/generated"
	"github.com/codr1/Sideout/internal/testutil"
)

func TestSessionExpiryIsEnforced(t *testing.T) {
	database := testutil.NewTestDB(t)
	user := testutil.SeedUser(t, database, "Coach")

	sessions := NewSessions(database.Queries, SessionConfig{TTL: time.Hour})
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	sessions.now = func() time.Time { return current }

	rec := httptest.NewRecorder()
	if err := sessions.Create(context.Background(), rec, user.ID); err != nil {
		t.Fatalf("create session: %v", err)
	}
	cookie := sessionCookie(t, rec)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	authUser, err := sessions.UserFromRequest(httptest.NewRecorder(), req)
	if err != nil || authUser == nil {
		t.Fatalf("expected live session, got %+v, %v", authUser, err)
	}

	current = current.Add(2 * time.Hour)
	authUser, err = sessions.UserFromRequest(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("resolve expired session: %v", err)
	}
	if authUser != nil {
		t.Fatal("expected expired session to be rejected")
	}
	if _, err := database.Queries.GetSession(context.Background(), sessions.hashToken(cookie.Value)); err == nil {
		t.Fatal("expected expired session row to be deleted")
	}
}

func TestSessionUnknownTokenClearsCookie(t *testing.T) {
	database := testutil.NewTestDB(t)
	sessions := NewSessions(database.Queries, SessionConfig{TTL: time.Hour})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "forged"})
	rec := httptest.NewRecorder()

	authUser, err := sessions.UserFromRequest(rec, req)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if authUser != nil {
		t.Fatal("expected no user for unknown token")
	}
	cleared := false
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == SessionCookieName && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected session cookie to be cleared")
	}
}

func TestHashTokenUsesSecret(t *testing.T) {
	plain := NewSessions(nil, SessionConfig{})
	keyed := NewSessions(nil, SessionConfig{Secret: "k1"})
	otherKey := NewSessions(nil, SessionConfig{Secret: "k2"})

	if plain.hashToken("abc") == keyed.hashToken("abc") {
		t.Fatal("expected keyed hash to differ from plain hash")
	}
	if keyed.hashToken("abc") == otherKey.hashToken("abc") {
		t.Fatal("expected different secrets to produce different hashes")
	}
	if keyed.hashToken("abc") != keyed.hashToken("abc") {
		t.Fatal("expected hashing to be deterministic")
	}
}

func TestPurgeExpiredSessions(t *testing.T) {
	database := testutil.NewTestDB(t)
	user := testutil.SeedUser(t, database, "Coach")
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, expiresAt := range []time.Time{now.Add(-time.Hour), now.Add(-time.Minute), now.Add(time.Hour)} {
		if err := database.Queries.CreateSession(ctx, dbgen.CreateSessionParams{
			TokenHash: string(rune('a' + i)),
			UserID:    user.ID,
			ExpiresAt: expiresAt,
		}); err != nil {
			t.Fatalf("insert session: %v", err)
		}
	}

	purged, err := PurgeExpiredSessions(ctx, database.Queries, now)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 2 {
		t.Fatalf("expected 2 sessions purged, got %d", purged)
	}
	if _, err := database.Queries.GetSession(ctx, "c"); err != nil {
		t.Fatalf("expected live session to remain: %v", err)
	}
}
