package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/codr1/Sideout/internal/api/authz"
	dbgen "github.com/codr1/Sideout/internal/db/generated"
)

const (
	SessionCookieName = "sideout_session"
	sessionTokenBytes = 32
)

// Sessions issues and resolves login sessions. Only a keyed hash of each
// token is stored; the raw token lives in the client cookie.
type Sessions struct {
	queries *dbgen.Queries
	ttl     time.Duration
	secure  bool
	secret  []byte
	now     func() time.Time
}

type SessionConfig struct {
	TTL           time.Duration
	SecureCookies bool
	// Secret keys the token hash. Empty falls back to plain SHA-256.
	Secret string
}

func NewSessions(queries *dbgen.Queries, cfg SessionConfig) *Sessions {
	return &Sessions{
		queries: queries,
		ttl:     cfg.TTL,
		secure:  cfg.SecureCookies,
		secret:  []byte(cfg.Secret),
		now:     time.Now,
	}
}

// Create stores a new session for userID and sets the session cookie.
func (s *Sessions) Create(ctx context.Context, w http.ResponseWriter, userID int64) error {
	token, err := newSessionToken()
	if err != nil {
		return err
	}

	expiresAt := s.now().UTC().Add(s.ttl).Truncate(time.Second)
	if err := s.queries.CreateSession(ctx, dbgen.CreateSessionParams{
		TokenHash: s.hashToken(token),
		UserID:    userID,
		ExpiresAt: expiresAt,
	}); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt,
		MaxAge:   int(s.ttl.Seconds()),
	})
	return nil
}

// Clear deletes the request's session, if any, and expires the cookie.
func (s *Sessions) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	defer s.clearCookie(w)

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil
	}
	return s.queries.DeleteSession(ctx, s.hashToken(cookie.Value))
}

// ClearAll deletes every session belonging to userID and expires the cookie.
func (s *Sessions) ClearAll(ctx context.Context, w http.ResponseWriter, userID int64) error {
	s.clearCookie(w)
	return s.queries.DeleteSessionsByUserID(ctx, userID)
}

// UserFromRequest resolves the session cookie to a user. A missing, unknown,
// or expired session yields nil without error.
func (s *Sessions) UserFromRequest(w http.ResponseWriter, r *http.Request) (*authz.AuthUser, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}

	ctx := r.Context()
	tokenHash := s.hashToken(cookie.Value)
	session, err := s.queries.GetSession(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.clearCookie(w)
			return nil, nil
		}
		return nil, err
	}

	if !session.ExpiresAt.After(s.now()) {
		s.clearCookie(w)
		return nil, s.queries.DeleteSession(ctx, tokenHash)
	}

	user, err := s.queries.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.clearCookie(w)
			return nil, s.queries.DeleteSession(ctx, tokenHash)
		}
		return nil, err
	}

	return &authz.AuthUser{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	}, nil
}

func (s *Sessions) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

func (s *Sessions) hashToken(token string) string {
	if len(s.secret) == 0 {
		sum := sha256.Sum256([]byte(token))
		return hex.EncodeToString(sum[:])
	}
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// PurgeExpiredSessions deletes sessions that expired at or before now.
func PurgeExpiredSessions(ctx context.Context, queries *dbgen.Queries, now time.Time) (int64, error) {
	return queries.DeleteExpiredSessions(ctx, now.UTC().Truncate(time.Second))
}

func newSessionToken() (string, error) {
	token := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(token); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(token), nil
}
