package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/codr1/Sideout/internal/api/apiutil"
	"github.com/codr1/Sideout/internal/api/authz"
	appdb "github.com/codr1/Sideout/internal/db"
	dbgen "github.com/codr1/Sideout/internal/db/generated"
	"github.com/codr1/Sideout/internal/ratelimit"
)

const (
	authQueryTimeout = 5 * time.Second
	maxNameLength    = 100
	maxEmailLength   = 254
)

type Handler struct {
	db         *appdb.DB
	sessions   *Sessions
	limiter    *ratelimit.Limiter
	burst      *rate.Limiter
	trustProxy bool
}

type HandlerConfig struct {
	Sessions   *Sessions
	Limiter    *ratelimit.Limiter
	TrustProxy bool
}

func NewHandler(database *appdb.DB, cfg HandlerConfig) *Handler {
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.New(nil)
	}
	return &Handler{
		db:         database,
		sessions:   cfg.Sessions,
		limiter:    limiter,
		burst:      rate.NewLimiter(rate.Limit(100), 10), // server-wide cap for auth endpoints
		trustProxy: cfg.TrustProxy,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type teamMembershipResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apiutil.FieldError{Field: "email", Reason: "is required"}
	}
	if len(email) > maxEmailLength {
		return "", apiutil.FieldError{Field: "email", Reason: "is too long"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apiutil.FieldError{Field: "email", Reason: "must be a valid email address"}
	}
	return email, nil
}

// POST /api/v1/auth/register
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if !h.burst.Allow() {
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	var req registerRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name, err := apiutil.RequiredText("name", req.Name, maxNameLength)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validatePassword(req.Password); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to hash password")
		http.Error(w, "Failed to register", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	user, err := h.db.Queries.CreateUser(ctx, dbgen.CreateUserParams{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	})
	if err != nil {
		if appdb.IsUniqueViolation(err) {
			http.Error(w, "An account with this email already exists", http.StatusConflict)
			return
		}
		logger.Error().Err(err).Msg("Failed to create user")
		http.Error(w, "Failed to register", http.StatusInternalServerError)
		return
	}

	if err := h.sessions.Create(ctx, w, user.ID); err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to create session")
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}

	logger.Info().Int64("user_id", user.ID).Msg("User registered")
	if err := apiutil.WriteJSON(w, http.StatusCreated, map[string]any{
		"user": userResponse{ID: user.ID, Email: user.Email, Name: user.Name},
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to write register response")
	}
}

// POST /api/v1/auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if !h.burst.Allow() {
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	var req loginRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	ip := ratelimit.GetClientIP(r, h.trustProxy)
	if result := h.limiter.CheckLogin(email, ip); !result.Allowed {
		ratelimit.LogRateLimitExceeded(r.Context(), email, ip, result.Reason)
		w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
		http.Error(w, "Too many login attempts. Try again later.", http.StatusTooManyRequests)
		return
	}
	h.limiter.RecordAttempt(ip)

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	user, err := h.db.Queries.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		logger.Error().Err(err).Msg("Failed to look up user for login")
		http.Error(w, "Failed to log in", http.StatusInternalServerError)
		return
	}

	var account *dbgen.User
	if err == nil {
		account = &user
	}
	if !passwordMatches(account, req.Password) {
		h.rejectLogin(w, r, email, ip)
		return
	}

	h.limiter.Reset(email)
	if err := h.sessions.Create(ctx, w, user.ID); err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to create session")
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}

	logger.Info().Int64("user_id", user.ID).Msg("User logged in")
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"user": userResponse{ID: user.ID, Email: user.Email, Name: user.Name},
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to write login response")
	}
}

func (h *Handler) rejectLogin(w http.ResponseWriter, r *http.Request, email, ip string) {
	if lockedOut := h.limiter.RecordFailure(email); lockedOut {
		log.Ctx(r.Context()).Warn().
			Str("email", ratelimit.SanitizeEmail(email)).
			Str("ip", ip).
			Msg("Login locked out after repeated failures")
	}
	http.Error(w, "Invalid email or password", http.StatusUnauthorized)
}

// POST /api/v1/auth/logout[?all=true]
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	var err error
	user := authz.UserFromContext(r.Context())
	if user != nil && r.URL.Query().Get("all") == "true" {
		err = h.sessions.ClearAll(ctx, w, user.ID)
	} else {
		err = h.sessions.Clear(ctx, w, r)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to delete session")
		http.Error(w, "Failed to log out", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/auth/me
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	rows, err := h.db.Queries.ListTeamsForUser(ctx, user.ID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to list teams for user")
		http.Error(w, "Failed to load profile", http.StatusInternalServerError)
		return
	}

	teams := make([]teamMembershipResponse, 0, len(rows))
	for _, row := range rows {
		teams = append(teams, teamMembershipResponse{ID: row.ID, Name: row.Name, Role: row.Role})
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"user":  userResponse{ID: user.ID, Email: user.Email, Name: user.Name},
		"teams": teams,
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to write profile response")
	}
}
