package apiutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Sideout/internal/api/authz"
)

const maxJSONBodyBytes = 1 << 20

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteHandlerError writes err as an HTTP error. HandlerErrors keep their
// status and message; anything else becomes a 500 with fallbackMessage.
func WriteHandlerError(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string) {
	logger := log.Ctx(r.Context())
	var herr HandlerError
	if errors.As(err, &herr) {
		if herr.Status >= http.StatusInternalServerError {
			logger.Error().Err(herr.Err).Msg(herr.Message)
		}
		http.Error(w, herr.Message, herr.Status)
		return
	}
	logger.Error().Err(err).Msg(fallbackMessage)
	http.Error(w, fallbackMessage, http.StatusInternalServerError)
}

// RequireUser writes 401 and returns nil when the request is unauthenticated.
func RequireUser(w http.ResponseWriter, r *http.Request) *authz.AuthUser {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil
	}
	return user
}

// RequireCoach writes the matching error response and returns false unless
// the current user holds a coaching role on teamID.
func RequireCoach(w http.ResponseWriter, r *http.Request, lookup authz.RoleLookup, teamID int64) bool {
	_, err := authz.RequireCoach(r.Context(), lookup, teamID)
	return handleTeamAccess(w, r, teamID, err, "coach")
}

// RequireTeamMember writes the matching error response and returns the
// caller's role, or "" and false when they are not on teamID.
func RequireTeamMember(w http.ResponseWriter, r *http.Request, lookup authz.RoleLookup, teamID int64) (string, bool) {
	role, err := authz.RequireTeamRole(r.Context(), lookup, teamID)
	if !handleTeamAccess(w, r, teamID, err, "member") {
		return "", false
	}
	return role, true
}

func handleTeamAccess(w http.ResponseWriter, r *http.Request, teamID int64, err error, access string) bool {
	if err == nil {
		return true
	}

	logger := log.Ctx(r.Context())
	user := authz.UserFromContext(r.Context())
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		logEvent := logger.Warn().Int64("team_id", teamID).Str("access", access)
		logEvent.Msg("Team access denied: unauthenticated")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, authz.ErrForbidden):
		logEvent := logger.Warn().Int64("team_id", teamID).Str("access", access)
		if user != nil {
			logEvent = logEvent.Int64("user_id", user.ID)
		}
		logEvent.Msg("Team access denied: forbidden")
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		logEvent := logger.Error().Int64("team_id", teamID).Str("access", access).Err(err)
		if user != nil {
			logEvent = logEvent.Int64("user_id", user.ID)
		}
		logEvent.Msg("Team access denied: error")
		http.Error(w, "Failed to authorize request", http.StatusInternalServerError)
	}
	return false
}

// RenderHTMLComponent renders component to a buffer first so a render
// failure can still produce a clean 500.
func RenderHTMLComponent(ctx context.Context, w http.ResponseWriter, component templ.Component, headers map[string]string, logMessage, errorMessage string) bool {
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg(logMessage)
		http.Error(w, errorMessage, http.StatusInternalServerError)
		return false
	}

	for key, value := range headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg(logMessage)
		return false
	}
	return true
}
