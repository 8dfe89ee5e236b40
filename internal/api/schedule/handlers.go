// internal/api/schedule/handlers.go
package schedule

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Sideout/internal/api/apiutil"
	"github.com/codr1/Sideout/internal/api/authz"
	appdb "github.com/codr1/Sideout/internal/db"
	dbgen "github.com/codr1/Sideout/internal/db/generated"
	"github.com/codr1/Sideout/internal/recurrence"
)

const (
	scheduleQueryTimeout  = 5 * time.Second
	scheduleCreateTimeout = 15 * time.Second

	listFromDefault = "0001-01-01"
	listToDefault   = "9999-12-31"
)

// Options carries the schedule settings from config.
type Options struct {
	MaxRecurrenceDays    int
	BiweeklyUsesInterval bool
	CalendarName         string
}

// Handler serves the schedule event routes for one database.
type Handler struct {
	db    *appdb.DB
	roles authz.RoleLookup
	opts  Options
}

func NewHandler(database *appdb.DB, opts Options) *Handler {
	return &Handler{
		db:    database,
		roles: apiutil.TeamRoles{Queries: database.Queries},
		opts:  opts,
	}
}

// POST /api/v1/teams/{id}/events
func (h *Handler) HandleEventCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	teamID, err := apiutil.PathID(r, "id", "team")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	user := authz.UserFromContext(r.Context())
	if !apiutil.RequireCoach(w, r, h.roles, teamID) {
		return
	}

	var req eventRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	input, err := parseEventRequest(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if input.Recurrence != nil {
		if err := recurrence.CheckHorizon(input.EventDate, input.Recurrence.EndDate, h.opts.MaxRecurrenceDays); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), scheduleCreateTimeout)
	defer cancel()

	created, err := h.createEventSeries(ctx, teamID, user.ID, input)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create event")
		return
	}

	logger.Info().
		Int64("team_id", teamID).
		Int64("event_id", created.Parent.ID).
		Int("occurrences", len(created.Occurrences)).
		Msg("Schedule event created")

	if err := apiutil.WriteJSON(w, http.StatusCreated, map[string]any{
		"event":              toEventResponse(created.Parent),
		"occurrences":        toEventResponses(created.Occurrences),
		"occurrencesCreated": len(created.Occurrences),
	}); err != nil {
		logger.Error().Err(err).Int64("event_id", created.Parent.ID).Msg("Failed to write event response")
	}
}

// GET /api/v1/teams/{id}/events
func (h *Handler) HandleEventsList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	teamID, err := apiutil.PathID(r, "id", "team")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, ok := apiutil.RequireTeamMember(w, r, h.roles, teamID); !ok {
		return
	}

	from, to, err := listWindow(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), scheduleQueryTimeout)
	defer cancel()

	events, err := h.db.Queries.ListScheduleEventsByTeam(ctx, dbgen.ListScheduleEventsByTeamParams{
		TeamID:   teamID,
		FromDate: from,
		ToDate:   to,
	})
	if err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to list schedule events")
		http.Error(w, "Failed to list events", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"events": toEventResponses(events),
	}); err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to write events response")
	}
}

// GET /api/v1/events/{id}
func (h *Handler) HandleEventDetail(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}
	if _, ok := apiutil.RequireTeamMember(w, r, h.roles, event.TeamID); !ok {
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"event": toEventResponse(event),
	}); err != nil {
		logger.Error().Err(err).Int64("event_id", event.ID).Msg("Failed to write event response")
	}
}

// PATCH /api/v1/events/{id}
// Only the fields present in the body change; null clears an optional field.
// Editing one occurrence never touches its siblings or the parent.
func (h *Handler) HandleEventUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}
	if !apiutil.RequireCoach(w, r, h.roles, event.TeamID) {
		return
	}

	var body map[string]json.RawMessage
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	patch, err := buildEventPatch(event, body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), scheduleQueryTimeout)
	defer cancel()

	var updated dbgen.ScheduleEvent
	err = h.db.RunInTx(ctx, func(txdb *appdb.DB, tx *sql.Tx) error {
		rows, err := patch.Exec(ctx, tx, "id", event.ID)
		if err != nil {
			if appdb.IsCheckViolation(err) {
				return apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Event fields are out of range", Err: err}
			}
			return err
		}
		if rows == 0 {
			return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Event not found", Err: sql.ErrNoRows}
		}
		updated, err = txdb.Queries.GetScheduleEvent(ctx, event.ID)
		return err
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update event")
		return
	}

	logger.Info().Int64("event_id", event.ID).Int("fields", patch.Len()).Msg("Schedule event updated")

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"event": toEventResponse(updated),
	}); err != nil {
		logger.Error().Err(err).Int64("event_id", event.ID).Msg("Failed to write event response")
	}
}

// DELETE /api/v1/events/{id}[?series=true]
// Deleting a parent removes its occurrences through ON DELETE CASCADE. With
// series=true an occurrence deletes its whole series.
func (h *Handler) HandleEventDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}
	if !apiutil.RequireCoach(w, r, h.roles, event.TeamID) {
		return
	}

	targetID := event.ID
	if r.URL.Query().Get("series") == "true" && event.ParentEventID.Valid {
		targetID = event.ParentEventID.Int64
	}

	ctx, cancel := context.WithTimeout(r.Context(), scheduleQueryTimeout)
	defer cancel()

	rows, err := h.db.Queries.DeleteScheduleEvent(ctx, targetID)
	if err != nil {
		logger.Error().Err(err).Int64("event_id", targetID).Msg("Failed to delete schedule event")
		http.Error(w, "Failed to delete event", http.StatusInternalServerError)
		return
	}
	if rows == 0 {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}

	logger.Info().Int64("event_id", targetID).Int64("team_id", event.TeamID).Msg("Schedule event deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) loadEvent(w http.ResponseWriter, r *http.Request) (dbgen.ScheduleEvent, bool) {
	eventID, err := apiutil.PathID(r, "id", "event")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return dbgen.ScheduleEvent{}, false
	}
	if apiutil.RequireUser(w, r) == nil {
		return dbgen.ScheduleEvent{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), scheduleQueryTimeout)
	defer cancel()

	event, err := h.db.Queries.GetScheduleEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Event not found", http.StatusNotFound)
			return dbgen.ScheduleEvent{}, false
		}
		log.Ctx(r.Context()).Error().Err(err).Int64("event_id", eventID).Msg("Failed to load schedule event")
		http.Error(w, "Failed to load event", http.StatusInternalServerError)
		return dbgen.ScheduleEvent{}, false
	}
	return event, true
}

func listWindow(r *http.Request) (string, string, error) {
	from := listFromDefault
	to := listToDefault
	query := r.URL.Query()
	if raw := query.Get("from"); raw != "" {
		parsed, err := recurrence.ParseDate("from", raw)
		if err != nil {
			return "", "", err
		}
		from = recurrence.FormatDate(parsed)
	}
	if raw := query.Get("to"); raw != "" {
		parsed, err := recurrence.ParseDate("to", raw)
		if err != nil {
			return "", "", err
		}
		to = recurrence.FormatDate(parsed)
	}
	if to < from {
		return "", "", apiutil.FieldError{Field: "to", Reason: "must be on or after from"}
	}
	return from, to, nil
}
