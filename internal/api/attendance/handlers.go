// internal/api/attendance/handlers.go
package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Sideout/internal/api/apiutil"
	"github.com/codr1/Sideout/internal/api/authz"
	appdb "github.com/codr1/Sideout/internal/db"
	dbgen "github.com/codr1/Sideout/internal/db/generated"
)

const (
	attendanceQueryTimeout = 5 * time.Second
	maxNoteLength          = 200
	maxRecordsPerRequest   = 100
)

var attendanceStatuses = map[string]struct{}{
	"present": {},
	"absent":  {},
	"late":    {},
	"excused": {},
}

var availabilityStatuses = map[string]struct{}{
	"available":   {},
	"unavailable": {},
	"maybe":       {},
}

type Handler struct {
	db    *appdb.DB
	roles authz.RoleLookup
}

func NewHandler(database *appdb.DB) *Handler {
	return &Handler{
		db:    database,
		roles: apiutil.TeamRoles{Queries: database.Queries},
	}
}

type attendanceRecord struct {
	PlayerID int64  `json:"playerId"`
	Status   string `json:"status"`
}

type attendanceResponse struct {
	PlayerID     int64     `json:"playerId"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	JerseyNumber *int64    `json:"jerseyNumber"`
	Status       string    `json:"status"`
	RecordedBy   int64     `json:"recordedBy"`
	RecordedAt   time.Time `json:"recordedAt"`
}

type summaryResponse struct {
	PlayerID  int64    `json:"playerId"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Present   int64    `json:"present"`
	Late      int64    `json:"late"`
	Absent    int64    `json:"absent"`
	Excused   int64    `json:"excused"`
	Rate      *float64 `json:"rate"`
}

type availabilityRequest struct {
	PlayerID int64   `json:"playerId"`
	Status   string  `json:"status"`
	Note     *string `json:"note"`
}

type availabilityResponse struct {
	PlayerID  int64     `json:"playerId"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Status    string    `json:"status"`
	Note      *string   `json:"note"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// attendanceRate is the share of counted events a player attended. Late
// counts as attended and excused absences are left out of the denominator.
func attendanceRate(present, late, absent int64) *float64 {
	counted := present + late + absent
	if counted == 0 {
		return nil
	}
	rate := float64(present+late) / float64(counted)
	return &rate
}

func parseAttendanceRecords(records []attendanceRecord) ([]attendanceRecord, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("at least one attendance record is required")
	}
	if len(records) > maxRecordsPerRequest {
		return nil, fmt.Errorf("at most %d attendance records per request", maxRecordsPerRequest)
	}

	seen := make(map[int64]struct{}, len(records))
	parsed := make([]attendanceRecord, 0, len(records))
	for i, record := range records {
		if record.PlayerID <= 0 {
			return nil, fmt.Errorf("record %d: playerId must be greater than 0", i)
		}
		if _, dup := seen[record.PlayerID]; dup {
			return nil, fmt.Errorf("record %d: duplicate playerId %d", i, record.PlayerID)
		}
		seen[record.PlayerID] = struct{}{}

		status := strings.ToLower(strings.TrimSpace(record.Status))
		if _, ok := attendanceStatuses[status]; !ok {
			return nil, fmt.Errorf("record %d: status must be present, absent, late, or excused", i)
		}
		parsed = append(parsed, attendanceRecord{PlayerID: record.PlayerID, Status: status})
	}
	return parsed, nil
}

// PUT /api/v1/events/{id}/attendance
func (h *Handler) HandleAttendanceRecord(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	eventID, err := apiutil.PathID(r, "id", "event")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), attendanceQueryTimeout)
	defer cancel()

	event, ok := h.loadEvent(ctx, w, r, eventID)
	if !ok {
		return
	}
	if !apiutil.RequireCoach(w, r, h.roles, event.TeamID) {
		return
	}

	var records []attendanceRecord
	if err := apiutil.DecodeJSON(r, &records); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	records, err = parseAttendanceRecords(records)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = h.db.RunInTx(ctx, func(txdb *appdb.DB, tx *sql.Tx) error {
		for _, record := range records {
			if err := requireRosterPlayer(ctx, txdb.Queries, event.TeamID, record.PlayerID); err != nil {
				return err
			}
			if err := txdb.Queries.UpsertAttendance(ctx, dbgen.UpsertAttendanceParams{
				EventID:          eventID,
				PlayerID:         record.PlayerID,
				Status:           record.Status,
				RecordedByUserID: user.ID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to record attendance")
		return
	}

	logger.Info().Int64("event_id", eventID).Int("records", len(records)).Msg("Attendance recorded")
	h.writeAttendance(ctx, w, r, eventID)
}

// GET /api/v1/events/{id}/attendance
func (h *Handler) HandleAttendanceList(w http.ResponseWriter, r *http.Request) {
	eventID, err := apiutil.PathID(r, "id", "event")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if apiutil.RequireUser(w, r) == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), attendanceQueryTimeout)
	defer cancel()

	event, ok := h.loadEvent(ctx, w, r, eventID)
	if !ok {
		return
	}
	if _, ok := apiutil.RequireTeamMember(w, r, h.roles, event.TeamID); !ok {
		return
	}

	h.writeAttendance(ctx, w, r, eventID)
}

func (h *Handler) writeAttendance(ctx context.Context, w http.ResponseWriter, r *http.Request, eventID int64) {
	logger := log.Ctx(r.Context())

	rows, err := h.db.Queries.ListAttendanceByEvent(ctx, eventID)
	if err != nil {
		logger.Error().Err(err).Int64("event_id", eventID).Msg("Failed to list attendance")
		http.Error(w, "Failed to list attendance", http.StatusInternalServerError)
		return
	}

	records := make([]attendanceResponse, 0, len(rows))
	for _, row := range rows {
		records = append(records, attendanceResponse{
			PlayerID:     row.PlayerID,
			FirstName:    row.FirstName,
			LastName:     row.LastName,
			JerseyNumber: apiutil.FromNullInt64(row.JerseyNumber),
			Status:       row.Status,
			RecordedBy:   row.RecordedByUserID,
			RecordedAt:   row.RecordedAt,
		})
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"attendance": records}); err != nil {
		logger.Error().Err(err).Int64("event_id", eventID).Msg("Failed to write attendance response")
	}
}

// GET /api/v1/teams/{id}/attendance/summary
func (h *Handler) HandleAttendanceSummary(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	teamID, err := apiutil.PathID(r, "id", "team")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, ok := apiutil.RequireTeamMember(w, r, h.roles, teamID); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), attendanceQueryTimeout)
	defer cancel()

	rows, err := h.db.Queries.SummarizeTeamAttendance(ctx, teamID)
	if err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to summarize attendance")
		http.Error(w, "Failed to summarize attendance", http.StatusInternalServerError)
		return
	}

	summary := make([]summaryResponse, 0, len(rows))
	for _, row := range rows {
		summary = append(summary, summaryResponse{
			PlayerID:  row.PlayerID,
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Present:   row.Present,
			Late:      row.Late,
			Absent:    row.Absent,
			Excused:   row.Excused,
			Rate:      attendanceRate(row.Present, row.Late, row.Absent),
		})
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"players": summary}); err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to write attendance summary")
	}
}

// PUT /api/v1/events/{id}/availability
// Coaches may answer for anyone; otherwise the caller must be the account
// linked to the player.
func (h *Handler) HandleAvailabilitySet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	eventID, err := apiutil.PathID(r, "id", "event")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	var req availabilityRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.PlayerID <= 0 {
		http.Error(w, "playerId must be greater than 0", http.StatusBadRequest)
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if _, ok := availabilityStatuses[status]; !ok {
		http.Error(w, "status must be available, unavailable, or maybe", http.StatusBadRequest)
		return
	}
	note, err := apiutil.OptionalText("note", req.Note, maxNoteLength)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), attendanceQueryTimeout)
	defer cancel()

	event, ok := h.loadEvent(ctx, w, r, eventID)
	if !ok {
		return
	}
	role, ok := apiutil.RequireTeamMember(w, r, h.roles, event.TeamID)
	if !ok {
		return
	}

	player, err := h.db.Queries.GetPlayer(ctx, req.PlayerID)
	if err != nil || player.TeamID != event.TeamID {
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			logger.Error().Err(err).Int64("player_id", req.PlayerID).Msg("Failed to load player")
			http.Error(w, "Failed to set availability", http.StatusInternalServerError)
			return
		}
		http.Error(w, "Player is not on this team", http.StatusBadRequest)
		return
	}
	linked := player.UserID.Valid && player.UserID.Int64 == user.ID
	if !authz.IsCoachingRole(role) && !linked {
		logger.Warn().
			Int64("user_id", user.ID).
			Int64("player_id", player.ID).
			Msg("Availability update denied")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	saved, err := h.db.Queries.UpsertAvailability(ctx, dbgen.UpsertAvailabilityParams{
		EventID:         eventID,
		PlayerID:        player.ID,
		Status:          status,
		Note:            apiutil.ToNullString(note),
		UpdatedByUserID: user.ID,
	})
	if err != nil {
		logger.Error().Err(err).Int64("event_id", eventID).Int64("player_id", player.ID).Msg("Failed to save availability")
		http.Error(w, "Failed to set availability", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"availability": availabilityResponse{
			PlayerID:  saved.PlayerID,
			FirstName: player.FirstName,
			LastName:  player.LastName,
			Status:    saved.Status,
			Note:      apiutil.FromNullString(saved.Note),
			UpdatedAt: saved.UpdatedAt,
		},
	}); err != nil {
		logger.Error().Err(err).Int64("event_id", eventID).Msg("Failed to write availability response")
	}
}

// GET /api/v1/events/{id}/availability
func (h *Handler) HandleAvailabilityList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	eventID, err := apiutil.PathID(r, "id", "event")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if apiutil.RequireUser(w, r) == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), attendanceQueryTimeout)
	defer cancel()

	event, ok := h.loadEvent(ctx, w, r, eventID)
	if !ok {
		return
	}
	if _, ok := apiutil.RequireTeamMember(w, r, h.roles, event.TeamID); !ok {
		return
	}

	rows, err := h.db.Queries.ListAvailabilityByEvent(ctx, eventID)
	if err != nil {
		logger.Error().Err(err).Int64("event_id", eventID).Msg("Failed to list availability")
		http.Error(w, "Failed to list availability", http.StatusInternalServerError)
		return
	}

	responses := make([]availabilityResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, availabilityResponse{
			PlayerID:  row.PlayerID,
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Status:    row.Status,
			Note:      apiutil.FromNullString(row.Note),
			UpdatedAt: row.UpdatedAt,
		})
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"availability": responses}); err != nil {
		logger.Error().Err(err).Int64("event_id", eventID).Msg("Failed to write availability response")
	}
}

func requireRosterPlayer(ctx context.Context, q *dbgen.Queries, teamID, playerID int64) error {
	player, err := q.GetPlayer(ctx, playerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apiutil.HandlerError{Status: http.StatusBadRequest, Message: fmt.Sprintf("player %d not found", playerID), Err: err}
		}
		return err
	}
	if player.TeamID != teamID {
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: fmt.Sprintf("player %d is not on this team", playerID)}
	}
	return nil
}

func (h *Handler) loadEvent(ctx context.Context, w http.ResponseWriter, r *http.Request, eventID int64) (dbgen.ScheduleEvent, bool) {
	event, err := h.db.Queries.GetScheduleEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Event not found", http.StatusNotFound)
			return dbgen.ScheduleEvent{}, false
		}
		log.Ctx(r.Context()).Error().Err(err).Int64("event_id", eventID).Msg("Failed to load event")
		http.Error(w, "Failed to load event", http.StatusInternalServerError)
		return dbgen.ScheduleEvent{}, false
	}
	return event, true
}
