// internal/api/players/handlers.go
package players

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
	playerQueryTimeout  = 5 * time.Second
	playerImportTimeout = 30 * time.Second
	maxImportRows       = 200
	defaultPhoneRegion  = "US"
)

type Options struct {
	// PhoneRegion is the ISO 3166 region used for numbers without a country code.
	PhoneRegion string
}

type Handler struct {
	db     *appdb.DB
	roles  authz.RoleLookup
	region string
}

func NewHandler(database *appdb.DB, opts Options) *Handler {
	region := strings.ToUpper(strings.TrimSpace(opts.PhoneRegion))
	if region == "" {
		region = defaultPhoneRegion
	}
	return &Handler{
		db:     database,
		roles:  apiutil.TeamRoles{Queries: database.Queries},
		region: region,
	}
}

// GET /api/v1/teams/{id}/players
func (h *Handler) HandlePlayersList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	teamID, err := apiutil.PathID(r, "id", "team")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, ok := apiutil.RequireTeamMember(w, r, h.roles, teamID); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), playerQueryTimeout)
	defer cancel()

	rows, err := h.db.Queries.ListPlayersByTeam(ctx, teamID)
	if err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to list players")
		http.Error(w, "Failed to list players", http.StatusInternalServerError)
		return
	}

	players := make([]playerResponse, 0, len(rows))
	for _, row := range rows {
		players = append(players, toPlayerResponse(row))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"players": players}); err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to write players response")
	}
}

// POST /api/v1/teams/{id}/players
func (h *Handler) HandlePlayerCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	teamID, err := apiutil.PathID(r, "id", "team")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !apiutil.RequireCoach(w, r, h.roles, teamID) {
		return
	}

	var req playerRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	fields, err := parsePlayerRequest(req, h.region)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), playerQueryTimeout)
	defer cancel()

	player, err := h.createPlayer(ctx, teamID, fields)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create player")
		return
	}

	logger.Info().Int64("team_id", teamID).Int64("player_id", player.ID).Msg("Player created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, map[string]any{"player": toPlayerResponse(player)}); err != nil {
		logger.Error().Err(err).Int64("player_id", player.ID).Msg("Failed to write player response")
	}
}

// PUT /api/v1/players/{id}
// Replaces every editable field of the player.
func (h *Handler) HandlePlayerUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	playerID, err := apiutil.PathID(r, "id", "player")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if apiutil.RequireUser(w, r) == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), playerQueryTimeout)
	defer cancel()

	existing, ok := h.loadPlayer(ctx, w, r, playerID)
	if !ok {
		return
	}
	if !apiutil.RequireCoach(w, r, h.roles, existing.TeamID) {
		return
	}

	var req playerRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	fields, err := parsePlayerRequest(req, h.region)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.checkLinkedUser(ctx, existing.TeamID, fields.UserID); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update player")
		return
	}

	player, err := h.db.Queries.UpdatePlayer(ctx, dbgen.UpdatePlayerParams{
		UserID:        fields.UserID,
		FirstName:     fields.FirstName,
		LastName:      fields.LastName,
		JerseyNumber:  fields.JerseyNumber,
		Position:      fields.Position,
		Phone:         fields.Phone,
		GuardianPhone: fields.GuardianPhone,
		Status:        fields.Status,
		ID:            playerID,
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, mapPlayerWriteError(err), "Failed to update player")
		return
	}

	logger.Info().Int64("player_id", playerID).Msg("Player updated")
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"player": toPlayerResponse(player)}); err != nil {
		logger.Error().Err(err).Int64("player_id", playerID).Msg("Failed to write player response")
	}
}

// DELETE /api/v1/players/{id}
func (h *Handler) HandlePlayerDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	playerID, err := apiutil.PathID(r, "id", "player")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if apiutil.RequireUser(w, r) == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), playerQueryTimeout)
	defer cancel()

	existing, ok := h.loadPlayer(ctx, w, r, playerID)
	if !ok {
		return
	}
	if !apiutil.RequireCoach(w, r, h.roles, existing.TeamID) {
		return
	}

	rows, err := h.db.Queries.DeletePlayer(ctx, playerID)
	if err != nil {
		logger.Error().Err(err).Int64("player_id", playerID).Msg("Failed to delete player")
		http.Error(w, "Failed to delete player", http.StatusInternalServerError)
		return
	}
	if rows == 0 {
		http.Error(w, "Player not found", http.StatusNotFound)
		return
	}

	logger.Info().Int64("player_id", playerID).Int64("team_id", existing.TeamID).Msg("Player deleted")
	w.WriteHeader(http.StatusNoContent)
}

type importRequest struct {
	Players []playerRequest `json:"players"`
}

type importResult struct {
	Index    int    `json:"index"`
	Status   string `json:"status"`
	PlayerID int64  `json:"playerId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// POST /api/v1/teams/{id}/players/import
// Each row is inserted on its own; a bad row does not block the rest.
func (h *Handler) HandlePlayersImport(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	teamID, err := apiutil.PathID(r, "id", "team")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !apiutil.RequireCoach(w, r, h.roles, teamID) {
		return
	}

	var req importRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(req.Players) == 0 {
		http.Error(w, "players must not be empty", http.StatusBadRequest)
		return
	}
	if len(req.Players) > maxImportRows {
		http.Error(w, fmt.Sprintf("at most %d players per import", maxImportRows), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), playerImportTimeout)
	defer cancel()

	results := make([]importResult, 0, len(req.Players))
	created := 0
	for i, row := range req.Players {
		result := importResult{Index: i}
		player, err := h.importRow(ctx, teamID, row)
		if err != nil {
			result.Status = "error"
			result.Error = importErrorMessage(err)
		} else {
			result.Status = "created"
			result.PlayerID = player.ID
			created++
		}
		results = append(results, result)
	}

	logger.Info().
		Int64("team_id", teamID).
		Int("created", created).
		Int("failed", len(results)-created).
		Msg("Player import finished")
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"created": created,
		"failed":  len(results) - created,
		"results": results,
	}); err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to write import response")
	}
}

func (h *Handler) importRow(ctx context.Context, teamID int64, row playerRequest) (dbgen.Player, error) {
	fields, err := parsePlayerRequest(row, h.region)
	if err != nil {
		return dbgen.Player{}, apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
	}
	return h.createPlayer(ctx, teamID, fields)
}

func importErrorMessage(err error) string {
	var herr apiutil.HandlerError
	if errors.As(err, &herr) && herr.Status < http.StatusInternalServerError {
		return herr.Message
	}
	return "failed to create player"
}

func (h *Handler) createPlayer(ctx context.Context, teamID int64, fields playerFields) (dbgen.Player, error) {
	if err := h.checkLinkedUser(ctx, teamID, fields.UserID); err != nil {
		return dbgen.Player{}, err
	}
	player, err := h.db.Queries.CreatePlayer(ctx, dbgen.CreatePlayerParams{
		TeamID:        teamID,
		UserID:        fields.UserID,
		FirstName:     fields.FirstName,
		LastName:      fields.LastName,
		JerseyNumber:  fields.JerseyNumber,
		Position:      fields.Position,
		Phone:         fields.Phone,
		GuardianPhone: fields.GuardianPhone,
		Status:        fields.Status,
	})
	if err != nil {
		return dbgen.Player{}, mapPlayerWriteError(err)
	}
	return player, nil
}

// checkLinkedUser requires a linked account to already be on the team.
func (h *Handler) checkLinkedUser(ctx context.Context, teamID int64, userID sql.NullInt64) error {
	if !userID.Valid {
		return nil
	}
	_, err := h.roles.TeamMemberRole(ctx, teamID, userID.Int64)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apiutil.HandlerError{Status: http.StatusBadRequest, Message: "userId must belong to a team member", Err: err}
		}
		return err
	}
	return nil
}

func mapPlayerWriteError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Player not found", Err: err}
	case appdb.IsUniqueViolation(err):
		return apiutil.HandlerError{Status: http.StatusConflict, Message: "Jersey number already taken on this team", Err: err}
	case appdb.IsForeignKeyViolation(err):
		return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Team not found", Err: err}
	case appdb.IsCheckViolation(err):
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid player", Err: err}
	default:
		return err
	}
}

func (h *Handler) loadPlayer(ctx context.Context, w http.ResponseWriter, r *http.Request, playerID int64) (dbgen.Player, bool) {
	player, err := h.db.Queries.GetPlayer(ctx, playerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Player not found", http.StatusNotFound)
			return dbgen.Player{}, false
		}
		log.Ctx(r.Context()).Error().Err(err).Int64("player_id", playerID).Msg("Failed to load player")
		http.Error(w, "Failed to load player", http.StatusInternalServerError)
		return dbgen.Player{}, false
	}
	return player, true
}
