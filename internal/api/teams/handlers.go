// internal/api/teams/handlers.go
package teams

import (
	"context"
	"database/sql"
	"errors"
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
	teamQueryTimeout = 5 * time.Second
	maxTeamName      = 100
	maxSeasonLength  = 50
	maxLevelLength   = 50
)

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

type teamRequest struct {
	Name   string `json:"name"`
	Season string `json:"season"`
	Level  string `json:"level"`
}

type teamResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Season    string    `json:"season"`
	Level     string    `json:"level"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type memberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type memberResponse struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func toTeamResponse(team dbgen.Team, role string) teamResponse {
	return teamResponse{
		ID:        team.ID,
		Name:      team.Name,
		Season:    team.Season,
		Level:     team.Level,
		Role:      role,
		CreatedAt: team.CreatedAt,
		UpdatedAt: team.UpdatedAt,
	}
}

func parseTeamRequest(req teamRequest) (dbgen.UpdateTeamParams, error) {
	name, err := apiutil.RequiredText("name", req.Name, maxTeamName)
	if err != nil {
		return dbgen.UpdateTeamParams{}, err
	}
	season, err := apiutil.OptionalText("season", &req.Season, maxSeasonLength)
	if err != nil {
		return dbgen.UpdateTeamParams{}, err
	}
	level, err := apiutil.OptionalText("level", &req.Level, maxLevelLength)
	if err != nil {
		return dbgen.UpdateTeamParams{}, err
	}
	params := dbgen.UpdateTeamParams{Name: name}
	if season != nil {
		params.Season = *season
	}
	if level != nil {
		params.Level = *level
	}
	return params, nil
}

// POST /api/v1/teams
// The creator becomes the team's head coach in the same transaction.
func (h *Handler) HandleTeamCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	var req teamRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	fields, err := parseTeamRequest(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	var team dbgen.Team
	err = h.db.RunInTx(ctx, func(txdb *appdb.DB, tx *sql.Tx) error {
		created, err := txdb.Queries.CreateTeam(ctx, dbgen.CreateTeamParams{
			Name:            fields.Name,
			Season:          fields.Season,
			Level:           fields.Level,
			CreatedByUserID: user.ID,
		})
		if err != nil {
			return err
		}
		if _, err := txdb.Queries.UpsertTeamMember(ctx, dbgen.UpsertTeamMemberParams{
			TeamID: created.ID,
			UserID: user.ID,
			Role:   authz.RoleHeadCoach,
		}); err != nil {
			return err
		}
		team = created
		return nil
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create team")
		return
	}

	logger.Info().Int64("team_id", team.ID).Int64("user_id", user.ID).Msg("Team created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, map[string]any{
		"team": toTeamResponse(team, authz.RoleHeadCoach),
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to write team response")
	}
}

// GET /api/v1/teams
func (h *Handler) HandleTeamsList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	rows, err := h.db.Queries.ListTeamsForUser(ctx, user.ID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to list teams")
		http.Error(w, "Failed to list teams", http.StatusInternalServerError)
		return
	}

	teams := make([]teamResponse, 0, len(rows))
	for _, row := range rows {
		teams = append(teams, teamResponse{
			ID:        row.ID,
			Name:      row.Name,
			Season:    row.Season,
			Level:     row.Level,
			Role:      row.Role,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		})
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"teams": teams}); err != nil {
		logger.Error().Err(err).Msg("Failed to write teams response")
	}
}

// GET /api/v1/teams/{id}
func (h *Handler) HandleTeamDetail(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	teamID, err := apiutil.PathID(r, "id", "team")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	role, ok := apiutil.RequireTeamMember(w, r, h.roles, teamID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	team, err := h.db.Queries.GetTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Team not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to load team")
		http.Error(w, "Failed to load team", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"team": toTeamResponse(team, role),
	}); err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to write team response")
	}
}

// PUT /api/v1/teams/{id}
func (h *Handler) HandleTeamUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	teamID, err := apiutil.PathID(r, "id", "team")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !apiutil.RequireCoach(w, r, h.roles, teamID) {
		return
	}

	var req teamRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	params, err := parseTeamRequest(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	params.ID = teamID

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	team, err := h.db.Queries.UpdateTeam(ctx, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Team not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to update team")
		http.Error(w, "Failed to update team", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"team": toTeamResponse(team, ""),
	}); err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to write team response")
	}
}

// DELETE /api/v1/teams/{id}
func (h *Handler) HandleTeamDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	teamID, err := apiutil.PathID(r, "id", "team")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := authz.RequireTeamRole(r.Context(), h.roles, teamID, authz.RoleHeadCoach); err != nil {
		writeAccessError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	rows, err := h.db.Queries.DeleteTeam(ctx, teamID)
	if err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to delete team")
		http.Error(w, "Failed to delete team", http.StatusInternalServerError)
		return
	}
	if rows == 0 {
		http.Error(w, "Team not found", http.StatusNotFound)
		return
	}

	logger.Info().Int64("team_id", teamID).Msg("Team deleted")
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/teams/{id}/members
func (h *Handler) HandleMembersList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	teamID, err := apiutil.PathID(r, "id", "team")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, ok := apiutil.RequireTeamMember(w, r, h.roles, teamID); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	rows, err := h.db.Queries.ListTeamMembers(ctx, teamID)
	if err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to list team members")
		http.Error(w, "Failed to list members", http.StatusInternalServerError)
		return
	}

	members := make([]memberResponse, 0, len(rows))
	for _, row := range rows {
		members = append(members, memberResponse{UserID: row.UserID, Name: row.Name, Email: row.Email, Role: row.Role})
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"members": members}); err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to write members response")
	}
}

// POST /api/v1/teams/{id}/members
// Adds an existing account by email, or changes the role of a current member.
func (h *Handler) HandleMemberAdd(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	teamID, err := apiutil.PathID(r, "id", "team")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !apiutil.RequireCoach(w, r, h.roles, teamID) {
		return
	}

	var req memberRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}
	if !authz.RoleAllowed(role) {
		http.Error(w, "role must be head_coach, assistant_coach, player, or parent", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	var member memberResponse
	err = h.db.RunInTx(ctx, func(txdb *appdb.DB, tx *sql.Tx) error {
		user, err := txdb.Queries.GetUserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.HandlerError{Status: http.StatusNotFound, Message: "No account with that email", Err: err}
			}
			return err
		}
		if role != authz.RoleHeadCoach {
			if err := ensureHeadCoachRemains(ctx, txdb.Queries, teamID, user.ID); err != nil {
				return err
			}
		}
		if _, err := txdb.Queries.UpsertTeamMember(ctx, dbgen.UpsertTeamMemberParams{
			TeamID: teamID,
			UserID: user.ID,
			Role:   role,
		}); err != nil {
			return err
		}
		member = memberResponse{UserID: user.ID, Name: user.Name, Email: user.Email, Role: role}
		return nil
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to add member")
		return
	}

	logger.Info().Int64("team_id", teamID).Int64("user_id", member.UserID).Str("role", role).Msg("Team member saved")
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"member": member}); err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to write member response")
	}
}

// DELETE /api/v1/teams/{id}/members/{user_id}
func (h *Handler) HandleMemberRemove(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	teamID, err := apiutil.PathID(r, "id", "team")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	userID, err := apiutil.PathID(r, "user_id", "user")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !apiutil.RequireCoach(w, r, h.roles, teamID) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	err = h.db.RunInTx(ctx, func(txdb *appdb.DB, tx *sql.Tx) error {
		if err := ensureHeadCoachRemains(ctx, txdb.Queries, teamID, userID); err != nil {
			return err
		}
		rows, err := txdb.Queries.RemoveTeamMember(ctx, dbgen.RemoveTeamMemberParams{TeamID: teamID, UserID: userID})
		if err != nil {
			return err
		}
		if rows == 0 {
			return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Member not found", Err: sql.ErrNoRows}
		}
		return nil
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to remove member")
		return
	}

	logger.Info().Int64("team_id", teamID).Int64("user_id", userID).Msg("Team member removed")
	w.WriteHeader(http.StatusNoContent)
}

// ensureHeadCoachRemains rejects a change that would strip userID of the
// team's only head coach role.
func ensureHeadCoachRemains(ctx context.Context, q *dbgen.Queries, teamID, userID int64) error {
	current, err := q.GetTeamMemberRole(ctx, dbgen.GetTeamMemberRoleParams{TeamID: teamID, UserID: userID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	if current != authz.RoleHeadCoach {
		return nil
	}
	count, err := q.CountTeamMembersByRole(ctx, dbgen.CountTeamMembersByRoleParams{TeamID: teamID, Role: authz.RoleHeadCoach})
	if err != nil {
		return err
	}
	if count <= 1 {
		return apiutil.HandlerError{Status: http.StatusConflict, Message: "A team must keep at least one head coach"}
	}
	return nil
}

func writeAccessError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, authz.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to authorize request")
		http.Error(w, "Failed to authorize request", http.StatusInternalServerError)
	}
}
