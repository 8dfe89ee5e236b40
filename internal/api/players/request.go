package players

import (
	"database/sql"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"

	"github.com/codr1/Sideout/internal/api/apiutil"
	dbgen "github.com/codr1/Sideout/internal/db/generated"
)

const (
	maxNameLength   = 50
	maxJerseyNumber = 99
	statusActive    = "active"
	statusInactive  = "inactive"
)

var positions = map[string]struct{}{
	"setter":               {},
	"outside_hitter":       {},
	"opposite":             {},
	"middle_blocker":       {},
	"libero":               {},
	"defensive_specialist": {},
}

type playerRequest struct {
	UserID        *int64  `json:"userId"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	JerseyNumber  *int64  `json:"jerseyNumber"`
	Position      string  `json:"position"`
	Phone         *string `json:"phone"`
	GuardianPhone *string `json:"guardianPhone"`
	Status        string  `json:"status"`
}

type playerResponse struct {
	ID            int64     `json:"id"`
	TeamID        int64     `json:"teamId"`
	UserID        *int64    `json:"userId"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	JerseyNumber  *int64    `json:"jerseyNumber"`
	Position      string    `json:"position"`
	Phone         *string   `json:"phone"`
	GuardianPhone *string   `json:"guardianPhone"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// playerFields is a validated player payload ready for insert or update.
type playerFields struct {
	UserID        sql.NullInt64
	FirstName     string
	LastName      string
	JerseyNumber  sql.NullInt64
	Position      string
	Phone         sql.NullString
	GuardianPhone sql.NullString
	Status        string
}

func parsePlayerRequest(req playerRequest, region string) (playerFields, error) {
	var fields playerFields
	var err error

	if fields.FirstName, err = apiutil.RequiredText("firstName", req.FirstName, maxNameLength); err != nil {
		return playerFields{}, err
	}
	if fields.LastName, err = apiutil.RequiredText("lastName", req.LastName, maxNameLength); err != nil {
		return playerFields{}, err
	}

	if req.JerseyNumber != nil {
		if *req.JerseyNumber < 0 || *req.JerseyNumber > maxJerseyNumber {
			return playerFields{}, apiutil.FieldError{Field: "jerseyNumber", Reason: "must be between 0 and 99"}
		}
		fields.JerseyNumber = sql.NullInt64{Int64: *req.JerseyNumber, Valid: true}
	}

	fields.Position = strings.ToLower(strings.TrimSpace(req.Position))
	if fields.Position != "" {
		if _, ok := positions[fields.Position]; !ok {
			return playerFields{}, apiutil.FieldError{Field: "position", Reason: "is not a recognized position"}
		}
	}

	if fields.Phone, err = normalizePhone("phone", req.Phone, region); err != nil {
		return playerFields{}, err
	}
	if fields.GuardianPhone, err = normalizePhone("guardianPhone", req.GuardianPhone, region); err != nil {
		return playerFields{}, err
	}

	switch status := strings.ToLower(strings.TrimSpace(req.Status)); status {
	case "":
		fields.Status = statusActive
	case statusActive, statusInactive:
		fields.Status = status
	default:
		return playerFields{}, apiutil.FieldError{Field: "status", Reason: "must be active or inactive"}
	}

	if req.UserID != nil {
		if *req.UserID <= 0 {
			return playerFields{}, apiutil.FieldError{Field: "userId", Reason: "must be greater than 0"}
		}
		fields.UserID = sql.NullInt64{Int64: *req.UserID, Valid: true}
	}

	return fields, nil
}

// normalizePhone parses raw in the context of region and returns it in E.164.
// Blank input clears the number.
func normalizePhone(field string, raw *string, region string) (sql.NullString, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return sql.NullString{}, nil
	}
	num, err := phonenumbers.Parse(strings.TrimSpace(*raw), region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return sql.NullString{}, apiutil.FieldError{Field: field, Reason: "must be a valid phone number"}
	}
	return sql.NullString{String: phonenumbers.Format(num, phonenumbers.E164), Valid: true}, nil
}

func toPlayerResponse(player dbgen.Player) playerResponse {
	return playerResponse{
		ID:            player.ID,
		TeamID:        player.TeamID,
		UserID:        apiutil.FromNullInt64(player.UserID),
		FirstName:     player.FirstName,
		LastName:      player.LastName,
		JerseyNumber:  apiutil.FromNullInt64(player.JerseyNumber),
		Position:      player.Position,
		Phone:         apiutil.FromNullString(player.Phone),
		GuardianPhone: apiutil.FromNullString(player.GuardianPhone),
		Status:        player.Status,
		CreatedAt:     player.CreatedAt,
		UpdatedAt:     player.UpdatedAt,
	}
}
