package schedule

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/codr1/Sideout/internal/api/apiutil"
	dbgen "github.com/codr1/Sideout/internal/db/generated"
	"github.com/codr1/Sideout/internal/recurrence"
)

const (
	maxTitleLength       = 100
	maxDescriptionLength = 1000
	maxLocationLength    = 200
	maxOpponentLength    = 100
	maxRecurrenceStep    = 52
)

type recurrenceRequest struct {
	Kind     string `json:"kind"`
	Interval *int   `json:"interval"`
	EndDate  string `json:"endDate"`
	Weekdays []int  `json:"weekdays"`
}

type eventRequest struct {
	EventType   string             `json:"eventType"`
	Title       string             `json:"title"`
	Description *string            `json:"description"`
	EventDate   string             `json:"eventDate"`
	EndDate     *string            `json:"endDate"`
	StartTime   *string            `json:"startTime"`
	EndTime     *string            `json:"endTime"`
	Location    *string            `json:"location"`
	Opponent    *string            `json:"opponent"`
	Recurrence  *recurrenceRequest `json:"recurrence"`
}

type eventInput struct {
	EventType   string
	Title       string
	Description *string
	EventDate   time.Time
	EndDate     *time.Time
	StartTime   *string
	EndTime     *string
	Location    *string
	Opponent    *string
	Recurrence  *recurrence.Spec
}

type recurrenceResponse struct {
	Kind     string `json:"kind"`
	Interval int64  `json:"interval"`
	EndDate  string `json:"endDate"`
	Weekdays []int  `json:"weekdays"`
	Rule     string `json:"rule,omitempty"`
}

type eventResponse struct {
	ID            int64               `json:"id"`
	TeamID        int64               `json:"teamId"`
	ParentEventID *int64              `json:"parentEventId"`
	EventType     string              `json:"eventType"`
	Title         string              `json:"title"`
	Description   *string             `json:"description"`
	EventDate     string              `json:"eventDate"`
	EndDate       *string             `json:"endDate"`
	StartTime     *string             `json:"startTime"`
	EndTime       *string             `json:"endTime"`
	Location      *string             `json:"location"`
	Opponent      *string             `json:"opponent"`
	Recurrence    *recurrenceResponse `json:"recurrence,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

func eventTypeAllowed(eventType string) bool {
	switch eventType {
	case "practice", "scrimmage", "game", "tournament":
		return true
	default:
		return false
	}
}

func normalizeEventType(raw string) (string, error) {
	eventType := strings.ToLower(strings.TrimSpace(raw))
	if eventType == "" {
		return "", apiutil.FieldError{Field: "eventType", Reason: "is required"}
	}
	if !eventTypeAllowed(eventType) {
		return "", apiutil.FieldError{Field: "eventType", Reason: "must be practice, scrimmage, game, or tournament"}
	}
	return eventType, nil
}

func parseOptionalDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := recurrence.ParseDate(field, *raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseOptionalClock(field string, raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := recurrence.ParseClock(field, *raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseEventRequest validates every field of a create request. Dates fail
// fast with recurrence.InvalidDateError before anything is written.
func parseEventRequest(req eventRequest) (eventInput, error) {
	var input eventInput
	var err error

	if input.EventType, err = normalizeEventType(req.EventType); err != nil {
		return eventInput{}, err
	}
	if input.Title, err = apiutil.RequiredText("title", req.Title, maxTitleLength); err != nil {
		return eventInput{}, err
	}
	if input.Description, err = apiutil.OptionalText("description", req.Description, maxDescriptionLength); err != nil {
		return eventInput{}, err
	}
	if input.Location, err = apiutil.OptionalText("location", req.Location, maxLocationLength); err != nil {
		return eventInput{}, err
	}
	if input.Opponent, err = apiutil.OptionalText("opponent", req.Opponent, maxOpponentLength); err != nil {
		return eventInput{}, err
	}
	if strings.TrimSpace(req.EventDate) == "" {
		return eventInput{}, apiutil.FieldError{Field: "eventDate", Reason: "is required"}
	}
	if input.EventDate, err = recurrence.ParseDate("eventDate", req.EventDate); err != nil {
		return eventInput{}, err
	}
	if input.EndDate, err = parseOptionalDate("endDate", req.EndDate); err != nil {
		return eventInput{}, err
	}
	if input.StartTime, err = parseOptionalClock("startTime", req.StartTime); err != nil {
		return eventInput{}, err
	}
	if input.EndTime, err = parseOptionalClock("endTime", req.EndTime); err != nil {
		return eventInput{}, err
	}
	if err := validateEventWindow(input.EventDate, input.EndDate, input.StartTime, input.EndTime); err != nil {
		return eventInput{}, err
	}

	if req.Recurrence != nil {
		spec, err := parseRecurrenceRequest(*req.Recurrence)
		if err != nil {
			return eventInput{}, err
		}
		input.Recurrence = &spec
	}

	return input, nil
}

func validateEventWindow(eventDate time.Time, endDate *time.Time, startTime, endTime *string) error {
	if endDate != nil && endDate.Before(eventDate) {
		return apiutil.FieldError{Field: "endDate", Reason: "must be on or after eventDate"}
	}
	sameDay := endDate == nil || endDate.Equal(eventDate)
	if sameDay && startTime != nil && endTime != nil && *endTime <= *startTime {
		return apiutil.FieldError{Field: "endTime", Reason: "must be after startTime"}
	}
	return nil
}

func parseRecurrenceRequest(req recurrenceRequest) (recurrence.Spec, error) {
	kind := recurrence.ParseKind(req.Kind)
	if !kind.Known() {
		return recurrence.Spec{}, apiutil.FieldError{Field: "recurrence.kind", Reason: "must be weekly, biweekly, or monthly"}
	}

	interval := 1
	if req.Interval != nil {
		interval = *req.Interval
	}
	if interval < 1 || interval > maxRecurrenceStep {
		return recurrence.Spec{}, apiutil.FieldError{Field: "recurrence.interval", Reason: fmt.Sprintf("must be between 1 and %d", maxRecurrenceStep)}
	}

	if strings.TrimSpace(req.EndDate) == "" {
		return recurrence.Spec{}, apiutil.FieldError{Field: "recurrence.endDate", Reason: "is required"}
	}
	endDate, err := recurrence.ParseDate("recurrence.endDate", req.EndDate)
	if err != nil {
		return recurrence.Spec{}, err
	}

	for _, weekday := range req.Weekdays {
		if weekday < 0 || weekday > 6 {
			return recurrence.Spec{}, apiutil.FieldError{Field: "recurrence.weekdays", Reason: "must contain values between 0 and 6"}
		}
	}

	spec := recurrence.Spec{
		Kind:     kind,
		Interval: interval,
		EndDate:  endDate,
	}
	if kind != recurrence.KindMonthly {
		spec.Weekdays = append([]int(nil), req.Weekdays...)
	}
	return spec, nil
}

func formatWeekdays(weekdays []int) string {
	parts := make([]string, 0, len(weekdays))
	for _, weekday := range weekdays {
		parts = append(parts, strconv.Itoa(weekday))
	}
	return strings.Join(parts, ",")
}

func parseWeekdays(raw string) []int {
	var weekdays []int
	for _, part := range strings.Split(raw, ",") {
		value, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		weekdays = append(weekdays, value)
	}
	sort.Ints(weekdays)
	return weekdays
}

func nullDate(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: recurrence.FormatDate(*value), Valid: true}
}

func toEventResponse(event dbgen.ScheduleEvent) eventResponse {
	resp := eventResponse{
		ID:            event.ID,
		TeamID:        event.TeamID,
		ParentEventID: apiutil.FromNullInt64(event.ParentEventID),
		EventType:     event.EventType,
		Title:         event.Title,
		Description:   apiutil.FromNullString(event.Description),
		EventDate:     event.EventDate,
		EndDate:       apiutil.FromNullString(event.EndDate),
		StartTime:     apiutil.FromNullString(event.StartTime),
		EndTime:       apiutil.FromNullString(event.EndTime),
		Location:      apiutil.FromNullString(event.Location),
		Opponent:      apiutil.FromNullString(event.Opponent),
		CreatedAt:     event.CreatedAt,
		UpdatedAt:     event.UpdatedAt,
	}
	if event.RecurrenceKind.Valid {
		resp.Recurrence = &recurrenceResponse{
			Kind:     event.RecurrenceKind.String,
			Interval: event.RecurrenceInterval.Int64,
			EndDate:  event.RecurrenceEndDate.String,
			Weekdays: parseWeekdays(event.RecurrenceWeekdays.String),
			Rule:     event.RecurrenceRule.String,
		}
	}
	return resp
}

func toEventResponses(events []dbgen.ScheduleEvent) []eventResponse {
	responses := make([]eventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, toEventResponse(event))
	}
	return responses
}

// eventPatchFields lists the JSON keys a PATCH may carry and the column each
// one updates, in the order they are applied.
var eventPatchFields = []struct {
	key    string
	column string
}{
	{"eventType", "event_type"},
	{"title", "title"},
	{"description", "description"},
	{"eventDate", "event_date"},
	{"endDate", "end_date"},
	{"startTime", "start_time"},
	{"endTime", "end_time"},
	{"location", "location"},
	{"opponent", "opponent"},
}

func patchColumns() []string {
	columns := make([]string, 0, len(eventPatchFields))
	for _, field := range eventPatchFields {
		columns = append(columns, field.column)
	}
	return columns
}

// decodeOptionalString decodes a JSON string or null.
func decodeOptionalString(field string, raw json.RawMessage) (*string, error) {
	if string(raw) == "null" {
		return nil, nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, apiutil.FieldError{Field: field, Reason: "must be a string or null"}
	}
	return &value, nil
}

func decodeRequiredString(field string, raw json.RawMessage) (string, error) {
	var value string
	if string(raw) == "null" {
		return "", apiutil.FieldError{Field: field, Reason: "cannot be null"}
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", apiutil.FieldError{Field: field, Reason: "must be a string"}
	}
	return value, nil
}
