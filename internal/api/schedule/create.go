package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/codr1/Sideout/internal/api/apiutil"
	appdb "github.com/codr1/Sideout/internal/db"
	dbgen "github.com/codr1/Sideout/internal/db/generated"
	"github.com/codr1/Sideout/internal/recurrence"
)

type eventSeries struct {
	Parent      dbgen.ScheduleEvent
	Occurrences []dbgen.ScheduleEvent
}

// createEventSeries inserts the parent and every generated occurrence in one
// transaction. A failed occurrence insert leaves no parent behind.
func (h *Handler) createEventSeries(ctx context.Context, teamID, userID int64, input eventInput) (eventSeries, error) {
	recurrenceOpts := recurrence.Options{BiweeklyUsesInterval: h.opts.BiweeklyUsesInterval}

	params := dbgen.CreateScheduleEventParams{
		TeamID:          teamID,
		EventType:       input.EventType,
		Title:           input.Title,
		Description:     apiutil.ToNullString(input.Description),
		EventDate:       recurrence.FormatDate(input.EventDate),
		EndDate:         nullDate(input.EndDate),
		StartTime:       apiutil.ToNullString(input.StartTime),
		EndTime:         apiutil.ToNullString(input.EndTime),
		Location:        apiutil.ToNullString(input.Location),
		Opponent:        apiutil.ToNullString(input.Opponent),
		CreatedByUserID: userID,
	}
	if spec := input.Recurrence; spec != nil {
		rule, err := recurrence.RRule(input.EventDate, *spec, recurrenceOpts)
		if err != nil {
			return eventSeries{}, invalidRecurrence(err)
		}
		params.RecurrenceKind = sql.NullString{String: string(spec.Kind), Valid: true}
		params.RecurrenceInterval = sql.NullInt64{Int64: int64(spec.Interval), Valid: true}
		params.RecurrenceEndDate = sql.NullString{String: recurrence.FormatDate(spec.EndDate), Valid: true}
		params.RecurrenceWeekdays = sql.NullString{String: formatWeekdays(spec.Weekdays), Valid: len(spec.Weekdays) > 0}
		params.RecurrenceRule = sql.NullString{String: rule, Valid: rule != ""}
	}

	var series eventSeries
	err := h.db.RunInTx(ctx, func(txdb *appdb.DB, tx *sql.Tx) error {
		parent, err := txdb.Queries.CreateScheduleEvent(ctx, params)
		if err != nil {
			return mapInsertError(err)
		}
		series.Parent = parent

		if input.Recurrence == nil {
			return nil
		}

		occurrences, err := recurrence.Generate(recurrenceEvent(parent.ID, teamID, input), *input.Recurrence, recurrenceOpts)
		if err != nil {
			return invalidRecurrence(err)
		}
		for _, occurrence := range occurrences {
			child, err := txdb.Queries.CreateScheduleEvent(ctx, occurrenceParams(occurrence, userID))
			if err != nil {
				return fmt.Errorf("insert occurrence on %s: %w", recurrence.FormatDate(occurrence.Date), err)
			}
			series.Occurrences = append(series.Occurrences, child)
		}
		return nil
	})
	if err != nil {
		return eventSeries{}, err
	}
	return series, nil
}

func recurrenceEvent(parentID, teamID int64, input eventInput) recurrence.Event {
	return recurrence.Event{
		ID:          parentID,
		TeamID:      teamID,
		EventType:   input.EventType,
		Title:       input.Title,
		Description: input.Description,
		Date:        input.EventDate,
		EndDate:     input.EndDate,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Location:    input.Location,
		Opponent:    input.Opponent,
	}
}

func occurrenceParams(occurrence recurrence.Occurrence, userID int64) dbgen.CreateScheduleEventParams {
	return dbgen.CreateScheduleEventParams{
		TeamID:          occurrence.TeamID,
		ParentEventID:   sql.NullInt64{Int64: occurrence.ParentEventID, Valid: true},
		EventType:       occurrence.EventType,
		Title:           occurrence.Title,
		Description:     apiutil.ToNullString(occurrence.Description),
		EventDate:       recurrence.FormatDate(occurrence.Date),
		EndDate:         nullDate(occurrence.EndDate),
		StartTime:       apiutil.ToNullString(occurrence.StartTime),
		EndTime:         apiutil.ToNullString(occurrence.EndTime),
		Location:        apiutil.ToNullString(occurrence.Location),
		Opponent:        apiutil.ToNullString(occurrence.Opponent),
		CreatedByUserID: userID,
	}
}

func invalidRecurrence(err error) error {
	var specErr *recurrence.InvalidSpecError
	if errors.As(err, &specErr) {
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: specErr.Error(), Err: err}
	}
	return err
}

func mapInsertError(err error) error {
	switch {
	case appdb.IsForeignKeyViolation(err):
		return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Team not found", Err: err}
	case appdb.IsCheckViolation(err):
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Event fields are out of range", Err: err}
	default:
		return err
	}
}
