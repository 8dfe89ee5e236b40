package schedule

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/codr1/Sideout/internal/api/apiutil"
	appdb "github.com/codr1/Sideout/internal/db"
	dbgen "github.com/codr1/Sideout/internal/db/generated"
	"github.com/codr1/Sideout/internal/recurrence"
)

// eventWindow is the date and time slice of an event after a patch applies.
type eventWindow struct {
	eventDate time.Time
	endDate   *time.Time
	startTime *string
	endTime   *string
}

func currentWindow(event dbgen.ScheduleEvent) (eventWindow, error) {
	eventDate, err := recurrence.ParseDate("eventDate", event.EventDate)
	if err != nil {
		return eventWindow{}, err
	}
	endDate, err := parseOptionalDate("endDate", apiutil.FromNullString(event.EndDate))
	if err != nil {
		return eventWindow{}, err
	}
	return eventWindow{
		eventDate: eventDate,
		endDate:   endDate,
		startTime: apiutil.FromNullString(event.StartTime),
		endTime:   apiutil.FromNullString(event.EndTime),
	}, nil
}

// buildEventPatch turns a PATCH body into a whitelisted UPDATE. Unknown keys
// are rejected; the merged date window must still be valid.
func buildEventPatch(event dbgen.ScheduleEvent, body map[string]json.RawMessage) (*appdb.Patch, error) {
	known := make(map[string]struct{}, len(eventPatchFields))
	for _, field := range eventPatchFields {
		known[field.key] = struct{}{}
	}
	for key := range body {
		if _, ok := known[key]; !ok {
			return nil, apiutil.FieldError{Field: key, Reason: "cannot be updated"}
		}
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	window, err := currentWindow(event)
	if err != nil {
		return nil, err
	}

	patch := appdb.NewPatch("schedule_events", patchColumns()...)
	for _, field := range eventPatchFields {
		raw, ok := body[field.key]
		if !ok {
			continue
		}
		value, err := patchValue(field.key, raw, &window)
		if err != nil {
			return nil, err
		}
		patch.Set(field.column, value)
	}

	if err := validateEventWindow(window.eventDate, window.endDate, window.startTime, window.endTime); err != nil {
		return nil, err
	}
	return patch, nil
}

func patchValue(key string, raw json.RawMessage, window *eventWindow) (any, error) {
	switch key {
	case "eventType":
		value, err := decodeRequiredString(key, raw)
		if err != nil {
			return nil, err
		}
		return normalizeEventType(value)
	case "title":
		value, err := decodeRequiredString(key, raw)
		if err != nil {
			return nil, err
		}
		return apiutil.RequiredText(key, value, maxTitleLength)
	case "description", "location", "opponent":
		value, err := decodeOptionalString(key, raw)
		if err != nil {
			return nil, err
		}
		text, err := apiutil.OptionalText(key, value, optionalTextLimit(key))
		if err != nil {
			return nil, err
		}
		return apiutil.ToNullString(text), nil
	case "eventDate":
		value, err := decodeRequiredString(key, raw)
		if err != nil {
			return nil, err
		}
		parsed, err := recurrence.ParseDate(key, value)
		if err != nil {
			return nil, err
		}
		window.eventDate = parsed
		return recurrence.FormatDate(parsed), nil
	case "endDate":
		value, err := decodeOptionalString(key, raw)
		if err != nil {
			return nil, err
		}
		parsed, err := parseOptionalDate(key, value)
		if err != nil {
			return nil, err
		}
		window.endDate = parsed
		return nullDate(parsed), nil
	case "startTime", "endTime":
		value, err := decodeOptionalString(key, raw)
		if err != nil {
			return nil, err
		}
		clock, err := parseOptionalClock(key, value)
		if err != nil {
			return nil, err
		}
		if key == "startTime" {
			window.startTime = clock
		} else {
			window.endTime = clock
		}
		return apiutil.ToNullString(clock), nil
	default:
		return nil, apiutil.FieldError{Field: key, Reason: "cannot be updated"}
	}
}

func optionalTextLimit(key string) int {
	switch key {
	case "description":
		return maxDescriptionLength
	case "location":
		return maxLocationLength
	default:
		return maxOpponentLength
	}
}
