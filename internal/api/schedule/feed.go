package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Sideout/internal/api/apiutil"
	dbgen "github.com/codr1/Sideout/internal/db/generated"
	"github.com/codr1/Sideout/internal/recurrence"
)

const (
	calendarProductID = "-//Sideout//Team Schedule//EN"
	icalFloatingTime  = "20060102T150405"
)

// eventNamespace scopes the name-based UUIDs used as calendar UIDs so a
// subscriber sees the same UID for an event on every refresh.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://sideout.app/events"))

func eventUID(eventID int64) string {
	return uuid.NewSHA1(eventNamespace, []byte(fmt.Sprintf("%d", eventID))).String()
}

// GET /api/v1/teams/{id}/calendar.ics
func (h *Handler) HandleCalendarFeed(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	teamID, err := apiutil.PathID(r, "id", "team")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, ok := apiutil.RequireTeamMember(w, r, h.roles, teamID); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), scheduleQueryTimeout)
	defer cancel()

	team, events, err := h.loadTeamSchedule(ctx, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Team not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to load calendar feed")
		http.Error(w, "Failed to load calendar", http.StatusInternalServerError)
		return
	}

	body := buildCalendar(h.calendarName(team), events, time.Now().UTC())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="team-%d.ics"`, teamID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to write calendar feed")
	}
}

func (h *Handler) loadTeamSchedule(ctx context.Context, teamID int64) (dbgen.Team, []dbgen.ScheduleEvent, error) {
	team, err := h.db.Queries.GetTeam(ctx, teamID)
	if err != nil {
		return dbgen.Team{}, nil, err
	}
	events, err := h.db.Queries.ListScheduleEventsByTeam(ctx, dbgen.ListScheduleEventsByTeamParams{
		TeamID:   teamID,
		FromDate: listFromDefault,
		ToDate:   listToDefault,
	})
	if err != nil {
		return dbgen.Team{}, nil, err
	}
	return team, events, nil
}

func (h *Handler) calendarName(team dbgen.Team) string {
	if h.opts.CalendarName == "" {
		return team.Name
	}
	return fmt.Sprintf("%s - %s", team.Name, h.opts.CalendarName)
}

// buildCalendar renders every stored event, occurrences included, as its own
// VEVENT. Events without a start time are all-day; timed events use floating
// local time.
func buildCalendar(name string, events []dbgen.ScheduleEvent, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetXWRCalName(name)

	for _, event := range events {
		date, err := recurrence.ParseDate("eventDate", event.EventDate)
		if err != nil {
			continue
		}
		endDate := date
		if event.EndDate.Valid {
			if parsed, err := recurrence.ParseDate("endDate", event.EndDate.String); err == nil {
				endDate = parsed
			}
		}

		vevent := cal.AddEvent(eventUID(event.ID))
		vevent.SetDtStampTime(stamp)
		vevent.SetModifiedAt(event.UpdatedAt.UTC())
		vevent.SetSummary(eventSummary(event))
		vevent.SetProperty(ical.ComponentPropertyCategories, event.EventType)
		if event.Description.Valid {
			vevent.SetDescription(event.Description.String)
		}
		if event.Location.Valid {
			vevent.SetLocation(event.Location.String)
		}
		if event.ParentEventID.Valid {
			vevent.SetProperty(ical.ComponentPropertyRelatedTo, eventUID(event.ParentEventID.Int64))
		}

		if !event.StartTime.Valid {
			vevent.SetAllDayStartAt(date)
			// DTEND is exclusive for all-day events.
			vevent.SetAllDayEndAt(endDate.AddDate(0, 0, 1))
			continue
		}
		start, ok := combineDateClock(date, event.StartTime.String)
		if !ok {
			continue
		}
		vevent.SetProperty(ical.ComponentPropertyDtStart, start.Format(icalFloatingTime))
		if event.EndTime.Valid {
			if end, ok := combineDateClock(endDate, event.EndTime.String); ok {
				vevent.SetProperty(ical.ComponentPropertyDtEnd, end.Format(icalFloatingTime))
			}
		}
	}

	return cal.Serialize()
}

func eventSummary(event dbgen.ScheduleEvent) string {
	if event.Opponent.Valid && event.Opponent.String != "" {
		return fmt.Sprintf("%s vs. %s", event.Title, event.Opponent.String)
	}
	return event.Title
}

func combineDateClock(date time.Time, clock string) (time.Time, bool) {
	parsed, err := time.Parse(recurrence.ClockLayout, clock)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.UTC), true
}
