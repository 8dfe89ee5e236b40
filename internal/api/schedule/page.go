package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Sideout/internal/api/apiutil"
	dbgen "github.com/codr1/Sideout/internal/db/generated"
	"github.com/codr1/Sideout/internal/recurrence"
)

// GET /teams/{id}/schedule
func (h *Handler) HandleSchedulePage(w http.ResponseWriter, r *http.Request) {
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
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to load schedule page")
		http.Error(w, "Failed to load schedule", http.StatusInternalServerError)
		return
	}

	apiutil.RenderHTMLComponent(r.Context(), w, schedulePageComponent(team, events), nil, "Failed to render schedule page", "Failed to render page")
}

func schedulePageComponent(team dbgen.Team, events []dbgen.ScheduleEvent) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := templ.EscapeString(team.Name)
		feedURL := templ.URL(fmt.Sprintf("/api/v1/teams/%d/calendar.ics", team.ID))

		parts := []string{
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>` + title + ` schedule</title>`,
			`<style>body{font-family:sans-serif;margin:2rem}table{border-collapse:collapse;width:100%}th,td{border:1px solid #ccc;padding:.4rem;text-align:left}@media print{a{display:none}}</style></head><body>`,
			`<h1>` + title + `</h1><p>` + templ.EscapeString(teamSubtitle(team)) + `</p>`,
			`<p><a href="` + templ.EscapeString(feedURL) + `">Subscribe (iCalendar)</a></p>`,
			buildScheduleTableHTML(events),
			`</body></html>`,
		}
		for _, part := range parts {
			if _, err := io.WriteString(w, part); err != nil {
				return err
			}
		}
		return nil
	})
}

func teamSubtitle(team dbgen.Team) string {
	parts := make([]string, 0, 2)
	if team.Season != "" {
		parts = append(parts, team.Season)
	}
	if team.Level != "" {
		parts = append(parts, team.Level)
	}
	return strings.Join(parts, " · ")
}

func buildScheduleTableHTML(events []dbgen.ScheduleEvent) string {
	if len(events) == 0 {
		return `<p class="empty">No events scheduled.</p>`
	}

	var builder strings.Builder
	builder.WriteString(`<table><thead><tr><th>Date</th><th>Time</th><th>Type</th><th>Event</th><th>Location</th></tr></thead><tbody>`)
	for _, event := range events {
		builder.WriteString(`<tr>`)
		builder.WriteString(`<td>` + templ.EscapeString(formatEventDate(event)) + `</td>`)
		builder.WriteString(`<td>` + templ.EscapeString(formatEventTime(event)) + `</td>`)
		builder.WriteString(`<td>` + templ.EscapeString(event.EventType) + `</td>`)
		builder.WriteString(`<td>` + templ.EscapeString(eventSummary(event)) + `</td>`)
		builder.WriteString(`<td>` + templ.EscapeString(event.Location.String) + `</td>`)
		builder.WriteString(`</tr>`)
	}
	builder.WriteString(`</tbody></table>`)
	return builder.String()
}

func formatEventDate(event dbgen.ScheduleEvent) string {
	date, err := recurrence.ParseDate("eventDate", event.EventDate)
	if err != nil {
		return event.EventDate
	}
	label := date.Format("Mon Jan 2, 2006")
	if event.EndDate.Valid && event.EndDate.String != event.EventDate {
		if end, err := recurrence.ParseDate("endDate", event.EndDate.String); err == nil {
			label += " - " + end.Format("Mon Jan 2, 2006")
		}
	}
	return label
}

func formatEventTime(event dbgen.ScheduleEvent) string {
	switch {
	case !event.StartTime.Valid:
		return "All day"
	case event.EndTime.Valid:
		return event.StartTime.String + "-" + event.EndTime.String
	default:
		return event.StartTime.String
	}
}
