package schedule

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dbgen "github.com/codr1/Sideout/internal/db/generated"
	"github.com/codr1/Sideout/internal/testutil"
)

func TestBuildCalendar(t *testing.T) {
	stamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	events := []dbgen.ScheduleEvent{
		{
			ID:        1,
			EventType: "tournament",
			Title:     "Winter Classic",
			EventDate: "2024-01-06",
			EndDate:   sql.NullString{String: "2024-01-07", Valid: true},
			Location:  sql.NullString{String: "Expo Center", Valid: true},
			UpdatedAt: stamp,
		},
		{
			ID:            2,
			ParentEventID: sql.NullInt64{Int64: 1, Valid: true},
			EventType:     "game",
			Title:         "League match",
			EventDate:     "2024-01-09",
			StartTime:     sql.NullString{String: "18:30", Valid: true},
			EndTime:       sql.NullString{String: "20:00", Valid: true},
			Opponent:      sql.NullString{String: "Central", Valid: true},
			UpdatedAt:     stamp,
		},
	}

	body := buildCalendar("Varsity Girls", events, stamp)

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"METHOD:PUBLISH",
		"X-WR-CALNAME:Varsity Girls",
		"UID:" + eventUID(1),
		"DTSTART;VALUE=DATE:20240106",
		"DTEND;VALUE=DATE:20240108",
		"LOCATION:Expo Center",
		"SUMMARY:League match vs. Central",
		"DTSTART:20240109T183000",
		"DTEND:20240109T200000",
		"RELATED-TO:" + eventUID(1),
		"CATEGORIES:game",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in calendar:\n%s", want, body)
		}
	}
	if strings.Count(body, "BEGIN:VEVENT") != 2 {
		t.Fatalf("expected one VEVENT per stored event:\n%s", body)
	}
}

func TestEventUIDIsStable(t *testing.T) {
	if eventUID(42) != eventUID(42) {
		t.Fatalf("expected stable uid")
	}
	if eventUID(42) == eventUID(43) {
		t.Fatalf("expected distinct uids per event")
	}
}

func TestCalendarFeedHandler(t *testing.T) {
	f := newScheduleFixture(t)
	decodeCreate(t, f.createEvent(t, f.coach, `{
		"eventType": "practice",
		"title": "Practice",
		"eventDate": "2024-01-01",
		"recurrence": {"kind": "weekly", "endDate": "2024-01-15", "weekdays": [1]}
	}`))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/teams/x/calendar.ics", nil)
	req.SetPathValue("id", fmt.Sprintf("%d", f.team.ID))
	req = testutil.WithUser(req, f.coach)
	recorder := httptest.NewRecorder()
	f.handler.HandleCalendarFeed(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if ct := recorder.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("expected text/calendar, got %q", ct)
	}
	if got := strings.Count(recorder.Body.String(), "BEGIN:VEVENT"); got != 3 {
		t.Fatalf("expected parent and two occurrences, got %d", got)
	}

	outsider := testutil.SeedUser(t, f.db, "Outsider")
	req = httptest.NewRequest(http.MethodGet, "/api/v1/teams/x/calendar.ics", nil)
	req.SetPathValue("id", fmt.Sprintf("%d", f.team.ID))
	req = testutil.WithUser(req, outsider)
	recorder = httptest.NewRecorder()
	f.handler.HandleCalendarFeed(recorder, req)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for outsider, got %d", recorder.Code)
	}
}

func TestSchedulePageEscapesContent(t *testing.T) {
	f := newScheduleFixture(t)
	decodeCreate(t, f.createEvent(t, f.coach, `{"eventType": "game", "title": "<script>x</script>", "eventDate": "2024-02-02", "startTime": "19:00"}`))

	req := httptest.NewRequest(http.MethodGet, "/teams/x/schedule", nil)
	req.SetPathValue("id", fmt.Sprintf("%d", f.team.ID))
	req = testutil.WithUser(req, f.coach)
	recorder := httptest.NewRecorder()
	f.handler.HandleSchedulePage(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	body := recorder.Body.String()
	if strings.Contains(body, "<script>") {
		t.Fatalf("expected title to be escaped:\n%s", body)
	}
	feedLink := fmt.Sprintf(`href="/api/v1/teams/%d/calendar.ics"`, f.team.ID)
	for _, want := range []string{"Varsity Girls", "&lt;script&gt;", "Fri Feb 2, 2024", "19:00", feedLink} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in page", want)
		}
	}
}
