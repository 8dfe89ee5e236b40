// Package recurrence expands a parent schedule event into the dated
// occurrences of its repeat pattern.
package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"
const ClockLayout = "15:04"

type Kind string

const (
	KindWeekly   Kind = "weekly"
	KindBiweekly Kind = "biweekly"
	KindMonthly  Kind = "monthly"
)

var ErrHorizonExceeded = errors.New("recurrence end date exceeds the allowed horizon")

// InvalidDateError reports a date or clock value that does not parse.
type InvalidDateError struct {
	Field  string
	Value  string
	Layout string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("%s must be a valid %s value, got %q", e.Field, layoutName(e.Layout), e.Value)
}

// InvalidSpecError reports a recurrence spec the generator cannot step through.
type InvalidSpecError struct {
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return "invalid recurrence: " + e.Reason
}

func layoutName(layout string) string {
	switch layout {
	case ClockLayout:
		return "HH:MM"
	default:
		return "YYYY-MM-DD"
	}
}

// Spec describes how a parent event repeats. Weekdays use 0 = Sunday.
type Spec struct {
	Kind     Kind
	Interval int
	EndDate  time.Time
	Weekdays []int
}

// Event is the generator's view of a persisted parent event. Dates are
// calendar dates; any time-of-day component is ignored.
type Event struct {
	ID          int64
	TeamID      int64
	EventType   string
	Title       string
	Description *string
	Date        time.Time
	EndDate     *time.Time
	StartTime   *string
	EndTime     *string
	Location    *string
	Opponent    *string
}

// Occurrence is one generated repetition, ready to insert.
type Occurrence struct {
	ParentEventID int64
	TeamID        int64
	EventType     string
	Title         string
	Description   *string
	Date          time.Time
	EndDate       *time.Time
	StartTime     *string
	EndTime       *string
	Location      *string
	Opponent      *string
}

// Options selects between behaviors the product has not pinned down.
type Options struct {
	// BiweeklyUsesInterval steps biweekly series by 14*Interval days instead
	// of a fixed 14.
	BiweeklyUsesInterval bool
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(field, raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, &InvalidDateError{Field: field, Value: raw, Layout: DateLayout}
	}
	return parsed, nil
}

// ParseClock parses a 24-hour HH:MM clock time and returns it normalized.
func ParseClock(field, raw string) (string, error) {
	value := strings.TrimSpace(raw)
	parsed, err := time.Parse(ClockLayout, value)
	if err != nil {
		return "", &InvalidDateError{Field: field, Value: raw, Layout: ClockLayout}
	}
	return parsed.Format(ClockLayout), nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseKind maps a wire value to a Kind. Unknown values are returned as-is
// so the generator can treat them as producing nothing.
func ParseKind(raw string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(raw)))
}

// Known reports whether k is a kind the generator expands.
func (k Kind) Known() bool {
	switch k {
	case KindWeekly, KindBiweekly, KindMonthly:
		return true
	default:
		return false
	}
}

// CheckHorizon rejects end dates more than maxDays after the parent date.
// A non-positive maxDays disables the check.
func CheckHorizon(parentDate, endDate time.Time, maxDays int) error {
	if maxDays <= 0 {
		return nil
	}
	limit := civilDate(parentDate).AddDate(0, 0, maxDays)
	if civilDate(endDate).After(limit) {
		return fmt.Errorf("%w (%d days)", ErrHorizonExceeded, maxDays)
	}
	return nil
}

// Generate expands parent according to spec. Occurrences fall strictly after
// the parent's date and on or before spec.EndDate, are unique by date, and
// are returned in chronological order. An unknown kind, an end date before
// the parent date, or an empty weekday set for weekly kinds yields no
// occurrences and no error.
func Generate(parent Event, spec Spec, opts Options) ([]Occurrence, error) {
	if parent.ID <= 0 {
		return nil, &InvalidSpecError{Reason: "parent event must be persisted first"}
	}
	if !spec.Kind.Known() {
		return nil, nil
	}
	if spec.Interval <= 0 {
		return nil, &InvalidSpecError{Reason: "interval must be a positive integer"}
	}
	for _, weekday := range spec.Weekdays {
		if weekday < 0 || weekday > 6 {
			return nil, &InvalidSpecError{Reason: fmt.Sprintf("weekday %d is outside 0-6", weekday)}
		}
	}

	start := civilDate(parent.Date)
	end := civilDate(spec.EndDate)
	if end.Before(start) {
		return nil, nil
	}

	var dates []time.Time
	switch spec.Kind {
	case KindWeekly:
		dates = projectWeekdays(start, end, spec.Weekdays, 7*spec.Interval)
	case KindBiweekly:
		step := 14
		if opts.BiweeklyUsesInterval {
			step = 14 * spec.Interval
		}
		dates = projectWeekdays(start, end, spec.Weekdays, step)
	case KindMonthly:
		dates = stepMonths(start, end, spec.Interval)
	}

	dates = uniqueSortedDates(dates)

	var span *int
	if parent.EndDate != nil {
		days := daysBetween(start, civilDate(*parent.EndDate))
		span = &days
	}

	occurrences := make([]Occurrence, 0, len(dates))
	for _, date := range dates {
		occurrence := Occurrence{
			ParentEventID: parent.ID,
			TeamID:        parent.TeamID,
			EventType:     parent.EventType,
			Title:         parent.Title,
			Description:   parent.Description,
			Date:          date,
			StartTime:     parent.StartTime,
			EndTime:       parent.EndTime,
			Location:      parent.Location,
			Opponent:      parent.Opponent,
		}
		if span != nil {
			endDate := date.AddDate(0, 0, *span)
			occurrence.EndDate = &endDate
		}
		occurrences = append(occurrences, occurrence)
	}
	return occurrences, nil
}

// projectWeekdays walks a cursor from start in stepDays increments and, at
// each position, projects forward to every target weekday within the next
// six days.
func projectWeekdays(start, end time.Time, weekdays []int, stepDays int) []time.Time {
	if len(weekdays) == 0 {
		return nil
	}
	var dates []time.Time
	for cursor := start; !cursor.After(end); cursor = cursor.AddDate(0, 0, stepDays) {
		for _, weekday := range weekdays {
			delta := (weekday - int(cursor.Weekday()) + 7) % 7
			candidate := cursor.AddDate(0, 0, delta)
			if candidate.After(start) && !candidate.After(end) {
				dates = append(dates, candidate)
			}
		}
	}
	return dates
}

// stepMonths returns start + k*interval months for k = 1, 2, ... up to end.
// Day overflow follows time.AddDate normalization (Jan 31 + 1 month lands in
// early March). Every candidate is offset from start, not from the previous
// candidate, so an overflow does not carry forward: Jan 31 yields Mar 2 and
// then Mar 31, not Apr 2.
func stepMonths(start, end time.Time, interval int) []time.Time {
	var dates []time.Time
	for k := 1; ; k++ {
		candidate := start.AddDate(0, k*interval, 0)
		if candidate.After(end) {
			break
		}
		if candidate.After(start) {
			dates = append(dates, candidate)
		}
	}
	return dates
}

func uniqueSortedDates(dates []time.Time) []time.Time {
	if len(dates) == 0 {
		return nil
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	unique := dates[:1]
	for _, date := range dates[1:] {
		if !date.Equal(unique[len(unique)-1]) {
			unique = append(unique, date)
		}
	}
	return unique
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
