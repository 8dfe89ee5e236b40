package recurrence

import (
	"strings"
	"testing"
	"time"

	"github.com/teambition/rrule-go"
)

func TestRRule(t *testing.T) {
	parentDate := date(t, "2024-01-01")
	end := date(t, "2024-03-31")

	cases := []struct {
		name     string
		spec     Spec
		opts     Options
		contains []string
		excludes []string
	}{
		{
			name:     "weekly",
			spec:     Spec{Kind: KindWeekly, Interval: 1, EndDate: end, Weekdays: []int{1, 3}},
			contains: []string{"FREQ=WEEKLY", "BYDAY=MO,WE", "UNTIL=20240331T000000Z"},
		},
		{
			name:     "biweekly fixed",
			spec:     Spec{Kind: KindBiweekly, Interval: 3, EndDate: end, Weekdays: []int{0}},
			contains: []string{"FREQ=WEEKLY", "INTERVAL=2", "BYDAY=SU"},
		},
		{
			name:     "biweekly multiplied",
			spec:     Spec{Kind: KindBiweekly, Interval: 3, EndDate: end, Weekdays: []int{0}},
			opts:     Options{BiweeklyUsesInterval: true},
			contains: []string{"FREQ=WEEKLY", "INTERVAL=6"},
		},
		{
			name:     "monthly ignores weekdays",
			spec:     Spec{Kind: KindMonthly, Interval: 2, EndDate: end, Weekdays: []int{2}},
			contains: []string{"FREQ=MONTHLY", "INTERVAL=2"},
			excludes: []string{"BYDAY", "DTSTART"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RRule(parentDate, tc.spec, tc.opts)
			if err != nil {
				t.Fatalf("rrule: %v", err)
			}
			for _, want := range tc.contains {
				if !strings.Contains(got, want) {
					t.Fatalf("expected %q in %q", want, got)
				}
			}
			for _, unwanted := range tc.excludes {
				if strings.Contains(got, unwanted) {
					t.Fatalf("did not expect %q in %q", unwanted, got)
				}
			}
		})
	}
}

func TestRRuleUnknownKind(t *testing.T) {
	got, err := RRule(date(t, "2024-01-01"), Spec{Kind: "daily", Interval: 1, EndDate: date(t, "2024-02-01")}, Options{})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty rule, got %q", got)
	}
}

func TestRRuleExpandsToGeneratedDates(t *testing.T) {
	cases := []struct {
		name   string
		parent string
		end    string
		spec   Spec
		opts   Options
	}{
		{name: "weekly monday parent", parent: "2024-01-01", end: "2024-03-31", spec: Spec{Kind: KindWeekly, Interval: 1, Weekdays: []int{1, 3}}},
		{name: "weekly thursday parent", parent: "2024-01-04", end: "2024-03-31", spec: Spec{Kind: KindWeekly, Interval: 1, Weekdays: []int{1, 4}}},
		{name: "every third week from saturday", parent: "2024-01-06", end: "2024-06-30", spec: Spec{Kind: KindWeekly, Interval: 3, Weekdays: []int{0, 2, 6}}},
		{name: "biweekly thursday parent", parent: "2024-01-04", end: "2024-04-30", spec: Spec{Kind: KindBiweekly, Interval: 1, Weekdays: []int{1, 4}}},
		{name: "biweekly sunday parent", parent: "2024-01-07", end: "2024-04-30", spec: Spec{Kind: KindBiweekly, Interval: 5, Weekdays: []int{3, 5}}},
		{name: "biweekly multiplied", parent: "2024-01-03", end: "2024-12-31", spec: Spec{Kind: KindBiweekly, Interval: 2, Weekdays: []int{2, 3}}, opts: Options{BiweeklyUsesInterval: true}},
		{name: "monthly mid month", parent: "2024-01-15", end: "2024-12-31", spec: Spec{Kind: KindMonthly, Interval: 1}},
		{name: "monthly on the 28th", parent: "2024-01-28", end: "2025-03-31", spec: Spec{Kind: KindMonthly, Interval: 2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parent := date(t, tc.parent)
			spec := tc.spec
			spec.EndDate = date(t, tc.end)

			rule, err := RRule(parent, spec, tc.opts)
			if err != nil {
				t.Fatalf("rrule: %v", err)
			}
			if rule == "" {
				t.Fatalf("expected a rule for %+v", spec)
			}

			generated, err := Generate(Event{ID: 1, TeamID: 1, Title: "Practice", Date: parent}, spec, tc.opts)
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			want := make([]string, 0, len(generated))
			for _, occurrence := range generated {
				want = append(want, FormatDate(occurrence.Date))
			}

			got := expandRule(t, rule, parent, spec.EndDate)
			if strings.Join(got, ",") != strings.Join(want, ",") {
				t.Fatalf("rule %q expands to\n%v\nbut Generate produced\n%v", rule, got, want)
			}
		})
	}
}

func TestRRuleOmittedWhenItCannotMatch(t *testing.T) {
	cases := []struct {
		name   string
		parent string
		spec   Spec
	}{
		{name: "weekly without weekdays", parent: "2024-01-01", spec: Spec{Kind: KindWeekly, Interval: 1}},
		{name: "biweekly without weekdays", parent: "2024-01-04", spec: Spec{Kind: KindBiweekly, Interval: 1, Weekdays: []int{}}},
		{name: "monthly on the 31st", parent: "2024-01-31", spec: Spec{Kind: KindMonthly, Interval: 1}},
		{name: "monthly on the 29th", parent: "2024-01-29", spec: Spec{Kind: KindMonthly, Interval: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec := tc.spec
			spec.EndDate = date(t, "2024-12-31")
			rule, err := RRule(date(t, tc.parent), spec, Options{})
			if err != nil {
				t.Fatalf("rrule: %v", err)
			}
			if rule != "" {
				t.Fatalf("expected no rule, got %q", rule)
			}
		})
	}
}

// expandRule returns the rule's occurrences after parent through end.
func expandRule(t *testing.T, rule string, parent, end time.Time) []string {
	t.Helper()

	parsed, err := rrule.StrToRRule(rule)
	if err != nil {
		t.Fatalf("parse rule %q: %v", rule, err)
	}
	parsed.DTStart(parent)

	var dates []string
	for _, occurrence := range parsed.Between(parent, end, true) {
		if occurrence.After(parent) {
			dates = append(dates, FormatDate(occurrence))
		}
	}
	return dates
}
