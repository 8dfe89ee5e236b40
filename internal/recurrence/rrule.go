package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

var rruleWeekdays = [7]rrule.Weekday{
	rrule.SU,
	rrule.MO,
	rrule.TU,
	rrule.WE,
	rrule.TH,
	rrule.FR,
	rrule.SA,
}

// maxRuleMonthDay is the last day of month every month has. RRULE skips
// months missing DTSTART's day where Generate overflows into the next one.
const maxRuleMonthDay = 28

// RRule renders spec as an RFC 5545 RRULE value (without DTSTART) so clients
// can label a series. Occurrences are materialized by Generate, and the rule
// is only rendered when expanding it from parentDate yields exactly those
// dates. Otherwise, and for unknown kinds, it renders as "".
//
// WKST is pinned to the parent's weekday so each INTERVAL block of weeks
// starts where Generate's cursor does.
func RRule(parentDate time.Time, spec Spec, opts Options) (string, error) {
	if !spec.Kind.Known() {
		return "", nil
	}
	if spec.Interval <= 0 {
		return "", &InvalidSpecError{Reason: "interval must be a positive integer"}
	}

	start := civilDate(parentDate)
	option := rrule.ROption{
		Dtstart: start,
		Until:   civilDate(spec.EndDate),
		Wkst:    rruleWeekdays[start.Weekday()],
	}

	switch spec.Kind {
	case KindWeekly:
		option.Freq = rrule.WEEKLY
		option.Interval = spec.Interval
	case KindBiweekly:
		option.Freq = rrule.WEEKLY
		option.Interval = 2
		if opts.BiweeklyUsesInterval {
			option.Interval = 2 * spec.Interval
		}
	case KindMonthly:
		option.Freq = rrule.MONTHLY
		option.Interval = spec.Interval
		option.Wkst = rrule.MO
	}

	if spec.Kind == KindMonthly {
		if start.Day() > maxRuleMonthDay {
			return "", nil
		}
	} else {
		for _, weekday := range spec.Weekdays {
			if weekday < 0 || weekday > 6 {
				return "", &InvalidSpecError{Reason: fmt.Sprintf("weekday %d is outside 0-6", weekday)}
			}
			option.Byweekday = append(option.Byweekday, rruleWeekdays[weekday])
		}
		// A bare FREQ=WEEKLY repeats on DTSTART's weekday, but an empty
		// weekday set generates nothing.
		if len(option.Byweekday) == 0 {
			return "", nil
		}
	}

	rule, err := rrule.NewRRule(option)
	if err != nil {
		return "", fmt.Errorf("build rrule: %w", err)
	}
	return rule.OrigOptions.RRuleString(), nil
}
