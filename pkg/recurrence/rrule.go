package recurrence

import (
	"github.com/klokku/scheduler/pkg/schedule"
	"github.com/teambition/rrule-go"
)

var rruleWeekdays = [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// ToROption expresses rule, anchored at anchor, as an RFC 5545 recurrence.
// The week start is the anchor's weekday so that BYDAY periods line up with
// the seven-day periods Expand uses. Monthly rules anchored after the 28th
// are not representable exactly: RFC 5545 skips short months where Expand
// clamps to their last day.
func ToROption(rule schedule.RecurrenceRule, anchor schedule.Date) rrule.ROption {
	option := rrule.ROption{
		Freq:     rruleFrequency(rule.Frequency),
		Interval: rule.Interval,
		Dtstart:  anchor.Time(),
		Wkst:     rruleWeekdays[anchor.Weekday()],
	}
	if end, ok := rule.EndDate.Get(); ok {
		option.Until = end.Time()
	}
	if rule.FiltersWeekdays() {
		option.Byweekday = make([]rrule.Weekday, 0, len(rule.DaysOfWeek))
		for _, d := range rule.DaysOfWeek {
			option.Byweekday = append(option.Byweekday, rruleWeekdays[d])
		}
	}
	return option
}

func rruleFrequency(f schedule.Frequency) rrule.Frequency {
	switch f {
	case schedule.Daily:
		return rrule.DAILY
	case schedule.Weekly:
		return rrule.WEEKLY
	case schedule.Monthly:
		return rrule.MONTHLY
	case schedule.Yearly:
		return rrule.YEARLY
	}
	panic("recurrence: unhandled frequency " + f.String())
}
