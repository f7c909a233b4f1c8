package recurrence

import (
	"fmt"

	"github.com/klokku/scheduler/pkg/schedule"
	"github.com/samber/mo"
	log "github.com/sirupsen/logrus"
)

// Engine expands recurring schedules into concrete occurrences. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	config Config
}

// Expand returns the occurrences of s that fall inside the inclusive window
// [from, to], in chronological order. A schedule without a usable recurrence
// rule is returned as the only element, without any window filtering.
func (e *Engine) Expand(s schedule.Schedule, from, to schedule.Date) []schedule.Schedule {
	rule, ok := s.Rule()
	if !ok {
		return []schedule.Schedule{s}
	}

	anchor := s.StartDate
	upper := to
	if end, ok := rule.EndDate.Get(); ok {
		upper = schedule.MinDate(end, to)
	}
	if upper.Before(anchor) || upper.Before(from) {
		return nil
	}

	// Periods before first end before from. The weekday filter reaches six
	// days past the stepped date.
	first := max(0, (anchor.DaysUntil(from)-6)/maxStepDays(rule))
	limit := anchor.DaysUntil(upper)/minStepDays(rule) + 2
	capped := false
	if e.config.MaxIterations > 0 && first+e.config.MaxIterations < limit {
		limit = first + e.config.MaxIterations
		capped = true
	}

	var occurrences []schedule.Schedule
	for k := first; k < limit; k++ {
		stepped := advance(anchor, rule.Frequency, k*rule.Interval)
		if stepped.After(upper) {
			return occurrences
		}

		if !rule.FiltersWeekdays() {
			if !stepped.Before(from) {
				occurrences = append(occurrences, occurrenceOn(s, stepped))
			}
			continue
		}

		for i := 0; i < 7; i++ {
			day := stepped.AddDays(i)
			if day.After(upper) {
				break
			}
			if day.Before(from) || !rule.HasWeekday(day.Weekday()) {
				continue
			}
			occurrences = append(occurrences, occurrenceOn(s, day))
		}
	}

	if capped {
		log.Warnf("recurrence: expansion of schedule %s stopped after %d periods (window %s..%s)",
			s.ID, limit-first, from, to)
	}
	return occurrences
}

// ExpandForRange expands every schedule over [from, to]. Recurring schedules
// contribute their occurrences in the window, one-off schedules are kept when
// their start date lies in the window. Input order is preserved.
func (e *Engine) ExpandForRange(schedules []schedule.Schedule, from, to schedule.Date) []schedule.Schedule {
	result := make([]schedule.Schedule, 0, len(schedules))
	for _, s := range schedules {
		if _, ok := s.Rule(); ok {
			result = append(result, e.Expand(s, from, to)...)
			continue
		}
		if !s.StartDate.Before(from) && !s.StartDate.After(to) {
			result = append(result, s)
		}
	}
	return result
}

// Expand uses DefaultEngine.
func Expand(s schedule.Schedule, from, to schedule.Date) []schedule.Schedule {
	return DefaultEngine.Expand(s, from, to)
}

// ExpandForRange uses DefaultEngine.
func ExpandForRange(schedules []schedule.Schedule, from, to schedule.Date) []schedule.Schedule {
	return DefaultEngine.ExpandForRange(schedules, from, to)
}

// Next returns the date one step of interval units of frequency after d.
// Month and year steps clamp to the last day of a shorter target month.
func Next(d schedule.Date, frequency schedule.Frequency, interval int) schedule.Date {
	return advance(d, frequency, interval)
}

func advance(d schedule.Date, frequency schedule.Frequency, n int) schedule.Date {
	switch frequency {
	case schedule.Daily:
		return d.AddDays(n)
	case schedule.Weekly:
		return d.AddDays(7 * n)
	case schedule.Monthly:
		return d.AddMonths(n)
	case schedule.Yearly:
		return d.AddYears(n)
	}
	panic(fmt.Sprintf("recurrence: unhandled frequency %v", frequency))
}

// minStepDays is the shortest distance in days between two consecutive
// periods of the rule.
func minStepDays(rule schedule.RecurrenceRule) int {
	switch rule.Frequency {
	case schedule.Daily:
		return rule.Interval
	case schedule.Weekly:
		return 7 * rule.Interval
	case schedule.Monthly:
		return 28 * rule.Interval
	case schedule.Yearly:
		return 365 * rule.Interval
	}
	panic(fmt.Sprintf("recurrence: unhandled frequency %v", rule.Frequency))
}

// maxStepDays is the longest distance in days between two consecutive
// periods. Clamped month steps are never longer than a full month.
func maxStepDays(rule schedule.RecurrenceRule) int {
	switch rule.Frequency {
	case schedule.Daily:
		return rule.Interval
	case schedule.Weekly:
		return 7 * rule.Interval
	case schedule.Monthly:
		return 31 * rule.Interval
	case schedule.Yearly:
		return 366 * rule.Interval
	}
	panic(fmt.Sprintf("recurrence: unhandled frequency %v", rule.Frequency))
}

// occurrenceOn copies s onto day, keeping the original length in days.
func occurrenceOn(s schedule.Schedule, day schedule.Date) schedule.Schedule {
	occurrence := s
	occurrence.StartDate = day
	if _, ok := s.EndDate.Get(); ok {
		occurrence.EndDate = mo.Some(day.AddDays(s.DurationDays()))
	}
	return occurrence
}
