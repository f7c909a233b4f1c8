package conflict

import (
	"fmt"
	"strings"

	"github.com/klokku/scheduler/pkg/schedule"
)

// Overlaps reports whether two occurrences collide. Occurrences sharing an
// ID never overlap. Date spans are compared inclusively; an all-day side, or
// a side without a parsable start time, overlaps on any shared day. Two timed
// occurrences only overlap when they start on the same day and their
// [start, end) minute ranges intersect.
func Overlaps(a, b schedule.Schedule) bool {
	if a.ID == b.ID {
		return false
	}
	if a.LastDate().Before(b.StartDate) || b.LastDate().Before(a.StartDate) {
		return false
	}
	if a.AllDay || b.AllDay {
		return true
	}

	aStart, aEnd, aTimed := minutes(a)
	bStart, bEnd, bTimed := minutes(b)
	if !aTimed || !bTimed {
		return true
	}
	if !a.StartDate.Equal(b.StartDate) {
		return false
	}
	return !(aEnd <= bStart || bEnd <= aStart)
}

// minutes returns the minute-of-day range of s. An unparsable end time
// collapses the range to its start.
func minutes(s schedule.Schedule) (start, end int, ok bool) {
	start, ok = schedule.ParseClock(s.StartTime)
	if !ok {
		return 0, 0, false
	}
	end, endOk := schedule.ParseClock(s.EndTime)
	if !endOk {
		end = start
	}
	return start, end, true
}

// FormatConflictMessage summarizes conflicts in a single line, or returns an
// empty string when there are none.
func FormatConflictMessage(conflicts []schedule.Schedule) string {
	if len(conflicts) == 0 {
		return ""
	}
	noun := "schedules"
	if len(conflicts) == 1 {
		noun = "schedule"
	}
	parts := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		parts = append(parts, fmt.Sprintf("%q (%s)", c.Title, describeWhen(c)))
	}
	return fmt.Sprintf("Conflicts with %d %s: %s", len(conflicts), noun, strings.Join(parts, ", "))
}

func describeWhen(s schedule.Schedule) string {
	when := s.StartDate.String()
	if last := s.LastDate(); !last.Equal(s.StartDate) {
		when += " to " + last.String()
	}
	switch start, end, timed := minutes(s); {
	case s.AllDay:
		when += ", all day"
	case timed && end > start:
		when += fmt.Sprintf(" %s-%s", s.StartTime, s.EndTime)
	case timed:
		when += " " + s.StartTime
	}
	if rule, ok := s.Rule(); ok {
		when += ", " + describeRule(rule)
	}
	return when
}

func describeRule(rule schedule.RecurrenceRule) string {
	if rule.Interval == 1 {
		return "repeats " + rule.Frequency.String()
	}
	return fmt.Sprintf("repeats every %d %s", rule.Interval, unit(rule.Frequency))
}

func unit(f schedule.Frequency) string {
	switch f {
	case schedule.Daily:
		return "days"
	case schedule.Weekly:
		return "weeks"
	case schedule.Monthly:
		return "months"
	case schedule.Yearly:
		return "years"
	}
	panic("conflict: unhandled frequency " + f.String())
}
