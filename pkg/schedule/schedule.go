package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"
)

var ErrUnknownFrequency = errors.New("unknown frequency")
var ErrInvalidSchedule = errors.New("invalid schedule")

type Frequency int

const (
	Daily Frequency = iota + 1
	Weekly
	Monthly
	Yearly
)

func ParseFrequency(s string) (Frequency, error) {
	switch s {
	case "daily":
		return Daily, nil
	case "weekly":
		return Weekly, nil
	case "monthly":
		return Monthly, nil
	case "yearly":
		return Yearly, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFrequency, s)
}

func (f Frequency) String() string {
	switch f {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Yearly:
		return "yearly"
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (f Frequency) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFrequency, int(f))
	}
	return []byte(f.String()), nil
}

func (f *Frequency) UnmarshalText(text []byte) error {
	parsed, err := ParseFrequency(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

type RecurrenceRule struct {
	Frequency Frequency
	// Interval is the step count in units of Frequency, at least 1.
	Interval int
	// EndDate is the inclusive last date a series may produce.
	EndDate mo.Option[Date]
	// DaysOfWeek restricts weekly rules to the given weekdays. Empty means no filter.
	DaysOfWeek []time.Weekday
}

// Valid reports whether the rule can drive an expansion.
func (r RecurrenceRule) Valid() bool {
	if !r.Frequency.Valid() || r.Interval < 1 {
		return false
	}
	for _, d := range r.DaysOfWeek {
		if d < time.Sunday || d > time.Saturday {
			return false
		}
	}
	return true
}

// FiltersWeekdays reports whether occurrences are restricted to DaysOfWeek.
func (r RecurrenceRule) FiltersWeekdays() bool {
	return r.Frequency == Weekly && len(r.DaysOfWeek) > 0
}

func (r RecurrenceRule) HasWeekday(day time.Weekday) bool {
	for _, d := range r.DaysOfWeek {
		if d == day {
			return true
		}
	}
	return false
}

// Schedule is a single event, possibly recurring. Expanded occurrences of a
// recurring schedule are Schedules too and keep the series ID.
type Schedule struct {
	ID          string
	Title       string
	Description string
	Location    string
	ClientID    string
	ClientName  string
	ProjectName string

	StartDate Date
	// EndDate is inclusive; absent means the schedule ends on StartDate.
	EndDate mo.Option[Date]
	AllDay  bool
	// StartTime and EndTime are "HH:MM" wall clock times, ignored when AllDay.
	StartTime string
	EndTime   string

	IsRecurring    bool
	RecurrenceRule mo.Option[RecurrenceRule]
}

// LastDate returns the inclusive last day of the schedule.
func (s Schedule) LastDate() Date {
	return s.EndDate.OrElse(s.StartDate)
}

// Rule returns the recurrence rule when the schedule is recurring and its
// rule is usable. Anything else behaves as a one-off schedule.
func (s Schedule) Rule() (RecurrenceRule, bool) {
	if !s.IsRecurring {
		return RecurrenceRule{}, false
	}
	rule, ok := s.RecurrenceRule.Get()
	if !ok || !rule.Valid() {
		return RecurrenceRule{}, false
	}
	return rule, true
}

// DurationDays is the number of days between StartDate and EndDate, zero
// when EndDate is absent.
func (s Schedule) DurationDays() int {
	end, ok := s.EndDate.Get()
	if !ok {
		return 0
	}
	return s.StartDate.DaysUntil(end)
}

// Validate checks the invariants a stored schedule must satisfy.
func (s Schedule) Validate() error {
	if s.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidSchedule)
	}
	if s.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidSchedule)
	}
	if end, ok := s.EndDate.Get(); ok && end.Before(s.StartDate) {
		return fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidSchedule, end, s.StartDate)
	}
	if !s.AllDay {
		if s.StartTime != "" {
			if _, ok := ParseClock(s.StartTime); !ok {
				return fmt.Errorf("%w: start time %q must be in HH:MM format", ErrInvalidSchedule, s.StartTime)
			}
		}
		if s.EndTime != "" {
			if _, ok := ParseClock(s.EndTime); !ok {
				return fmt.Errorf("%w: end time %q must be in HH:MM format", ErrInvalidSchedule, s.EndTime)
			}
		}
	}
	if s.IsRecurring {
		rule, ok := s.RecurrenceRule.Get()
		if !ok {
			return fmt.Errorf("%w: recurring schedule requires a recurrence rule", ErrInvalidSchedule)
		}
		if !rule.Valid() {
			return fmt.Errorf("%w: recurrence rule needs a known frequency, an interval of at least 1 and weekdays 0-6", ErrInvalidSchedule)
		}
		if end, ok := rule.EndDate.Get(); ok && end.Before(s.StartDate) {
			return fmt.Errorf("%w: recurrence end date %s is before start date %s", ErrInvalidSchedule, end, s.StartDate)
		}
	}
	return nil
}
