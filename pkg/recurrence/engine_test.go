package recurrence

import (
	"testing"
	"time"

	"github.com/klokku/scheduler/pkg/schedule"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) schedule.Date {
	t.Helper()
	d, err := schedule.ParseDate(s)
	require.NoError(t, err)
	return d
}

func dates(occurrences []schedule.Schedule) []string {
	out := make([]string, 0, len(occurrences))
	for _, o := range occurrences {
		out = append(out, o.StartDate.String())
	}
	return out
}

func recurring(t *testing.T, start string, rule schedule.RecurrenceRule) schedule.Schedule {
	return schedule.Schedule{
		ID:             "series-1",
		Title:          "Recurring",
		StartDate:      date(t, start),
		IsRecurring:    true,
		RecurrenceRule: mo.Some(rule),
	}
}

func TestEngine_Expand_NonRecurringPassthrough(t *testing.T) {
	s := schedule.Schedule{ID: "one-off", Title: "Dentist", StartDate: date(t, "2025-03-01"), StartTime: "10:00"}

	// window does not even contain the schedule
	got := Expand(s, date(t, "2026-01-01"), date(t, "2026-01-31"))

	assert.Equal(t, []schedule.Schedule{s}, got)
}

func TestEngine_Expand_UnusableRuleFallsBackToSingleInstance(t *testing.T) {
	tests := []struct {
		name string
		s    schedule.Schedule
	}{
		{"recurring flag without rule", schedule.Schedule{ID: "a", StartDate: date(t, "2025-01-01"), IsRecurring: true}},
		{"zero interval", recurring(t, "2025-01-01", schedule.RecurrenceRule{Frequency: schedule.Daily, Interval: 0})},
		{"unknown frequency", recurring(t, "2025-01-01", schedule.RecurrenceRule{Frequency: schedule.Frequency(42), Interval: 1})},
		{"rule without recurring flag", schedule.Schedule{
			ID:             "b",
			StartDate:      date(t, "2025-01-01"),
			RecurrenceRule: mo.Some(schedule.RecurrenceRule{Frequency: schedule.Daily, Interval: 1}),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(tt.s, date(t, "2025-01-01"), date(t, "2025-01-31"))
			assert.Equal(t, []schedule.Schedule{tt.s}, got)
		})
	}
}

func TestEngine_Expand(t *testing.T) {
	tests := []struct {
		name  string
		start string
		rule  schedule.RecurrenceRule
		from  string
		to    string
		want  []string
	}{
		{
			name:  "daily window boundaries are inclusive",
			start: "2025-01-01",
			rule:  schedule.RecurrenceRule{Frequency: schedule.Daily, Interval: 1},
			from:  "2025-01-01",
			to:    "2025-01-03",
			want:  []string{"2025-01-01", "2025-01-02", "2025-01-03"},
		},
		{
			name:  "daily every third day",
			start: "2025-01-01",
			rule:  schedule.RecurrenceRule{Frequency: schedule.Daily, Interval: 3},
			from:  "2025-01-01",
			to:    "2025-01-12",
			want:  []string{"2025-01-01", "2025-01-04", "2025-01-07", "2025-01-10"},
		},
		{
			name:  "weekly every two weeks",
			start: "2025-01-05",
			rule:  schedule.RecurrenceRule{Frequency: schedule.Weekly, Interval: 2},
			from:  "2025-01-01",
			to:    "2025-02-28",
			want:  []string{"2025-01-05", "2025-01-19", "2025-02-02", "2025-02-16"},
		},
		{
			name:  "weekly on Monday and Wednesday",
			start: "2025-01-06",
			rule:  schedule.RecurrenceRule{Frequency: schedule.Weekly, Interval: 1, DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday}},
			from:  "2025-01-06",
			to:    "2025-01-19",
			want:  []string{"2025-01-06", "2025-01-08", "2025-01-13", "2025-01-15"},
		},
		{
			name:  "biweekly weekday filter skips the off week",
			start: "2025-01-06",
			rule:  schedule.RecurrenceRule{Frequency: schedule.Weekly, Interval: 2, DaysOfWeek: []time.Weekday{time.Friday, time.Monday}},
			from:  "2025-01-01",
			to:    "2025-02-02",
			want:  []string{"2025-01-06", "2025-01-10", "2025-01-20", "2025-01-24"},
		},
		{
			name:  "weekday filter that excludes the anchor weekday",
			start: "2025-01-06",
			rule:  schedule.RecurrenceRule{Frequency: schedule.Weekly, Interval: 1, DaysOfWeek: []time.Weekday{time.Sunday}},
			from:  "2025-01-01",
			to:    "2025-01-26",
			want:  []string{"2025-01-12", "2025-01-19", "2025-01-26"},
		},
		{
			name:  "empty weekday set means no filter",
			start: "2025-01-06",
			rule:  schedule.RecurrenceRule{Frequency: schedule.Weekly, Interval: 1, DaysOfWeek: []time.Weekday{}},
			from:  "2025-01-01",
			to:    "2025-01-20",
			want:  []string{"2025-01-06", "2025-01-13", "2025-01-20"},
		},
		{
			name:  "weekday set is ignored for non weekly frequencies",
			start: "2025-01-06",
			rule:  schedule.RecurrenceRule{Frequency: schedule.Daily, Interval: 1, DaysOfWeek: []time.Weekday{time.Sunday}},
			from:  "2025-01-06",
			to:    "2025-01-08",
			want:  []string{"2025-01-06", "2025-01-07", "2025-01-08"},
		},
		{
			name:  "monthly on the 31st clamps to month end",
			start: "2025-01-31",
			rule:  schedule.RecurrenceRule{Frequency: schedule.Monthly, Interval: 1},
			from:  "2025-01-01",
			to:    "2025-06-30",
			want:  []string{"2025-01-31", "2025-02-28", "2025-03-31", "2025-04-30", "2025-05-31", "2025-06-30"},
		},
		{
			name:  "quarterly",
			start: "2025-01-15",
			rule:  schedule.RecurrenceRule{Frequency: schedule.Monthly, Interval: 3},
			from:  "2025-01-01",
			to:    "2025-12-31",
			want:  []string{"2025-01-15", "2025-04-15", "2025-07-15", "2025-10-15"},
		},
		{
			name:  "yearly on leap day",
			start: "2024-02-29",
			rule:  schedule.RecurrenceRule{Frequency: schedule.Yearly, Interval: 1},
			from:  "2024-01-01",
			to:    "2028-12-31",
			want:  []string{"2024-02-29", "2025-02-28", "2026-02-28", "2027-02-28", "2028-02-29"},
		},
		{
			name:  "window starting after the anchor",
			start: "2025-01-01",
			rule:  schedule.RecurrenceRule{Frequency: schedule.Daily, Interval: 1},
			from:  "2025-01-10",
			to:    "2025-01-12",
			want:  []string{"2025-01-10", "2025-01-11", "2025-01-12"},
		},
		{
			name:  "window ending before the anchor",
			start: "2025-02-01",
			rule:  schedule.RecurrenceRule{Frequency: schedule.Daily, Interval: 1},
			from:  "2025-01-01",
			to:    "2025-01-31",
			want:  []string{},
		},
		{
			name:  "rule end date clamps a wider window",
			start: "2025-01-01",
			rule:  schedule.RecurrenceRule{Frequency: schedule.Weekly, Interval: 1, EndDate: mo.Some(schedule.NewDate(2025, 1, 10))},
			from:  "2025-01-01",
			to:    "2025-03-01",
			want:  []string{"2025-01-01", "2025-01-08"},
		},
		{
			name:  "rule end date before window start",
			start: "2025-01-01",
			rule:  schedule.RecurrenceRule{Frequency: schedule.Daily, Interval: 1, EndDate: mo.Some(schedule.NewDate(2025, 1, 10))},
			from:  "2025-02-01",
			to:    "2025-03-01",
			want:  []string{},
		},
		{
			name:  "rule end date is inclusive",
			start: "2025-01-01",
			rule:  schedule.RecurrenceRule{Frequency: schedule.Daily, Interval: 1, EndDate: mo.Some(schedule.NewDate(2025, 1, 3))},
			from:  "2025-01-01",
			to:    "2025-01-31",
			want:  []string{"2025-01-01", "2025-01-02", "2025-01-03"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := recurring(t, tt.start, tt.rule)

			got := Expand(s, date(t, tt.from), date(t, tt.to))

			assert.Equal(t, tt.want, dates(got))
			for _, occurrence := range got {
				assert.False(t, occurrence.StartDate.Before(s.StartDate), "occurrence before anchor")
			}
			for i := 1; i < len(got); i++ {
				assert.False(t, got[i].StartDate.Before(got[i-1].StartDate), "occurrences out of order")
			}
		})
	}
}

func TestEngine_Expand_CopiesSeriesFields(t *testing.T) {
	s := schedule.Schedule{
		ID:          "standup",
		Title:       "Standup",
		Description: "daily sync",
		Location:    "Room 1",
		ClientID:    "c-1",
		ClientName:  "ACME",
		ProjectName: "Rollout",
		StartDate:   date(t, "2025-01-01"),
		StartTime:   "09:00",
		EndTime:     "09:15",
		IsRecurring: true,
		RecurrenceRule: mo.Some(schedule.RecurrenceRule{
			Frequency: schedule.Daily,
			Interval:  1,
		}),
	}

	got := Expand(s, date(t, "2025-01-01"), date(t, "2025-01-02"))

	require.Len(t, got, 2)
	second := got[1]
	assert.Equal(t, date(t, "2025-01-02"), second.StartDate)
	second.StartDate = s.StartDate
	assert.Equal(t, s, second)
	assert.False(t, second.EndDate.IsPresent())
}

func TestEngine_Expand_PreservesDuration(t *testing.T) {
	s := recurring(t, "2025-01-01", schedule.RecurrenceRule{Frequency: schedule.Daily, Interval: 1})
	s.EndDate = mo.Some(date(t, "2025-01-02"))

	got := Expand(s, date(t, "2025-01-01"), date(t, "2025-01-10"))

	require.Len(t, got, 10)
	for _, occurrence := range got {
		end, ok := occurrence.EndDate.Get()
		require.True(t, ok)
		assert.Equal(t, occurrence.StartDate.AddDays(1), end)
	}
	// the series itself is untouched
	assert.Equal(t, date(t, "2025-01-01"), s.StartDate)
	assert.Equal(t, mo.Some(date(t, "2025-01-02")), s.EndDate)
}

func TestEngine_Expand_Idempotent(t *testing.T) {
	s := recurring(t, "2025-01-06", schedule.RecurrenceRule{
		Frequency:  schedule.Weekly,
		Interval:   1,
		DaysOfWeek: []time.Weekday{time.Monday, time.Thursday},
	})
	from, to := date(t, "2025-01-01"), date(t, "2025-06-30")

	first := Expand(s, from, to)
	second := Expand(s, from, to)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestEngine_Expand_MaxIterations(t *testing.T) {
	engine := NewEngine(Config{MaxIterations: 3})
	s := recurring(t, "2025-01-01", schedule.RecurrenceRule{Frequency: schedule.Daily, Interval: 1})

	got := engine.Expand(s, date(t, "2025-01-01"), date(t, "2025-01-31"))

	assert.Equal(t, []string{"2025-01-01", "2025-01-02", "2025-01-03"}, dates(got))
}

func TestEngine_Expand_LongSeriesTerminates(t *testing.T) {
	s := recurring(t, "1990-01-01", schedule.RecurrenceRule{
		Frequency:  schedule.Weekly,
		Interval:   1,
		DaysOfWeek: []time.Weekday{time.Saturday},
	})

	got := Expand(s, date(t, "2025-01-01"), date(t, "2025-01-31"))

	assert.Equal(t, []string{"2025-01-04", "2025-01-11", "2025-01-18", "2025-01-25"}, dates(got))
}

func TestEngine_Expand_FourCenturyWindow(t *testing.T) {
	s := recurring(t, "1800-01-01", schedule.RecurrenceRule{Frequency: schedule.Weekly, Interval: 1})

	got := Expand(s, date(t, "1800-01-01"), date(t, "2200-01-01"))

	// 400 Gregorian years are exactly 20871 weeks
	require.Len(t, got, 20872)
	assert.Equal(t, date(t, "1800-01-01"), got[0].StartDate)
	assert.Equal(t, date(t, "2200-01-01"), got[len(got)-1].StartDate)
}

func TestEngine_Expand_DistantAnchorStartsNearWindow(t *testing.T) {
	engine := NewEngine(Config{MaxIterations: 20})
	s := recurring(t, "0001-01-01", schedule.RecurrenceRule{Frequency: schedule.Daily, Interval: 1})

	got := engine.Expand(s, date(t, "2025-01-01"), date(t, "2025-01-05"))

	assert.Equal(t, []string{"2025-01-01", "2025-01-02", "2025-01-03", "2025-01-04", "2025-01-05"}, dates(got))
}

func TestEngine_Expand_DistantMonthlyAnchorKeepsClamping(t *testing.T) {
	s := recurring(t, "1900-01-31", schedule.RecurrenceRule{Frequency: schedule.Monthly, Interval: 1})

	got := Expand(s, date(t, "2025-02-01"), date(t, "2025-04-30"))

	assert.Equal(t, []string{"2025-02-28", "2025-03-31", "2025-04-30"}, dates(got))
}

func TestEngine_Expand_DistantWeeklyFilterAtWindowStart(t *testing.T) {
	// 2000-01-03 is a Monday, the period holding 2025-01-01 starts 2024-12-30
	s := recurring(t, "2000-01-03", schedule.RecurrenceRule{
		Frequency:  schedule.Weekly,
		Interval:   1,
		DaysOfWeek: []time.Weekday{time.Wednesday, time.Sunday},
	})

	got := Expand(s, date(t, "2025-01-01"), date(t, "2025-01-08"))

	assert.Equal(t, []string{"2025-01-01", "2025-01-05", "2025-01-08"}, dates(got))
}

func TestEngine_ExpandForRange(t *testing.T) {
	from, to := date(t, "2025-01-01"), date(t, "2025-01-31")
	inside := schedule.Schedule{ID: "inside", StartDate: date(t, "2025-01-15")}
	onStart := schedule.Schedule{ID: "on-start", StartDate: date(t, "2025-01-01")}
	onEnd := schedule.Schedule{ID: "on-end", StartDate: date(t, "2025-01-31")}
	before := schedule.Schedule{ID: "before", StartDate: date(t, "2024-12-31")}
	after := schedule.Schedule{ID: "after", StartDate: date(t, "2025-02-01")}
	brokenSeries := schedule.Schedule{ID: "broken", StartDate: date(t, "2025-03-01"), IsRecurring: true}
	weekly := recurring(t, "2025-01-06", schedule.RecurrenceRule{Frequency: schedule.Weekly, Interval: 2})
	weekly.ID = "weekly"

	got := ExpandForRange([]schedule.Schedule{after, weekly, inside, before, onEnd, brokenSeries, onStart}, from, to)

	ids := make([]string, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.ID+"@"+s.StartDate.String())
	}
	assert.Equal(t, []string{
		"weekly@2025-01-06",
		"weekly@2025-01-20",
		"inside@2025-01-15",
		"on-end@2025-01-31",
		"on-start@2025-01-01",
	}, ids)
}

func TestEngine_ExpandForRange_Empty(t *testing.T) {
	got := ExpandForRange(nil, date(t, "2025-01-01"), date(t, "2025-01-31"))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestNext(t *testing.T) {
	tests := []struct {
		name      string
		from      string
		frequency schedule.Frequency
		interval  int
		want      string
	}{
		{"daily", "2025-12-31", schedule.Daily, 1, "2026-01-01"},
		{"weekly", "2025-01-05", schedule.Weekly, 2, "2025-01-19"},
		{"monthly clamps", "2025-01-31", schedule.Monthly, 1, "2025-02-28"},
		{"yearly clamps", "2024-02-29", schedule.Yearly, 1, "2025-02-28"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Next(date(t, tt.from), tt.frequency, tt.interval).String())
		})
	}

	assert.Panics(t, func() { Next(date(t, "2025-01-01"), schedule.Frequency(0), 1) })
}
