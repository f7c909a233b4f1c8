package conflict

import (
	"testing"
	"time"

	"github.com/klokku/scheduler/pkg/recurrence"
	"github.com/klokku/scheduler/pkg/schedule"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weeklyOnMondays(id, start, from, to string) schedule.Schedule {
	s := timed(id, start, from, to)
	s.IsRecurring = true
	s.RecurrenceRule = mo.Some(schedule.RecurrenceRule{
		Frequency:  schedule.Weekly,
		Interval:   1,
		DaysOfWeek: []time.Weekday{time.Monday},
	})
	return s
}

func ids(schedules []schedule.Schedule) []string {
	out := make([]string, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, s.ID)
	}
	return out
}

func TestDetector_ExpansionWindow(t *testing.T) {
	detector := DefaultDetector

	t.Run("one year after start without rule end", func(t *testing.T) {
		from, to := detector.ExpansionWindow(weeklyOnMondays("w", "2025-06-02", "09:00", "10:00"))
		assert.Equal(t, "2025-06-02", from.String())
		assert.Equal(t, "2026-06-02", to.String())
	})

	t.Run("rule end date when present", func(t *testing.T) {
		s := weeklyOnMondays("w", "2025-06-02", "09:00", "10:00")
		rule := s.RecurrenceRule.MustGet()
		rule.EndDate = mo.Some(schedule.NewDate(2025, 9, 30))
		s.RecurrenceRule = mo.Some(rule)

		from, to := detector.ExpansionWindow(s)
		assert.Equal(t, "2025-06-02", from.String())
		assert.Equal(t, "2025-09-30", to.String())
	})

	t.Run("configured lookahead", func(t *testing.T) {
		from, to := NewDetector(recurrence.DefaultEngine, Config{LookaheadYears: 3}).
			ExpansionWindow(timed("x", "2025-01-01", "", ""))
		assert.Equal(t, "2025-01-01", from.String())
		assert.Equal(t, "2028-01-01", to.String())
	})

	t.Run("invalid lookahead falls back to one year", func(t *testing.T) {
		_, to := NewDetector(recurrence.DefaultEngine, Config{LookaheadYears: 0}).
			ExpansionWindow(timed("x", "2025-01-01", "", ""))
		assert.Equal(t, "2026-01-01", to.String())
	})
}

func TestDetectConflicts_WeeklyMeetingAgainstOneOff(t *testing.T) {
	// given
	candidate := weeklyOnMondays("weekly-meeting", "2025-06-02", "09:00", "10:00")
	oneOff := timed("one-off", "2025-06-16", "09:30", "09:45")
	unrelated := timed("unrelated", "2025-06-17", "09:30", "09:45")

	// when
	conflicts := DetectConflicts(candidate, []schedule.Schedule{unrelated, oneOff})

	// then
	require.Len(t, conflicts, 1)
	assert.Equal(t, oneOff, conflicts[0])
}

func TestDetectConflicts_NeverWithItself(t *testing.T) {
	s := timed("self", "2025-01-01", "09:00", "10:00")
	s.EndDate = mo.Some(schedule.NewDate(2025, 1, 3))
	s.IsRecurring = true
	s.RecurrenceRule = mo.Some(schedule.RecurrenceRule{Frequency: schedule.Daily, Interval: 1})

	conflicts := DetectConflicts(s, []schedule.Schedule{s})

	assert.Empty(t, conflicts)
}

func TestDetectConflicts_ReturnsOriginalSeries(t *testing.T) {
	candidate := timed("candidate", "2025-03-10", "10:00", "11:00")
	series := weeklyOnMondays("series", "2025-01-06", "10:30", "11:30")

	conflicts := DetectConflicts(candidate, []schedule.Schedule{series})

	require.Len(t, conflicts, 1)
	assert.Equal(t, series, conflicts[0], "the series record is returned, not the 2025-03-10 occurrence")
}

func TestDetectConflicts_TwoSeries(t *testing.T) {
	candidate := timed("tuesdays", "2025-01-07", "10:00", "11:00")
	candidate.IsRecurring = true
	candidate.RecurrenceRule = mo.Some(schedule.RecurrenceRule{Frequency: schedule.Weekly, Interval: 1})

	shortDaily := timed("short-daily", "2025-01-01", "10:30", "11:00")
	shortDaily.IsRecurring = true
	shortDaily.RecurrenceRule = mo.Some(schedule.RecurrenceRule{
		Frequency: schedule.Daily,
		Interval:  1,
		EndDate:   mo.Some(schedule.NewDate(2025, 1, 5)),
	})

	longerDaily := shortDaily
	longerDaily.ID = "longer-daily"
	longerDaily.RecurrenceRule = mo.Some(schedule.RecurrenceRule{
		Frequency: schedule.Daily,
		Interval:  1,
		EndDate:   mo.Some(schedule.NewDate(2025, 1, 10)),
	})

	conflicts := DetectConflicts(candidate, []schedule.Schedule{shortDaily, longerDaily})

	assert.Equal(t, []string{"longer-daily"}, ids(conflicts))
}

func TestDetectConflicts_DeduplicatesAndKeepsOrder(t *testing.T) {
	candidate := allDay("candidate", "2025-04-01")
	first := timed("b", "2025-04-01", "08:00", "09:00")
	duplicate := timed("b", "2025-04-01", "12:00", "13:00")
	second := timed("a", "2025-04-01", "15:00", "16:00")
	noConflict := timed("c", "2025-04-02", "15:00", "16:00")

	conflicts := DetectConflicts(candidate, []schedule.Schedule{first, noConflict, duplicate, second})

	assert.Equal(t, []string{"b", "a"}, ids(conflicts))
	assert.Equal(t, first, conflicts[0])
}

func TestDetectConflicts_NoExisting(t *testing.T) {
	conflicts := DetectConflicts(allDay("candidate", "2025-04-01"), nil)
	assert.NotNil(t, conflicts)
	assert.Empty(t, conflicts)
}

func TestDetectConflicts_LookaheadBoundsOpenEndedSeries(t *testing.T) {
	candidate := weeklyOnMondays("weekly-meeting", "2025-06-02", "09:00", "10:00")
	farAway := timed("far-away", "2026-06-08", "09:00", "10:00")

	t.Run("beyond the default year", func(t *testing.T) {
		assert.Empty(t, DetectConflicts(candidate, []schedule.Schedule{farAway}))
	})

	t.Run("within a longer lookahead", func(t *testing.T) {
		detector := NewDetector(recurrence.DefaultEngine, Config{LookaheadYears: 2})
		assert.Equal(t, []string{"far-away"}, ids(detector.DetectConflicts(candidate, []schedule.Schedule{farAway})))
	})

	t.Run("existing series only expanded over its own window", func(t *testing.T) {
		oldSeries := weeklyOnMondays("old-series", "2024-01-01", "09:00", "10:00")
		oneOff := timed("one-off", "2025-03-03", "09:30", "10:30")
		assert.Empty(t, DetectConflicts(oneOff, []schedule.Schedule{oldSeries}))
	})
}
