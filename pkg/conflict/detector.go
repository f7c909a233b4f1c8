package conflict

import (
	"github.com/klokku/scheduler/pkg/recurrence"
	"github.com/klokku/scheduler/pkg/schedule"
)

// Config holds the conflict detector settings.
type Config struct {
	// LookaheadYears bounds how far a series without an end date is expanded
	// when it is compared against other schedules.
	LookaheadYears int
}

var DefaultConfig = Config{
	LookaheadYears: 1,
}

// DefaultDetector backs the package level DetectConflicts.
var DefaultDetector = NewDetector(recurrence.DefaultEngine, DefaultConfig)

type Detector struct {
	engine *recurrence.Engine
	config Config
}

func NewDetector(engine *recurrence.Engine, config Config) *Detector {
	if config.LookaheadYears < 1 {
		config.LookaheadYears = DefaultConfig.LookaheadYears
	}
	return &Detector{engine: engine, config: config}
}

// ExpansionWindow returns the window a schedule is expanded over for
// conflict checks: from its own start date to the rule's end date, or
// LookaheadYears after the start when the rule has no end.
func (d *Detector) ExpansionWindow(s schedule.Schedule) (from, to schedule.Date) {
	from = s.StartDate
	to = s.StartDate.AddYears(d.config.LookaheadYears)
	if rule, ok := s.RecurrenceRule.Get(); ok {
		if end, ok := rule.EndDate.Get(); ok {
			to = end
		}
	}
	return from, to
}

// DetectConflicts returns the existing schedules that have at least one
// occurrence overlapping an occurrence of candidate. The original series
// records are returned, once per ID, in the order they were first found.
func (d *Detector) DetectConflicts(candidate schedule.Schedule, existing []schedule.Schedule) []schedule.Schedule {
	candidateFrom, candidateTo := d.ExpansionWindow(candidate)
	candidateOccurrences := d.engine.Expand(candidate, candidateFrom, candidateTo)

	conflicts := make([]schedule.Schedule, 0)
	seen := make(map[string]struct{})
	for _, other := range existing {
		if other.ID == candidate.ID {
			continue
		}
		if _, ok := seen[other.ID]; ok {
			continue
		}

		otherFrom, otherTo := d.ExpansionWindow(other)
		otherOccurrences := d.engine.Expand(other, otherFrom, otherTo)
		if anyOverlap(candidateOccurrences, otherOccurrences) {
			seen[other.ID] = struct{}{}
			conflicts = append(conflicts, other)
		}
	}
	return conflicts
}

// DetectConflicts uses DefaultDetector.
func DetectConflicts(candidate schedule.Schedule, existing []schedule.Schedule) []schedule.Schedule {
	return DefaultDetector.DetectConflicts(candidate, existing)
}

func anyOverlap(left, right []schedule.Schedule) bool {
	for _, a := range left {
		for _, b := range right {
			if Overlaps(a, b) {
				return true
			}
		}
	}
	return false
}
