package calendar

import (
	"context"
	"errors"

	"github.com/klokku/scheduler/pkg/schedule"
)

var ErrScheduleNotFound = errors.New("schedule not found")
var ErrScheduleConflict = errors.New("schedule conflicts with existing schedules")

// Calendar is the schedule book as seen by other components.
type Calendar interface {
	AddSchedule(ctx context.Context, s schedule.Schedule) (Saved, error)
	ModifySchedule(ctx context.Context, s schedule.Schedule) (Saved, error)
	DeleteSchedule(ctx context.Context, id string) error
	GetSchedule(ctx context.Context, id string) (schedule.Schedule, error)
	ListSchedules(ctx context.Context) ([]schedule.Schedule, error)
	GetOccurrences(ctx context.Context, from, to schedule.Date) ([]schedule.Schedule, error)
	GetUpcoming(ctx context.Context, days int) ([]schedule.Schedule, error)
	CheckConflicts(ctx context.Context, candidate schedule.Schedule) (Conflicts, error)
}

type Config struct {
	// RejectConflicts makes AddSchedule and ModifySchedule fail with
	// ErrScheduleConflict instead of saving and reporting the conflicts.
	RejectConflicts bool
}

// Conflicts is the outcome of a conflict check.
type Conflicts struct {
	Schedules []schedule.Schedule
	Message   string
}

func (c Conflicts) Any() bool {
	return len(c.Schedules) > 0
}

// Saved is a stored schedule together with the conflicts found when saving it.
type Saved struct {
	Schedule  schedule.Schedule
	Conflicts Conflicts
}
