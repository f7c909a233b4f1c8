package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/klokku/scheduler/internal/event_bus"
	"github.com/klokku/scheduler/internal/utils"
	"github.com/klokku/scheduler/pkg/conflict"
	"github.com/klokku/scheduler/pkg/recurrence"
	"github.com/klokku/scheduler/pkg/schedule"
	"github.com/klokku/scheduler/pkg/user"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidRange = errors.New("invalid date range")

type Service struct {
	repo     Repository
	engine   *recurrence.Engine
	detector *conflict.Detector
	eventBus *event_bus.EventBus
	clock    utils.Clock
	config   Config
}

func NewService(
	repo Repository,
	engine *recurrence.Engine,
	detector *conflict.Detector,
	eventBus *event_bus.EventBus,
	clock utils.Clock,
	config Config,
) *Service {
	return &Service{
		repo:     repo,
		engine:   engine,
		detector: detector,
		eventBus: eventBus,
		clock:    clock,
		config:   config,
	}
}

func (s *Service) AddSchedule(ctx context.Context, sch schedule.Schedule) (Saved, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Saved{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := sch.Validate(); err != nil {
		return Saved{}, err
	}
	sch.ID = ""

	var saved Saved
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		conflicts, err := s.conflictsWithStored(ctx, repo, userId, sch)
		if err != nil {
			return err
		}
		if conflicts.Any() && s.config.RejectConflicts {
			return fmt.Errorf("%w: %s", ErrScheduleConflict, conflicts.Message)
		}
		id, err := repo.StoreSchedule(ctx, userId, sch)
		if err != nil {
			return fmt.Errorf("failed to store schedule: %w", err)
		}
		sch.ID = id
		saved = Saved{Schedule: sch, Conflicts: conflicts}
		return nil
	})
	if err != nil {
		return Saved{}, err
	}

	log.Debugf("schedule %s added for user %d with %d conflict(s)", saved.Schedule.ID, userId, len(saved.Conflicts.Schedules))
	s.publishSaved(ctx, userId, saved)
	return saved, nil
}

func (s *Service) ModifySchedule(ctx context.Context, sch schedule.Schedule) (Saved, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Saved{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := sch.Validate(); err != nil {
		return Saved{}, err
	}

	var saved Saved
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		if _, err := repo.GetSchedule(ctx, userId, sch.ID); err != nil {
			return err
		}
		conflicts, err := s.conflictsWithStored(ctx, repo, userId, sch)
		if err != nil {
			return err
		}
		if conflicts.Any() && s.config.RejectConflicts {
			return fmt.Errorf("%w: %s", ErrScheduleConflict, conflicts.Message)
		}
		if err := repo.UpdateSchedule(ctx, userId, sch); err != nil {
			return err
		}
		saved = Saved{Schedule: sch, Conflicts: conflicts}
		return nil
	})
	if err != nil {
		return Saved{}, err
	}

	log.Debugf("schedule %s modified for user %d with %d conflict(s)", sch.ID, userId, len(saved.Conflicts.Schedules))
	s.publishSaved(ctx, userId, saved)
	return saved, nil
}

func (s *Service) DeleteSchedule(ctx context.Context, id string) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	if err := s.repo.DeleteSchedule(ctx, userId, id); err != nil {
		return err
	}

	err = s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.ScheduleDeletedType, event_bus.ScheduleDeleted{
		UserId:     userId,
		ScheduleId: id,
	}))
	if err != nil {
		log.Warnf("failed to publish deletion of schedule %s: %v", id, err)
	}
	return nil
}

func (s *Service) GetSchedule(ctx context.Context, id string) (schedule.Schedule, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.GetSchedule(ctx, userId, id)
}

func (s *Service) ListSchedules(ctx context.Context) ([]schedule.Schedule, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.ListSchedules(ctx, userId)
}

// GetOccurrences expands every stored schedule of the user into the
// instances falling within [from, to], ordered by date and start time.
func (s *Service) GetOccurrences(ctx context.Context, from, to schedule.Date) ([]schedule.Schedule, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: %s is before %s", ErrInvalidRange, to, from)
	}
	schedules, err := s.ListSchedules(ctx)
	if err != nil {
		return nil, err
	}

	occurrences := s.engine.ExpandForRange(schedules, from, to)
	sort.SliceStable(occurrences, func(i, j int) bool {
		if c := occurrences[i].StartDate.Compare(occurrences[j].StartDate); c != 0 {
			return c < 0
		}
		return occurrences[i].StartTime < occurrences[j].StartTime
	})
	return occurrences, nil
}

// GetUpcoming returns the occurrences of the next days days, today included.
func (s *Service) GetUpcoming(ctx context.Context, days int) ([]schedule.Schedule, error) {
	if days < 1 {
		return nil, fmt.Errorf("%w: days must be positive, got %d", ErrInvalidRange, days)
	}
	today := schedule.DateOf(s.clock.Now())
	return s.GetOccurrences(ctx, today, today.AddDays(days-1))
}

// CheckConflicts reports which stored schedules the candidate would conflict
// with, without saving anything. A candidate carrying the id of a stored
// schedule is checked as a modification of it.
func (s *Service) CheckConflicts(ctx context.Context, candidate schedule.Schedule) (Conflicts, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Conflicts{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := candidate.Validate(); err != nil {
		return Conflicts{}, err
	}
	return s.conflictsWithStored(ctx, s.repo, userId, candidate)
}

func (s *Service) conflictsWithStored(ctx context.Context, repo Repository, userId int, candidate schedule.Schedule) (Conflicts, error) {
	existing, err := repo.ListSchedules(ctx, userId)
	if err != nil {
		return Conflicts{}, fmt.Errorf("failed to list schedules: %w", err)
	}
	found := s.detector.DetectConflicts(candidate, existing)
	return Conflicts{
		Schedules: found,
		Message:   conflict.FormatConflictMessage(found),
	}, nil
}

func (s *Service) publishSaved(ctx context.Context, userId int, saved Saved) {
	conflictIds := make([]string, 0, len(saved.Conflicts.Schedules))
	for _, c := range saved.Conflicts.Schedules {
		conflictIds = append(conflictIds, c.ID)
	}
	err := s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.ScheduleSavedType, event_bus.ScheduleSaved{
		UserId:      userId,
		ScheduleId:  saved.Schedule.ID,
		Title:       saved.Schedule.Title,
		ConflictIds: conflictIds,
		Message:     saved.Conflicts.Message,
	}))
	if err != nil {
		log.Warnf("failed to publish schedule %s: %v", saved.Schedule.ID, err)
	}
}
