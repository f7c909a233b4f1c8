package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/scheduler/internal/config"
	"github.com/klokku/scheduler/internal/event_bus"
	"github.com/klokku/scheduler/internal/utils"
	"github.com/klokku/scheduler/pkg/calendar"
	"github.com/klokku/scheduler/pkg/conflict"
	"github.com/klokku/scheduler/pkg/recurrence"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus
	Clock    utils.Clock

	RecurrenceEngine *recurrence.Engine
	ConflictDetector *conflict.Detector

	CalendarRepository calendar.Repository
	CalendarService    *calendar.Service
	CalendarHandler    *calendar.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) *Dependencies {
	return buildDependencies(calendar.NewRepository(db), cfg)
}

func buildDependencies(repo calendar.Repository, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.EventBus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}
	SubscribeAuditLog(deps.EventBus)

	deps.RecurrenceEngine = recurrence.NewEngine(recurrence.Config{
		MaxIterations: cfg.Recurrence.MaxIterations,
	})
	deps.ConflictDetector = conflict.NewDetector(deps.RecurrenceEngine, conflict.Config{
		LookaheadYears: cfg.Conflicts.LookaheadYears,
	})

	deps.CalendarRepository = repo
	deps.CalendarService = calendar.NewService(
		deps.CalendarRepository,
		deps.RecurrenceEngine,
		deps.ConflictDetector,
		deps.EventBus,
		deps.Clock,
		calendar.Config{RejectConflicts: cfg.Conflicts.Reject},
	)
	deps.CalendarHandler = calendar.NewHandler(deps.CalendarService)

	return deps
}
