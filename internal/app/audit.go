package app

import (
	"github.com/klokku/scheduler/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

// SubscribeAuditLog logs saved schedules that conflict with others, and deletions.
func SubscribeAuditLog(bus *event_bus.EventBus) {
	event_bus.SubscribeTyped(bus, event_bus.ScheduleSavedType, func(e event_bus.EventT[event_bus.ScheduleSaved]) error {
		if len(e.Data.ConflictIds) == 0 {
			return nil
		}
		log.WithFields(log.Fields{
			"user":      e.Data.UserId,
			"schedule":  e.Data.ScheduleId,
			"conflicts": e.Data.ConflictIds,
		}).Warnf("schedule %q saved with conflicts: %s", e.Data.Title, e.Data.Message)
		return nil
	})

	event_bus.SubscribeTyped(bus, event_bus.ScheduleDeletedType, func(e event_bus.EventT[event_bus.ScheduleDeleted]) error {
		log.WithFields(log.Fields{
			"user":     e.Data.UserId,
			"schedule": e.Data.ScheduleId,
		}).Info("schedule deleted")
		return nil
	})
}
