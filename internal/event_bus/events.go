package event_bus

const (
	ScheduleSavedType   EventType = "schedule.saved"
	ScheduleDeletedType EventType = "schedule.deleted"
)

// ScheduleSaved is published after a schedule has been created or modified.
type ScheduleSaved struct {
	UserId     int
	ScheduleId string
	Title      string
	// ConflictIds lists the schedules the saved one overlaps with.
	ConflictIds []string
	Message     string
}

type ScheduleDeleted struct {
	UserId     int
	ScheduleId string
}
