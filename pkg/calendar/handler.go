package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/emersion/go-ical"
	"github.com/gorilla/mux"
	"github.com/klokku/scheduler/internal/rest"
	"github.com/klokku/scheduler/pkg/schedule"
	"github.com/klokku/scheduler/pkg/user"
	"github.com/samber/mo"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	calendar *Service
}

type ScheduleDTO struct {
	ID             string             `json:"id"`
	Title          string             `json:"title"`
	Description    string             `json:"description,omitempty"`
	Location       string             `json:"location,omitempty"`
	ClientId       string             `json:"clientId,omitempty"`
	ClientName     string             `json:"clientName,omitempty"`
	ProjectName    string             `json:"projectName,omitempty"`
	StartDate      string             `json:"startDate"`
	EndDate        string             `json:"endDate,omitempty"`
	AllDay         bool               `json:"allDay"`
	StartTime      string             `json:"startTime,omitempty"`
	EndTime        string             `json:"endTime,omitempty"`
	IsRecurring    bool               `json:"isRecurring"`
	RecurrenceRule *RecurrenceRuleDTO `json:"recurrenceRule,omitempty"`
}

type RecurrenceRuleDTO struct {
	Frequency string `json:"frequency"`
	// Interval defaults to 1 when omitted.
	Interval   int    `json:"interval,omitempty"`
	EndDate    string `json:"endDate,omitempty"`
	DaysOfWeek []int  `json:"daysOfWeek,omitempty"`
}

type SavedScheduleDTO struct {
	Schedule  ScheduleDTO   `json:"schedule"`
	Conflicts []ScheduleDTO `json:"conflicts"`
	Message   string        `json:"message,omitempty"`
}

type ConflictsDTO struct {
	Conflicts []ScheduleDTO `json:"conflicts"`
	Message   string        `json:"message,omitempty"`
}

func NewHandler(s *Service) *Handler {
	return &Handler{s}
}

// ListSchedules godoc
// @Summary List schedules
// @Description Returns all schedules of the current user, recurring series as single records
// @Tags Schedule
// @Produce json
// @Success 200 {array} ScheduleDTO
// @Failure 403 {object} rest.ErrorResponse
// @Router /api/schedule [get]
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.calendar.ListSchedules(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedulesToDTO(schedules))
}

// GetSchedule godoc
// @Summary Get schedule
// @Tags Schedule
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} ScheduleDTO
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/schedule/{id} [get]
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	sch, err := h.calendar.GetSchedule(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleToDTO(sch))
}

// CreateSchedule godoc
// @Summary Create schedule
// @Description Stores the schedule and reports the existing schedules it conflicts with
// @Tags Schedule
// @Accept json
// @Produce json
// @Param schedule body ScheduleDTO true "Schedule"
// @Success 201 {object} SavedScheduleDTO
// @Failure 400 {object} rest.ErrorResponse
// @Failure 409 {object} rest.ErrorResponse
// @Router /api/schedule [post]
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	sch, ok := decodeSchedule(w, r)
	if !ok {
		return
	}

	saved, err := h.calendar.AddSchedule(r.Context(), sch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, savedToDTO(saved))
}

// UpdateSchedule godoc
// @Summary Update schedule
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param schedule body ScheduleDTO true "Schedule"
// @Success 200 {object} SavedScheduleDTO
// @Failure 400 {object} rest.ErrorResponse
// @Failure 404 {object} rest.ErrorResponse
// @Failure 409 {object} rest.ErrorResponse
// @Router /api/schedule/{id} [put]
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	sch, ok := decodeSchedule(w, r)
	if !ok {
		return
	}
	sch.ID = mux.Vars(r)["id"]

	saved, err := h.calendar.ModifySchedule(r.Context(), sch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, savedToDTO(saved))
}

// DeleteSchedule godoc
// @Summary Delete schedule
// @Tags Schedule
// @Param id path string true "Schedule ID"
// @Success 204
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/schedule/{id} [delete]
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.calendar.DeleteSchedule(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetOccurrences godoc
// @Summary Schedule occurrences in a date range
// @Description Expands recurring schedules into the concrete instances between from and to (inclusive)
// @Tags Schedule
// @Produce json
// @Param from query string true "First day (YYYY-MM-DD)"
// @Param to query string true "Last day (YYYY-MM-DD)"
// @Success 200 {array} ScheduleDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/schedule/occurrences [get]
func (h *Handler) GetOccurrences(w http.ResponseWriter, r *http.Request) {
	from, err := schedule.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid from (date) format", "'from' must be in YYYY-MM-DD format")
		return
	}
	to, err := schedule.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid to (date) format", "'to' must be in YYYY-MM-DD format")
		return
	}

	occurrences, err := h.calendar.GetOccurrences(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	log.Tracef("Occurrences returned: %d", len(occurrences))
	writeJSON(w, http.StatusOK, schedulesToDTO(occurrences))
}

// GetUpcoming godoc
// @Summary Upcoming schedule occurrences
// @Tags Schedule
// @Produce json
// @Param days query int false "Number of days including today" default(7)
// @Success 200 {array} ScheduleDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/schedule/upcoming [get]
func (h *Handler) GetUpcoming(w http.ResponseWriter, r *http.Request) {
	days := 7
	if daysString := r.URL.Query().Get("days"); daysString != "" {
		parsed, err := strconv.Atoi(daysString)
		if err != nil {
			rest.WriteError(w, http.StatusBadRequest, "Invalid days", "'days' must be a positive number")
			return
		}
		days = parsed
	}

	occurrences, err := h.calendar.GetUpcoming(r.Context(), days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedulesToDTO(occurrences))
}

// CheckConflicts godoc
// @Summary Check a schedule for conflicts
// @Description Dry run, nothing is stored
// @Tags Schedule
// @Accept json
// @Produce json
// @Param schedule body ScheduleDTO true "Candidate schedule"
// @Success 200 {object} ConflictsDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/schedule/conflicts [post]
func (h *Handler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	sch, ok := decodeSchedule(w, r)
	if !ok {
		return
	}

	conflicts, err := h.calendar.CheckConflicts(r.Context(), sch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConflictsDTO{
		Conflicts: schedulesToDTO(conflicts.Schedules),
		Message:   conflicts.Message,
	})
}

// ExportSchedule godoc
// @Summary Export schedule as iCalendar
// @Tags Schedule
// @Produce text/calendar
// @Param id path string true "Schedule ID"
// @Success 200 {string} string
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/schedule/{id}/ics [get]
func (h *Handler) ExportSchedule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	cal, err := h.calendar.ExportICS(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", icsFileName(id)))
	w.WriteHeader(http.StatusOK)
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		log.Errorf("failed to encode schedule %s: %v", id, err)
	}
}

func decodeSchedule(w http.ResponseWriter, r *http.Request) (schedule.Schedule, bool) {
	var dto ScheduleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return schedule.Schedule{}, false
	}
	sch, err := dtoToSchedule(dto)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid schedule", err.Error())
		return schedule.Schedule{}, false
	}
	return sch, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusForbidden, "User not found", "")
	case errors.Is(err, ErrScheduleNotFound):
		rest.WriteError(w, http.StatusNotFound, "Schedule not found", "")
	case errors.Is(err, ErrScheduleConflict):
		rest.WriteError(w, http.StatusConflict, "Schedule conflicts with existing schedules", err.Error())
	case errors.Is(err, schedule.ErrInvalidSchedule), errors.Is(err, ErrInvalidRange):
		rest.WriteError(w, http.StatusBadRequest, "Invalid schedule request", err.Error())
	default:
		log.Errorf("schedule request failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func scheduleToDTO(s schedule.Schedule) ScheduleDTO {
	dto := ScheduleDTO{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Location:    s.Location,
		ClientId:    s.ClientID,
		ClientName:  s.ClientName,
		ProjectName: s.ProjectName,
		StartDate:   s.StartDate.String(),
		AllDay:      s.AllDay,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		IsRecurring: s.IsRecurring,
	}
	if end, ok := s.EndDate.Get(); ok {
		dto.EndDate = end.String()
	}
	if rule, ok := s.RecurrenceRule.Get(); ok {
		ruleDTO := &RecurrenceRuleDTO{
			Frequency: rule.Frequency.String(),
			Interval:  rule.Interval,
		}
		if end, ok := rule.EndDate.Get(); ok {
			ruleDTO.EndDate = end.String()
		}
		for _, day := range rule.DaysOfWeek {
			ruleDTO.DaysOfWeek = append(ruleDTO.DaysOfWeek, int(day))
		}
		dto.RecurrenceRule = ruleDTO
	}
	return dto
}

func schedulesToDTO(schedules []schedule.Schedule) []ScheduleDTO {
	dtos := make([]ScheduleDTO, 0, len(schedules))
	for _, s := range schedules {
		dtos = append(dtos, scheduleToDTO(s))
	}
	return dtos
}

func savedToDTO(saved Saved) SavedScheduleDTO {
	return SavedScheduleDTO{
		Schedule:  scheduleToDTO(saved.Schedule),
		Conflicts: schedulesToDTO(saved.Conflicts.Schedules),
		Message:   saved.Conflicts.Message,
	}
}

func dtoToSchedule(dto ScheduleDTO) (schedule.Schedule, error) {
	startDate, err := schedule.ParseDate(dto.StartDate)
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("startDate: %w", err)
	}
	s := schedule.Schedule{
		ID:          dto.ID,
		Title:       dto.Title,
		Description: dto.Description,
		Location:    dto.Location,
		ClientID:    dto.ClientId,
		ClientName:  dto.ClientName,
		ProjectName: dto.ProjectName,
		StartDate:   startDate,
		AllDay:      dto.AllDay,
		StartTime:   dto.StartTime,
		EndTime:     dto.EndTime,
		IsRecurring: dto.IsRecurring,
	}
	if dto.EndDate != "" {
		endDate, err := schedule.ParseDate(dto.EndDate)
		if err != nil {
			return schedule.Schedule{}, fmt.Errorf("endDate: %w", err)
		}
		s.EndDate = mo.Some(endDate)
	}
	if dto.RecurrenceRule != nil {
		rule, err := dtoToRule(*dto.RecurrenceRule)
		if err != nil {
			return schedule.Schedule{}, err
		}
		s.RecurrenceRule = mo.Some(rule)
	}
	return s, nil
}

func dtoToRule(dto RecurrenceRuleDTO) (schedule.RecurrenceRule, error) {
	frequency, err := schedule.ParseFrequency(dto.Frequency)
	if err != nil {
		return schedule.RecurrenceRule{}, fmt.Errorf("recurrenceRule.frequency: %w", err)
	}
	rule := schedule.RecurrenceRule{Frequency: frequency, Interval: dto.Interval}
	if rule.Interval == 0 {
		rule.Interval = 1
	}
	if dto.EndDate != "" {
		endDate, err := schedule.ParseDate(dto.EndDate)
		if err != nil {
			return schedule.RecurrenceRule{}, fmt.Errorf("recurrenceRule.endDate: %w", err)
		}
		rule.EndDate = mo.Some(endDate)
	}
	for _, day := range dto.DaysOfWeek {
		rule.DaysOfWeek = append(rule.DaysOfWeek, time.Weekday(day))
	}
	return rule, nil
}
