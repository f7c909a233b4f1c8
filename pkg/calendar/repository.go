package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/scheduler/pkg/schedule"
	"github.com/samber/mo"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	// StoreSchedule inserts the schedule under a new id and returns that id.
	StoreSchedule(ctx context.Context, userId int, s schedule.Schedule) (string, error)
	GetSchedule(ctx context.Context, userId int, id string) (schedule.Schedule, error)
	// ListSchedules returns all schedules of the user ordered by start date.
	ListSchedules(ctx context.Context, userId int) ([]schedule.Schedule, error)
	UpdateSchedule(ctx context.Context, userId int, s schedule.Schedule) error
	DeleteSchedule(ctx context.Context, userId int, id string) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
	tx pgx.Tx
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

// getQueryer returns the transaction when one is open, the pool otherwise
func (r *RepositoryImpl) getQueryer() interface {
	Exec(ctx context.Context, query string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) pgx.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *RepositoryImpl) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// no-op after commit
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	if err := fn(&RepositoryImpl{db: r.db, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const scheduleColumns = `uid, title, description, location, client_id, client_name, project_name,
	start_date, end_date, all_day, start_time, end_time,
	is_recurring, frequency, recurrence_interval, recurrence_end_date, days_of_week`

func (r *RepositoryImpl) StoreSchedule(ctx context.Context, userId int, s schedule.Schedule) (string, error) {
	uid := uuid.NewString()
	row := toRow(s)

	query := `INSERT INTO schedule (` + scheduleColumns + `, user_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.getQueryer().Exec(ctx, query,
		uid, row.title, row.description, row.location, row.clientId, row.clientName, row.projectName,
		row.startDate, row.endDate, row.allDay, row.startTime, row.endTime,
		row.isRecurring, row.frequency, row.interval, row.recurrenceEndDate, row.daysOfWeek,
		userId,
	)
	if err != nil {
		log.Errorf("failed to store schedule: %v", err)
		return "", fmt.Errorf("failed to store schedule: %w", err)
	}
	return uid, nil
}

func (r *RepositoryImpl) GetSchedule(ctx context.Context, userId int, id string) (schedule.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedule WHERE user_id = $1 AND uid = $2`
	s, err := scanSchedule(r.getQueryer().QueryRow(ctx, query, userId, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.Schedule{}, ErrScheduleNotFound
		}
		log.Errorf("failed to get schedule %s: %v", id, err)
		return schedule.Schedule{}, fmt.Errorf("failed to get schedule: %w", err)
	}
	return s, nil
}

func (r *RepositoryImpl) ListSchedules(ctx context.Context, userId int) ([]schedule.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedule WHERE user_id = $1 ORDER BY start_date, start_time, id`
	rows, err := r.getQueryer().Query(ctx, query, userId)
	if err != nil {
		log.Errorf("failed to list schedules: %v", err)
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	schedules := make([]schedule.Schedule, 0)
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			log.Errorf("failed to scan schedule: %v", err)
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

func (r *RepositoryImpl) UpdateSchedule(ctx context.Context, userId int, s schedule.Schedule) error {
	row := toRow(s)
	query := `UPDATE schedule SET
				title = $1, description = $2, location = $3, client_id = $4, client_name = $5, project_name = $6,
				start_date = $7, end_date = $8, all_day = $9, start_time = $10, end_time = $11,
				is_recurring = $12, frequency = $13, recurrence_interval = $14, recurrence_end_date = $15, days_of_week = $16
			  WHERE user_id = $17 AND uid = $18`
	result, err := r.getQueryer().Exec(ctx, query,
		row.title, row.description, row.location, row.clientId, row.clientName, row.projectName,
		row.startDate, row.endDate, row.allDay, row.startTime, row.endTime,
		row.isRecurring, row.frequency, row.interval, row.recurrenceEndDate, row.daysOfWeek,
		userId, s.ID,
	)
	if err != nil {
		log.Errorf("failed to update schedule %s: %v", s.ID, err)
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *RepositoryImpl) DeleteSchedule(ctx context.Context, userId int, id string) error {
	result, err := r.getQueryer().Exec(ctx, `DELETE FROM schedule WHERE user_id = $1 AND uid = $2`, userId, id)
	if err != nil {
		log.Errorf("failed to delete schedule %s: %v", id, err)
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// scheduleRow is the column level shape of a schedule.
type scheduleRow struct {
	uid               string
	title             string
	description       string
	location          string
	clientId          string
	clientName        string
	projectName       string
	startDate         time.Time
	endDate           *time.Time
	allDay            bool
	startTime         string
	endTime           string
	isRecurring       bool
	frequency         *string
	interval          *int32
	recurrenceEndDate *time.Time
	daysOfWeek        []int32
}

func toRow(s schedule.Schedule) scheduleRow {
	row := scheduleRow{
		uid:         s.ID,
		title:       s.Title,
		description: s.Description,
		location:    s.Location,
		clientId:    s.ClientID,
		clientName:  s.ClientName,
		projectName: s.ProjectName,
		startDate:   s.StartDate.Time(),
		allDay:      s.AllDay,
		startTime:   s.StartTime,
		endTime:     s.EndTime,
		isRecurring: s.IsRecurring,
		daysOfWeek:  []int32{},
	}
	if end, ok := s.EndDate.Get(); ok {
		t := end.Time()
		row.endDate = &t
	}
	if rule, ok := s.RecurrenceRule.Get(); ok && rule.Frequency.Valid() {
		frequency := rule.Frequency.String()
		interval := int32(rule.Interval)
		row.frequency = &frequency
		row.interval = &interval
		if end, ok := rule.EndDate.Get(); ok {
			t := end.Time()
			row.recurrenceEndDate = &t
		}
		for _, day := range rule.DaysOfWeek {
			row.daysOfWeek = append(row.daysOfWeek, int32(day))
		}
	}
	return row
}

func (row scheduleRow) toSchedule() (schedule.Schedule, error) {
	s := schedule.Schedule{
		ID:          row.uid,
		Title:       row.title,
		Description: row.description,
		Location:    row.location,
		ClientID:    row.clientId,
		ClientName:  row.clientName,
		ProjectName: row.projectName,
		StartDate:   schedule.DateOf(row.startDate),
		AllDay:      row.allDay,
		StartTime:   row.startTime,
		EndTime:     row.endTime,
		IsRecurring: row.isRecurring,
	}
	if row.endDate != nil {
		s.EndDate = mo.Some(schedule.DateOf(*row.endDate))
	}
	if row.frequency != nil {
		frequency, err := schedule.ParseFrequency(*row.frequency)
		if err != nil {
			return schedule.Schedule{}, fmt.Errorf("schedule %s: %w", row.uid, err)
		}
		rule := schedule.RecurrenceRule{Frequency: frequency, Interval: 1}
		if row.interval != nil {
			rule.Interval = int(*row.interval)
		}
		if row.recurrenceEndDate != nil {
			rule.EndDate = mo.Some(schedule.DateOf(*row.recurrenceEndDate))
		}
		for _, day := range row.daysOfWeek {
			rule.DaysOfWeek = append(rule.DaysOfWeek, time.Weekday(day))
		}
		s.RecurrenceRule = mo.Some(rule)
	}
	return s, nil
}

func scanSchedule(row pgx.Row) (schedule.Schedule, error) {
	var r scheduleRow
	err := row.Scan(
		&r.uid, &r.title, &r.description, &r.location, &r.clientId, &r.clientName, &r.projectName,
		&r.startDate, &r.endDate, &r.allDay, &r.startTime, &r.endTime,
		&r.isRecurring, &r.frequency, &r.interval, &r.recurrenceEndDate, &r.daysOfWeek,
	)
	if err != nil {
		return schedule.Schedule{}, err
	}
	return r.toSchedule()
}
