package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/klokku/scheduler/pkg/schedule"
)

// RepositoryStub keeps schedules in memory; used by service and handler tests.
type RepositoryStub struct {
	mu             sync.RWMutex
	items          map[string]schedule.Schedule // uid -> schedule
	userIds        map[string]int               // uid -> userId
	order          []string                     // uids in insertion order
	nextId         int
	transactionErr error
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		items:   make(map[string]schedule.Schedule),
		userIds: make(map[string]int),
		nextId:  1,
	}
}

func (r *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	r.mu.Lock()
	originalItems := make(map[string]schedule.Schedule, len(r.items))
	for k, v := range r.items {
		originalItems[k] = v
	}
	originalUserIds := make(map[string]int, len(r.userIds))
	for k, v := range r.userIds {
		originalUserIds[k] = v
	}
	originalOrder := append([]string(nil), r.order...)
	originalNextId := r.nextId
	r.transactionErr = nil
	r.mu.Unlock()

	err := fn(r)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil || r.transactionErr != nil {
		r.items = originalItems
		r.userIds = originalUserIds
		r.order = originalOrder
		r.nextId = originalNextId
		if err != nil {
			return err
		}
		return r.transactionErr
	}
	return nil
}

func (r *RepositoryStub) StoreSchedule(ctx context.Context, userId int, s schedule.Schedule) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	uid := fmt.Sprintf("schedule-%d", r.nextId)
	r.nextId++
	s.ID = uid

	r.items[uid] = s
	r.userIds[uid] = userId
	r.order = append(r.order, uid)
	return uid, nil
}

func (r *RepositoryStub) GetSchedule(ctx context.Context, userId int, id string) (schedule.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.items[id]
	if !exists || r.userIds[id] != userId {
		return schedule.Schedule{}, ErrScheduleNotFound
	}
	return s, nil
}

func (r *RepositoryStub) ListSchedules(ctx context.Context, userId int) ([]schedule.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]schedule.Schedule, 0)
	for _, uid := range r.order {
		if r.userIds[uid] == userId {
			result = append(result, r.items[uid])
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if c := result[i].StartDate.Compare(result[j].StartDate); c != 0 {
			return c < 0
		}
		return result[i].StartTime < result[j].StartTime
	})
	return result, nil
}

func (r *RepositoryStub) UpdateSchedule(ctx context.Context, userId int, s schedule.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[s.ID]; !exists || r.userIds[s.ID] != userId {
		return ErrScheduleNotFound
	}
	r.items[s.ID] = s
	return nil
}

func (r *RepositoryStub) DeleteSchedule(ctx context.Context, userId int, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[id]; !exists || r.userIds[id] != userId {
		return ErrScheduleNotFound
	}
	delete(r.items, id)
	delete(r.userIds, id)
	for i, uid := range r.order {
		if uid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// SetTransactionError makes the running transaction roll back with err.
func (r *RepositoryStub) SetTransactionError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactionErr = err
}

// Count returns the number of stored schedules across all users.
func (r *RepositoryStub) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
