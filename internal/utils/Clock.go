package utils

import "time"

// Clock supplies "now" to components that work relative to today.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (s SystemClock) Now() time.Time {
	return time.Now()
}

// MockClock is a settable Clock for tests.
type MockClock struct {
	FixedNow time.Time
}

func NewMockClock(year int, month time.Month, day int) *MockClock {
	return &MockClock{FixedNow: time.Date(year, month, day, 12, 0, 0, 0, time.UTC)}
}

func (m *MockClock) Now() time.Time {
	return m.FixedNow
}

func (m *MockClock) SetNow(now time.Time) {
	m.FixedNow = now
}
