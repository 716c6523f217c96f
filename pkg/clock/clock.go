// Package clock provides the time sources used by the engine.
// Nothing in the engine calls time.Now directly; it asks a Clock.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System is the wall clock, always reported in UTC.
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

// Manual is a settable clock for tests and replays.
// It is safe for concurrent use.
type Manual struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManual returns a Manual clock positioned at t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t.UTC()}
}

func (m *Manual) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t.UTC()
	m.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new time.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

// AdvanceDays is Advance in whole days.
func (m *Manual) AdvanceDays(days int) time.Time {
	return m.Advance(time.Duration(days) * 24 * time.Hour)
}
