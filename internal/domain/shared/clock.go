package shared

import (
	"sync"
	"time"
)

// Clock supplies the current time to the ledger.
// All created_at, order and sale dates are taken from a Clock.
type Clock interface {
	Now() time.Time
}

// SystemClock returns wall-clock time in UTC
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// StepClock returns a deterministic, strictly increasing sequence of instants.
// Each call to Now advances the clock by Step.
type StepClock struct {
	mu      sync.Mutex
	current time.Time
	Step    time.Duration
}

// NewStepClock creates a StepClock starting at start
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{current: start.UTC(), Step: step}
}

// Now returns the current instant and advances the clock
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.current
	c.current = c.current.Add(c.Step)
	return now
}

// Set moves the clock to t
func (c *StepClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t.UTC()
}
