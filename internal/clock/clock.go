// Package clock provides an injectable time source so age and overdue
// computations can be tested deterministically.
package clock

import (
	"sync"
	"time"
)

// Clock abstracts the current time. Production code uses Real; tests use Fake.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// Real returns a Clock backed by time.Now, always in UTC.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// FakeClock is a deterministic Clock. Time stands still until Set or
// Advance is called. Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// Fake returns a FakeClock initialized to initial.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial.UTC()}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t.UTC()
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}
