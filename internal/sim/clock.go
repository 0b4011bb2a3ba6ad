package sim

import (
	"sync"
	"time"
)

// Clock is a manual clock: Sleep advances it instantly. OnSleep, when set, runs after
// every Sleep and is used to inject events while the caller waits.
type Clock struct {
	mu  sync.Mutex
	now time.Time

	OnSleep func(d time.Duration)
}

// NewClock creates a Clock starting at start
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *Clock) Sleep(d time.Duration) {
	c.Advance(d)
	if c.OnSleep != nil {
		c.OnSleep(d)
	}
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}
