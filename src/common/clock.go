package common

import (
	"sort"
	"sync"
	"time"
)

// Stopper cancels a scheduled function.
type Stopper interface {
	// Stop prevents the function from running. It returns false if the
	// function already ran or was already stopped.
	Stop() bool
}

// Clock schedules functions in the future.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

// RealClock is backed by the time package.
type RealClock struct{}

// AfterFunc implements Clock.
func (RealClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// ManualClock only moves when Advance is called. Scheduled functions run
// synchronously inside Advance, in deadline order.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTimer
}

type manualTimer struct {
	clock    *ManualClock
	deadline time.Duration
	seq      int
	f        func()
	done     bool
}

// NewManualClock returns a ManualClock at time zero.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// AfterFunc implements Clock.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &manualTimer{clock: c, deadline: c.now + d, seq: c.seq, f: f}
	c.pending = append(c.pending, t)
	return t
}

// Stop implements Stopper.
func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves the clock forward by d and runs every function whose
// deadline has passed.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	now := c.now
	c.mu.Unlock()

	for {
		t := c.nextDue(now)
		if t == nil {
			return
		}
		t.f()
	}
}

func (c *ManualClock) nextDue(now time.Duration) *manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	live := c.pending[:0]
	for _, t := range c.pending {
		if !t.done {
			live = append(live, t)
		}
	}
	c.pending = live

	sort.Slice(c.pending, func(i, j int) bool {
		if c.pending[i].deadline == c.pending[j].deadline {
			return c.pending[i].seq < c.pending[j].seq
		}
		return c.pending[i].deadline < c.pending[j].deadline
	})

	if len(c.pending) == 0 || c.pending[0].deadline > now {
		return nil
	}
	t := c.pending[0]
	t.done = true
	return t
}

// Pending returns the number of scheduled functions that have not run.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.pending {
		if !t.done {
			n++
		}
	}
	return n
}
