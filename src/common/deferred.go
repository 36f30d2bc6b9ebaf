package common

import (
	"sync"
	"time"
)

// Deferred is a single-slot deferred task. Every Schedule cancels the task
// scheduled before it, so only the last one runs once the quiet period has
// elapsed.
type Deferred struct {
	mu    sync.Mutex
	clock Clock
	delay time.Duration
	post  func(func())
	timer Stopper
	gen   uint64
}

// NewDeferred returns a Deferred with the given quiet period. When the timer
// fires, the task is handed to post, which lets the owner run it on its own
// goroutine; a nil post runs the task on the timer goroutine.
func NewDeferred(clock Clock, delay time.Duration, post func(func())) *Deferred {
	if clock == nil {
		clock = RealClock{}
	}
	if post == nil {
		post = func(f func()) { f() }
	}
	return &Deferred{
		clock: clock,
		delay: delay,
		post:  post,
	}
}

// Schedule cancels any pending task and schedules fn.
func (d *Deferred) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.post(func() {
			// A task posted just before being superseded must not run.
			d.mu.Lock()
			current := gen == d.gen
			if current {
				d.timer = nil
			}
			d.mu.Unlock()
			if current {
				fn()
			}
		})
	})
}

// Cancel drops the pending task, if any, and reports whether there was one.
func (d *Deferred) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	return true
}

// Pending reports whether a task is waiting for its quiet period.
func (d *Deferred) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
