// Package debounce runs a function once after a burst of calls has gone quiet.
package debounce

import (
	"sync"
	"time"
)

const DefaultInterval = 500 * time.Millisecond

// Debouncer holds a single pending invocation. Every Schedule replaces the
// previous one, so a burst of calls yields one run of fn timed from the last
// call.
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	fn       func()
	timer    *time.Timer
	gen      uint64
	pending  bool
	stopped  bool
}

func New(interval time.Duration, fn func()) *Debouncer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Debouncer{interval: interval, fn: fn}
}

func (d *Debouncer) Interval() time.Duration {
	return d.interval
}

// Schedule arms fn to run after the interval, cancelling any invocation that
// has not run yet.
func (d *Debouncer) Schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.cancelLocked()
	d.pending = true
	gen := d.gen
	d.timer = time.AfterFunc(d.interval, func() { d.fire(gen) })
}

// fire runs fn unless a later Schedule, Flush, Cancel or Stop has superseded
// the timer that called it.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.pending || d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Flush runs a pending invocation now, on the caller's goroutine. It reports
// whether anything was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	d.cancelLocked()
	d.mu.Unlock()

	d.fn()
	return true
}

// Cancel drops a pending invocation without running it.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	was := d.pending
	d.cancelLocked()
	return was
}

// Stop cancels any pending invocation and makes later Schedule calls no-ops.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

func (d *Debouncer) cancelLocked() {
	d.gen++
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
