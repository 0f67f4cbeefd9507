package query

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet window applied to search input.
const DefaultDebounce = 500 * time.Millisecond

// Timer is the cancel handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it through
// RealAfterFunc; tests pass a fake.
type AfterFunc func(d time.Duration, f func()) Timer

// RealAfterFunc wraps time.AfterFunc.
func RealAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs the last triggered function once no new trigger has arrived
// for the quiet window. At most one handle is active at a time.
type Debouncer struct {
	mu      sync.Mutex
	wait    time.Duration
	after   AfterFunc
	pending Timer
	gen     uint64
}

// NewDebouncer returns a Debouncer. A nil after uses RealAfterFunc.
func NewDebouncer(wait time.Duration, after AfterFunc) *Debouncer {
	if wait <= 0 {
		wait = DefaultDebounce
	}
	if after == nil {
		after = RealAfterFunc
	}
	return &Debouncer{wait: wait, after: after}
}

// Trigger cancels any pending call and schedules f.
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.gen++
	gen := d.gen
	d.pending = d.after(d.wait, func() {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.pending = nil
		d.mu.Unlock()
		f()
	})
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	// a callback already past Stop sees a stale generation and returns
	d.gen++
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

func (d *Debouncer) stopLocked() {
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
