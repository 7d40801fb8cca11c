package state

import (
	"sync"
	"time"

	"CanvasBoard/internal/clock"
)

// DefaultQuiescence is how long the scene must stay unchanged before
// its state is emitted.
const DefaultQuiescence = 1000 * time.Millisecond

// Debouncer runs fn once per burst of triggers, a full window after the
// last one. Every Trigger cancels the pending timer and schedules a new
// one, so at most one timer is ever outstanding.
type Debouncer struct {
	clock  clock.Clock
	window time.Duration
	fn     func()

	mu      sync.Mutex
	timer   *clock.Timer
	gen     uint64
	stopped bool
}

func NewDebouncer(c clock.Clock, window time.Duration, fn func()) *Debouncer {
	if window <= 0 {
		window = DefaultQuiescence
	}
	return &Debouncer{clock: c, window: window, fn: fn}
}

// Trigger (re)starts the quiescence window.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.window, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}

// Pending reports whether an emission is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Cancel drops a scheduled emission without stopping the debouncer.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}

// Stop cancels any scheduled emission; later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}
