package app

import (
	"sync"
	"time"

	"github.com/bft-labs/recship/pkg/clock"
)

// DefaultScrollDebounce is the scroll quiescence window.
const DefaultScrollDebounce = 150 * time.Millisecond

// debouncer runs the last scheduled function once no new trigger arrived
// for a full window. All methods must be called with lock held; the timer
// callback acquires lock itself.
type debouncer struct {
	clock  clock.Clock
	window time.Duration
	lock   sync.Locker

	timer clock.Timer
	gen   uint64
}

func newDebouncer(clk clock.Clock, window time.Duration, lock sync.Locker) *debouncer {
	return &debouncer{clock: clk, window: window, lock: lock}
}

// Trigger restarts the window with fn as the trailing call.
func (d *debouncer) Trigger(fn func()) {
	d.stopTimer()
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.window, func() {
		d.lock.Lock()
		defer d.lock.Unlock()
		// A timer that fired concurrently with Cancel or a newer Trigger
		// finds a different generation and does nothing.
		if gen != d.gen {
			return
		}
		d.timer = nil
		fn()
	})
}

// Cancel drops the pending call, if any.
func (d *debouncer) Cancel() {
	d.stopTimer()
	d.gen++
}

// Pending reports whether a trailing call is scheduled.
func (d *debouncer) Pending() bool {
	return d.timer != nil
}

func (d *debouncer) stopTimer() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
