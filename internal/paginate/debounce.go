package paginate

import (
	"sync"
	"time"
)

// DefaultDebounce is the coalescing window for settings-change bursts.
const DefaultDebounce = 200 * time.Millisecond

// Debouncer coalesces bursts of triggers into one callback with
// cancel-pending/restart semantics: a new trigger invalidates any
// not-yet-fired previous one. Used for repagination after settings
// changes and for deferred progress saves.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given window. A non-positive
// delay falls back to DefaultDebounce.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Trigger schedules fn after the window, replacing any pending callback.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels any pending callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
