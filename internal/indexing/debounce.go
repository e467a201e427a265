package indexing

import (
	"sync"
	"time"
)

// debouncer coalesces a burst of change events into one callback invocation
// after a quiet period. Each new event restarts the timer.
type debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	pending map[string]bool
	fire    func(paths []string)
}

func newDebouncer(delay time.Duration, fire func(paths []string)) *debouncer {
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}
	return &debouncer{
		delay:   delay,
		pending: make(map[string]bool),
		fire:    fire,
	}
}

// add records a changed path and restarts the quiet-period timer.
func (d *debouncer) add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[path] = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *debouncer) flush() {
	d.mu.Lock()
	pending := d.pending
	d.pending = make(map[string]bool)
	d.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	d.fire(paths)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
