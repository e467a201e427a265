package indexing

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fireRecorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *fireRecorder) fire(paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.Strings(paths)
	r.calls = append(r.calls, paths)
}

func (r *fireRecorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	rec := &fireRecorder{}
	d := newDebouncer(30*time.Millisecond, rec.fire)
	defer d.stop()

	d.add("a.go")
	d.add("b.go")
	d.add("a.go")

	waitFor(t, func() bool { return len(rec.snapshot()) == 1 })

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"a.go", "b.go"}, calls[0])
}

func TestDebouncerRestartsTimer(t *testing.T) {
	rec := &fireRecorder{}
	d := newDebouncer(60*time.Millisecond, rec.fire)
	defer d.stop()

	d.add("a.go")
	time.Sleep(30 * time.Millisecond)
	// Still inside the quiet period; this must push the deadline out
	d.add("b.go")
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, rec.snapshot())

	waitFor(t, func() bool { return len(rec.snapshot()) == 1 })
	assert.Len(t, rec.snapshot()[0], 2)
}

func TestDebouncerSeparateBursts(t *testing.T) {
	rec := &fireRecorder{}
	d := newDebouncer(20*time.Millisecond, rec.fire)
	defer d.stop()

	d.add("a.go")
	waitFor(t, func() bool { return len(rec.snapshot()) == 1 })

	d.add("b.go")
	waitFor(t, func() bool { return len(rec.snapshot()) == 2 })

	calls := rec.snapshot()
	assert.Equal(t, []string{"a.go"}, calls[0])
	assert.Equal(t, []string{"b.go"}, calls[1])
}

func TestDebouncerStopPreventsFire(t *testing.T) {
	rec := &fireRecorder{}
	d := newDebouncer(30*time.Millisecond, rec.fire)

	d.add("a.go")
	d.stop()
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}
