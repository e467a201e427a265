package indexing

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherInvalidatesOnWrite(t *testing.T) {
	cfg := writeProject(t)
	cfg.Watch.DebounceMs = 30

	var fired atomic.Int32
	w, err := NewWatcher(cfg, NewFileScanner(cfg), func(paths []string) {
		fired.Add(1)
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(cfg.Project.Root))
	defer w.Stop()

	stepsPath := filepath.Join(cfg.Project.Root, "steps", "apples.go")
	require.NoError(t, os.WriteFile(stepsPath, []byte(goStepsSource+"\n// changed\n"), 0644))

	waitFor(t, func() bool { return fired.Load() >= 1 })
}

func TestWatcherIgnoresIrrelevantFiles(t *testing.T) {
	cfg := writeProject(t)
	cfg.Watch.DebounceMs = 20

	var fired atomic.Int32
	w, err := NewWatcher(cfg, NewFileScanner(cfg), func(paths []string) {
		fired.Add(1)
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(cfg.Project.Root))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Project.Root, "README.md"), []byte("updated docs"), 0644))

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestWatcherDropsNoOpWrites(t *testing.T) {
	cfg := writeProject(t)
	cfg.Watch.DebounceMs = 20

	w, err := NewWatcher(cfg, NewFileScanner(cfg), nil)
	require.NoError(t, err)
	defer w.Stop()

	path := filepath.Join(cfg.Project.Root, "steps", "apples.go")
	assert.True(t, w.contentChanged(path), "first sighting always counts")
	assert.False(t, w.contentChanged(path), "identical bytes must not invalidate")

	require.NoError(t, os.WriteFile(path, []byte(goStepsSource+"// v2\n"), 0644))
	assert.True(t, w.contentChanged(path))
}

func TestWatcherDisabledByConfig(t *testing.T) {
	cfg := writeProject(t)
	cfg.Watch.Enabled = false

	var fired atomic.Int32
	w, err := NewWatcher(cfg, NewFileScanner(cfg), func(paths []string) {
		fired.Add(1)
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(cfg.Project.Root))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Project.Root, "steps", "apples.go"), []byte(goStepsSource+"// v3\n"), 0644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestWatcherNewFeatureFile(t *testing.T) {
	cfg := writeProject(t)
	cfg.Watch.DebounceMs = 30

	var fired atomic.Int32
	w, err := NewWatcher(cfg, NewFileScanner(cfg), func(paths []string) {
		fired.Add(1)
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(cfg.Project.Root))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Project.Root, "features", "new.feature"),
		[]byte("Feature: New\n  Scenario: S\n    Given a step\n"), 0644))

	waitFor(t, func() bool { return fired.Load() >= 1 })
}
