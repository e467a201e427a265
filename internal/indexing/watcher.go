package indexing

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/stepdex/internal/config"
	"github.com/standardbeagle/stepdex/internal/debug"
)

// Watcher monitors the project tree and reports bursts of relevant file
// changes as a single coalesced invalidation. The index itself stays lazy:
// the watcher only clears the cache, the next read rebuilds.
type Watcher struct {
	watcher   *fsnotify.Watcher
	cfg       *config.Config
	scanner   *FileScanner
	debouncer *debouncer
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	// Last seen content hash per path, to drop touch events that did not
	// change file content.
	hashMu sync.Mutex
	hashes map[string]uint64

	onInvalidate func(paths []string)
}

// NewWatcher creates a watcher that calls onInvalidate with the changed
// paths once per debounced burst.
func NewWatcher(cfg *config.Config, scanner *FileScanner, onInvalidate func(paths []string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher:      fsw,
		cfg:          cfg,
		scanner:      scanner,
		ctx:          ctx,
		cancel:       cancel,
		hashes:       make(map[string]uint64),
		onInvalidate: onInvalidate,
	}
	w.debouncer = newDebouncer(time.Duration(cfg.Watch.DebounceMs)*time.Millisecond, w.fire)
	return w, nil
}

// Start adds recursive watches under root and begins processing events.
func (w *Watcher) Start(root string) error {
	if !w.cfg.Watch.Enabled {
		log.Printf("File watching disabled in configuration")
		return nil
	}

	if err := w.addWatches(root); err != nil {
		return fmt.Errorf("failed to add watches starting from %s: %w", root, err)
	}

	w.wg.Add(1)
	go w.processEvents()

	debug.LogIndexing("file watcher started for %s\n", root)
	return nil
}

// Stop stops the watcher and waits for its goroutine.
func (w *Watcher) Stop() error {
	w.cancel()
	if err := w.watcher.Close(); err != nil {
		log.Printf("Error closing fsnotify watcher: %v", err)
	}
	w.debouncer.stop()
	w.wg.Wait()
	return nil
}

// addWatches walks the tree adding a watch per directory, skipping
// excluded subtrees and symlink cycles.
func (w *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries, keep walking
		}
		if !info.IsDir() {
			return nil
		}

		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[realPath] {
			return filepath.SkipDir
		}
		visited[realPath] = true

		if w.scanner.shouldSkipDir(path) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to add watch for %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}

// relevant reports whether a path can affect the index: step-source files,
// feature files, and the config files themselves.
func (w *Watcher) relevant(path string) bool {
	base := filepath.Base(path)
	if base == ".stepdex.kdl" || base == "stepdex.toml" {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".feature" {
		return true
	}
	return w.scanner.stepExts[ext]
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	info, err := os.Stat(path)
	if err != nil {
		// Deleted or renamed away.
		if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && w.relevant(path) {
			w.forget(path)
			w.debouncer.add(path)
		}
		return
	}

	if info.IsDir() {
		// Watch newly created directories.
		if event.Op&fsnotify.Create != 0 && !w.scanner.shouldSkipDir(path) {
			if err := w.watcher.Add(path); err != nil {
				log.Printf("Warning: failed to add watch for new directory %s: %v", path, err)
			}
		}
		return
	}

	if !w.relevant(path) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	if event.Op&fsnotify.Write != 0 && !w.contentChanged(path) {
		debug.LogIndexing("ignoring no-op write to %s\n", path)
		return
	}
	w.debouncer.add(path)
}

// contentChanged hashes the file and reports whether it differs from the
// last event for the same path. Editors and build tools routinely rewrite
// files with identical bytes; those must not invalidate the index.
func (w *Watcher) contentChanged(path string) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		return true // unreadable now; let the rebuild sort it out
	}
	sum := xxhash.Sum64(content)

	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	if prev, ok := w.hashes[path]; ok && prev == sum {
		return false
	}
	w.hashes[path] = sum
	return true
}

func (w *Watcher) forget(path string) {
	w.hashMu.Lock()
	delete(w.hashes, path)
	w.hashMu.Unlock()
}

func (w *Watcher) fire(paths []string) {
	debug.LogIndexing("invalidating index after %d changed files\n", len(paths))
	if w.onInvalidate != nil {
		w.onInvalidate(paths)
	}
}
