// Package indexing coordinates the project scanner, the step index, the
// fuzzy search engine and the reconciliation engine behind one facade.
package indexing

import (
	"context"
	"log"

	"github.com/standardbeagle/stepdex/internal/config"
	"github.com/standardbeagle/stepdex/internal/gherkin"
	"github.com/standardbeagle/stepdex/internal/reconcile"
	"github.com/standardbeagle/stepdex/internal/search"
	"github.com/standardbeagle/stepdex/internal/stepindex"
	"github.com/standardbeagle/stepdex/internal/types"
)

// MasterIndex is the surface the hosts (CLI, MCP server) talk to. Bulk
// operations never propagate unexpected failures: a panic or source error
// inside a query degrades to an empty result, the caller keeps running.
type MasterIndex struct {
	cfg        *config.Config
	scanner    *FileScanner
	index      *stepindex.Index
	engine     *search.Engine
	reconciler *reconcile.Engine
	watcher    *Watcher
}

// NewMasterIndex wires the components for the configured project. The step
// index builds lazily on first read from the scanner.
func NewMasterIndex(cfg *config.Config) *MasterIndex {
	scanner := NewFileScanner(cfg)
	index := stepindex.New(stepindex.SourceFunc(func() ([]types.RawDefinition, error) {
		return scanner.CollectStepDefinitions(context.Background())
	}))

	return &MasterIndex{
		cfg:        cfg,
		scanner:    scanner,
		index:      index,
		engine:     search.NewEngine(index),
		reconciler: reconcile.NewEngine(cfg.ExcludedFragments),
	}
}

// Config returns the active configuration.
func (m *MasterIndex) Config() *config.Config {
	return m.cfg
}

// Index exposes the underlying step index snapshot cache.
func (m *MasterIndex) Index() *stepindex.Index {
	return m.index
}

// RebuildIndex replaces the index from an externally supplied raw list.
func (m *MasterIndex) RebuildIndex(raws []types.RawDefinition) {
	m.index.Rebuild(raws)
}

// InvalidateIndex clears the cached snapshot; the next read rebuilds from
// a fresh project scan.
func (m *MasterIndex) InvalidateIndex() {
	m.index.Invalidate()
}

// Search ranks indexed definitions against query, filtered by group labels
// and screen tag.
func (m *MasterIndex) Search(query string, groups []string, screen string) (results []types.SearchResult) {
	defer recoverBulk("search", func() { results = nil })
	return m.engine.Find(query, groups, screen)
}

// FindMissing reports scenario step references no definition matches.
func (m *MasterIndex) FindMissing(refs []types.ScenarioStepReference) (missing []types.MissingStep) {
	defer recoverBulk("find-missing", func() { missing = nil })
	return m.reconciler.FindMissing(refs, m.index)
}

// FindMissingInProject parses the project's feature files and reconciles
// every step reference in them.
func (m *MasterIndex) FindMissingInProject() (missing []types.MissingStep) {
	defer recoverBulk("find-missing", func() { missing = nil })
	refs := m.reconciler.StepReferences(m.features())
	return m.reconciler.FindMissing(refs, m.index)
}

// CountFeatureFiles counts feature files surviving the exclusion filter.
func (m *MasterIndex) CountFeatureFiles() (n int) {
	defer recoverBulk("count-features", func() { n = 0 })
	return m.reconciler.CountFeatureFiles(m.features())
}

// CountScenarios counts scenarios with outline expansion by example rows.
func (m *MasterIndex) CountScenarios() (n int) {
	defer recoverBulk("count-scenarios", func() { n = 0 })
	return m.reconciler.CountScenarios(m.features())
}

// CountStepDefinitions returns the number of compiled definitions.
func (m *MasterIndex) CountStepDefinitions() int {
	return m.index.Len()
}

// GroupCounts returns definitions per group label.
func (m *MasterIndex) GroupCounts() map[string]int {
	return m.index.GroupCounts()
}

// ScreenCounts returns definitions per screen tag.
func (m *MasterIndex) ScreenCounts() map[string]int {
	return m.index.ScreenCounts()
}

func (m *MasterIndex) features() []*gherkin.Feature {
	features, err := m.scanner.ParseFeatures()
	if err != nil {
		log.Printf("Warning: feature scan incomplete: %v", err)
	}
	return features
}

// StartWatching begins filesystem watching; relevant changes invalidate
// the index wholesale after the configured debounce.
func (m *MasterIndex) StartWatching() error {
	if m.watcher != nil {
		return nil
	}
	w, err := NewWatcher(m.cfg, m.scanner, func([]string) {
		m.InvalidateIndex()
	})
	if err != nil {
		return err
	}
	if err := w.Start(m.cfg.Project.Root); err != nil {
		_ = w.Stop()
		return err
	}
	m.watcher = w
	return nil
}

// Close stops the watcher if one is running.
func (m *MasterIndex) Close() error {
	if m.watcher == nil {
		return nil
	}
	err := m.watcher.Stop()
	m.watcher = nil
	return err
}

// recoverBulk converts a panic inside a bulk operation into an empty
// result. Queries must never crash a caller mid-keystroke.
func recoverBulk(op string, reset func()) {
	if r := recover(); r != nil {
		log.Printf("recovered from panic during %s: %v", op, r)
		reset()
	}
}
