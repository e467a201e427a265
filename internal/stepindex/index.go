// Package stepindex owns the compiled set of step definitions. The cache is
// a single-slot immutable snapshot behind an atomic pointer: readers always
// observe either the previous complete snapshot or the next one, never a
// partially built state.
package stepindex

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/stepdex/internal/debug"
	sderrors "github.com/standardbeagle/stepdex/internal/errors"
	"github.com/standardbeagle/stepdex/internal/pattern"
	"github.com/standardbeagle/stepdex/internal/types"
)

// StepDefinition is one compiled entry. Immutable once constructed; owned
// exclusively by the index and replaced wholesale on rebuild.
type StepDefinition struct {
	Pattern    *pattern.Compiled
	SourcePath string
	Line       int
	GroupLabel string
	ScreenTag  string
}

// DefinitionSource supplies the raw definition corpus for a (re)build.
// Collection may be slow; the index calls it only when no snapshot is
// cached, never on the snapshot read path.
type DefinitionSource interface {
	ListStepDefinitions() ([]types.RawDefinition, error)
}

// SourceFunc adapts a function to the DefinitionSource interface.
type SourceFunc func() ([]types.RawDefinition, error)

func (f SourceFunc) ListStepDefinitions() ([]types.RawDefinition, error) { return f() }

// CompileFailure records a definition dropped during a build. Kept for
// diagnostics; never fatal to the build.
type CompileFailure struct {
	Raw types.RawDefinition
	Err error
}

type snapshot struct {
	definitions []StepDefinition
	builtAt     uint64
	failures    []CompileFailure
}

// Index is the cached, atomically swapped snapshot of compiled definitions.
// The zero value is not usable; construct with New.
type Index struct {
	source DefinitionSource

	cur     atomic.Pointer[snapshot]
	buildMu sync.Mutex // serializes lazy rebuilds; readers never take it
}

// New creates an index that builds lazily from source on first read.
func New(source DefinitionSource) *Index {
	return &Index{source: source}
}

// Rebuild discards any cached snapshot and builds a fresh one from the
// supplied raw definitions. Definitions that fail compilation are dropped
// and logged; the rest of the corpus is unaffected.
func (ix *Index) Rebuild(raws []types.RawDefinition) {
	ix.cur.Store(build(raws))
}

// Invalidate clears the cache. The next read triggers a full rebuild from
// the definition source.
func (ix *Index) Invalidate() {
	ix.cur.Store(nil)
}

// snapshotOrBuild returns the current snapshot, building one from the
// source if the cache is empty. A source failure degrades to an empty
// snapshot rather than failing the reader.
func (ix *Index) snapshotOrBuild() *snapshot {
	if s := ix.cur.Load(); s != nil {
		return s
	}

	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()
	// Another caller may have built while we waited.
	if s := ix.cur.Load(); s != nil {
		return s
	}

	var raws []types.RawDefinition
	if ix.source != nil {
		var err error
		raws, err = ix.source.ListStepDefinitions()
		if err != nil {
			debug.LogIndexing("definition source unavailable: %v\n", err)
			raws = nil
		}
	}
	s := build(raws)
	ix.cur.Store(s)
	return s
}

func build(raws []types.RawDefinition) *snapshot {
	defs := make([]StepDefinition, 0, len(raws))
	var failures []CompileFailure

	h := xxhash.New()
	for _, raw := range raws {
		compiled, err := pattern.Compile(raw.Text)
		if err != nil {
			cerr := sderrors.NewCompileError(raw.Text, raw.SourcePath, raw.Line, err)
			debug.LogIndexing("dropping definition: %v\n", cerr)
			failures = append(failures, CompileFailure{Raw: raw, Err: cerr})
			continue
		}
		defs = append(defs, StepDefinition{
			Pattern:    compiled,
			SourcePath: raw.SourcePath,
			Line:       raw.Line,
			GroupLabel: raw.GroupLabel,
			ScreenTag:  pattern.ScreenTag(raw.Text),
		})
		_, _ = h.WriteString(raw.Text)
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(raw.SourcePath)
		_, _ = h.WriteString(":" + strconv.Itoa(raw.Line) + "\n")
	}

	return &snapshot{definitions: defs, builtAt: h.Sum64(), failures: failures}
}

// Definitions returns the compiled definitions of the current snapshot,
// building lazily if needed. The returned slice is shared and must not be
// mutated.
func (ix *Index) Definitions() []StepDefinition {
	return ix.snapshotOrBuild().definitions
}

// Patterns returns the matchers only, in definition order.
func (ix *Index) Patterns() []*pattern.Compiled {
	defs := ix.Definitions()
	out := make([]*pattern.Compiled, len(defs))
	for i := range defs {
		out[i] = defs[i].Pattern
	}
	return out
}

// GroupCounts returns how many definitions each group label carries.
func (ix *Index) GroupCounts() map[string]int {
	counts := make(map[string]int)
	for _, d := range ix.Definitions() {
		counts[d.GroupLabel]++
	}
	return counts
}

// ScreenCounts returns how many definitions carry each screen tag.
// Definitions without a tag are excluded.
func (ix *Index) ScreenCounts() map[string]int {
	counts := make(map[string]int)
	for _, d := range ix.Definitions() {
		if d.ScreenTag != "" {
			counts[d.ScreenTag]++
		}
	}
	return counts
}

// Len returns the number of compiled definitions.
func (ix *Index) Len() int {
	return len(ix.Definitions())
}

// BuiltAt returns the snapshot token: a hash of the raw corpus the current
// snapshot was built from. Two snapshots with the same token were built
// from identical input sequences.
func (ix *Index) BuiltAt() uint64 {
	return ix.snapshotOrBuild().builtAt
}

// CompileFailures returns the definitions dropped while building the
// current snapshot.
func (ix *Index) CompileFailures() []CompileFailure {
	return ix.snapshotOrBuild().failures
}
