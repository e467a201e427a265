package stepindex

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/stepdex/internal/types"
)

func TestRebuildCompilesDefinitions(t *testing.T) {
	ix := New(nil)
	ix.Rebuild([]types.RawDefinition{
		{Text: "I log in", SourcePath: "a.go", Line: 1, GroupLabel: "a.go"},
		{Text: `^I wait (\d+) seconds$`, SourcePath: "a.go", Line: 2, GroupLabel: "a.go"},
	})

	defs := ix.Definitions()
	require.Len(t, defs, 2)
	assert.True(t, defs[0].Pattern.Matches("i LOG in"))
	assert.True(t, defs[1].Pattern.Matches("I wait 30 seconds"))
	assert.Equal(t, 2, ix.Len())
	assert.Empty(t, ix.CompileFailures())
}

func TestRebuildDropsBadDefinitions(t *testing.T) {
	ix := New(nil)
	ix.Rebuild([]types.RawDefinition{
		{Text: "I log in", SourcePath: "a.go", Line: 1},
		{Text: `I wait \d+ (seconds`, SourcePath: "a.go", Line: 2},
		{Text: "I log out", SourcePath: "a.go", Line: 3},
	})

	// One malformed regex never poisons the rest of the corpus
	assert.Equal(t, 2, ix.Len())
	failures := ix.CompileFailures()
	require.Len(t, failures, 1)
	assert.Equal(t, 2, failures[0].Raw.Line)
	assert.Error(t, failures[0].Err)
}

func TestLazyBuildFromSource(t *testing.T) {
	var calls atomic.Int32
	source := SourceFunc(func() ([]types.RawDefinition, error) {
		calls.Add(1)
		return []types.RawDefinition{{Text: "I log in", SourcePath: "a.go", Line: 1}}, nil
	})
	ix := New(source)

	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 1, ix.Len())
	assert.Equal(t, 1, ix.Len())
	assert.Equal(t, int32(1), calls.Load(), "snapshot reads must not re-collect")
}

func TestInvalidateTriggersRebuild(t *testing.T) {
	var calls atomic.Int32
	source := SourceFunc(func() ([]types.RawDefinition, error) {
		n := calls.Add(1)
		defs := []types.RawDefinition{{Text: "I log in", SourcePath: "a.go", Line: 1}}
		if n > 1 {
			defs = append(defs, types.RawDefinition{Text: "I log out", SourcePath: "a.go", Line: 2})
		}
		return defs, nil
	})
	ix := New(source)

	assert.Equal(t, 1, ix.Len())
	first := ix.BuiltAt()

	ix.Invalidate()
	assert.Equal(t, 2, ix.Len())
	assert.Equal(t, int32(2), calls.Load())
	assert.NotEqual(t, first, ix.BuiltAt())
}

func TestBuiltAtStableForIdenticalCorpus(t *testing.T) {
	raws := []types.RawDefinition{
		{Text: "I log in", SourcePath: "a.go", Line: 1},
		{Text: "I log out", SourcePath: "a.go", Line: 2},
	}
	a, b := New(nil), New(nil)
	a.Rebuild(raws)
	b.Rebuild(raws)
	assert.Equal(t, a.BuiltAt(), b.BuiltAt())
}

func TestSourceErrorDegradesToEmpty(t *testing.T) {
	source := SourceFunc(func() ([]types.RawDefinition, error) {
		return nil, errors.New("scan failed")
	})
	ix := New(source)

	assert.Equal(t, 0, ix.Len())
	assert.Empty(t, ix.Definitions())
}

func TestScreenAndGroupCounts(t *testing.T) {
	ix := New(nil)
	ix.Rebuild([]types.RawDefinition{
		{Text: "Login: I log in", GroupLabel: "login.go"},
		{Text: "Login: I log out", GroupLabel: "login.go"},
		{Text: "I wait", GroupLabel: "common.go"},
	})

	assert.Equal(t, map[string]int{"login.go": 2, "common.go": 1}, ix.GroupCounts())
	// Untagged definitions carry no screen entry at all
	assert.Equal(t, map[string]int{"Login": 2}, ix.ScreenCounts())
}

func TestConcurrentReadsDuringInvalidate(t *testing.T) {
	source := SourceFunc(func() ([]types.RawDefinition, error) {
		return []types.RawDefinition{
			{Text: "I log in", SourcePath: "a.go", Line: 1},
			{Text: "I log out", SourcePath: "a.go", Line: 2},
		}, nil
	})
	ix := New(source)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				// Readers always see a complete snapshot: 2 or nothing mid-build,
				// never a partial count
				assert.Equal(t, 2, ix.Len())
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				ix.Invalidate()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, ix.Len())
}

func TestPatterns(t *testing.T) {
	ix := New(nil)
	ix.Rebuild([]types.RawDefinition{
		{Text: "I log in"},
		{Text: "I log out"},
	})

	patterns := ix.Patterns()
	require.Len(t, patterns, 2)
	assert.True(t, patterns[0].Matches("I log in"))
	assert.True(t, patterns[1].Matches("I log out"))
}
