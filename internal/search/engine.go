// Package search ranks step-definition display text against free-text
// queries. The scoring is purpose-built for step patterns and documented in
// score.go; it is intentionally not a general fuzzy-matching layer.
package search

import (
	"sort"

	"github.com/standardbeagle/stepdex/internal/debug"
	"github.com/standardbeagle/stepdex/internal/stepindex"
	"github.com/standardbeagle/stepdex/internal/types"
)

// Engine ranks the step index's display strings by relevance. It only
// borrows read access to the index snapshot and keeps no state of its own,
// so identical calls against an unchanged index return identical output.
type Engine struct {
	index *stepindex.Index
}

// NewEngine creates a search engine over the given index.
func NewEngine(index *stepindex.Index) *Engine {
	return &Engine{index: index}
}

type candidate struct {
	result types.SearchResult
	score  int
}

// Find returns definitions matching query, best first. An empty groups
// slice and empty screen mean unfiltered; a blank query returns all
// survivors in display-text order.
func (e *Engine) Find(query string, groups []string, screen string) []types.SearchResult {
	groupSet := make(map[string]bool, len(groups))
	for _, g := range groups {
		groupSet[g] = true
	}

	var survivors []candidate
	for _, def := range e.index.Definitions() {
		if len(groupSet) > 0 && !groupSet[def.GroupLabel] {
			continue
		}
		if screen != "" && def.ScreenTag != screen {
			continue
		}
		survivors = append(survivors, candidate{result: types.SearchResult{
			DisplayText: def.Pattern.Display(),
			SourcePath:  def.SourcePath,
			Line:        def.Line,
		}})
	}

	if query == "" {
		sort.Slice(survivors, func(i, j int) bool {
			return survivors[i].result.DisplayText < survivors[j].result.DisplayText
		})
		return collect(survivors)
	}

	scored := survivors[:0]
	for _, c := range survivors {
		score, ok := Score(c.result.DisplayText, query)
		if !ok {
			continue
		}
		c.score = score
		scored = append(scored, c)
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].result.DisplayText < scored[j].result.DisplayText
	})

	debug.LogSearch("query %q matched %d of %d definitions\n", query, len(scored), e.index.Len())
	return collect(scored)
}

func collect(cs []candidate) []types.SearchResult {
	out := make([]types.SearchResult, len(cs))
	for i, c := range cs {
		out[i] = c.result
	}
	return out
}
