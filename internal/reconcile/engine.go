// Package reconcile checks scenario step references against the compiled
// step index and reports the references no definition matches.
package reconcile

import (
	"strings"

	"github.com/standardbeagle/stepdex/internal/gherkin"
	"github.com/standardbeagle/stepdex/internal/stepindex"
	"github.com/standardbeagle/stepdex/internal/types"
	"github.com/standardbeagle/stepdex/pkg/pathutil"
)

// Engine partitions step references into matched and unmatched. Read-only
// over the index snapshot; safe for concurrent use.
type Engine struct {
	excluded []string
}

// NewEngine creates a reconciliation engine. Paths containing any of the
// excluded fragments (compared separator-normalized) are dropped from every
// operation.
func NewEngine(excludedFragments []string) *Engine {
	return &Engine{excluded: excludedFragments}
}

// Excluded reports whether path matches a configured excluded fragment,
// under either path-separator spelling.
func (e *Engine) Excluded(path string) bool {
	for _, fragment := range e.excluded {
		if pathutil.ContainsFragment(path, fragment) {
			return true
		}
	}
	return false
}

// FindMissing returns the references whose trimmed text no compiled
// definition pattern fully matches. Matcher evaluation short-circuits at
// the first match; evaluation order never changes the result, only
// existence matters.
func (e *Engine) FindMissing(refs []types.ScenarioStepReference, index *stepindex.Index) []types.MissingStep {
	defs := index.Definitions()

	var missing []types.MissingStep
	for _, ref := range refs {
		if e.Excluded(ref.SourcePath) {
			continue
		}
		text := strings.TrimSpace(ref.Text)
		matched := false
		for i := range defs {
			if defs[i].Pattern.Matches(text) {
				matched = true
				break
			}
		}
		if !matched {
			missing = append(missing, types.MissingStep{
				Text:       text,
				SourcePath: ref.SourcePath,
				Line:       ref.Line,
			})
		}
	}
	return missing
}

// FilterFeatures drops features whose source path matches the exclusion
// filter. The same filter backs file enumeration and scenario counting.
func (e *Engine) FilterFeatures(features []*gherkin.Feature) []*gherkin.Feature {
	kept := make([]*gherkin.Feature, 0, len(features))
	for _, f := range features {
		if !e.Excluded(f.SourcePath) {
			kept = append(kept, f)
		}
	}
	return kept
}

// CountScenarios counts plain scenarios as 1 each and outlines as their
// example data-row total. An outline with no data rows still counts as 1
// so it stays visible in the total.
func (e *Engine) CountScenarios(features []*gherkin.Feature) int {
	total := 0
	for _, f := range e.FilterFeatures(features) {
		total += len(f.Scenarios)
		for _, outline := range f.Outlines {
			rows := outline.ExampleRows()
			if rows == 0 {
				rows = 1
			}
			total += rows
		}
	}
	return total
}

// CountFeatureFiles counts the features surviving the exclusion filter.
func (e *Engine) CountFeatureFiles(features []*gherkin.Feature) int {
	return len(e.FilterFeatures(features))
}

// StepReferences flattens the step references of all non-excluded features.
func (e *Engine) StepReferences(features []*gherkin.Feature) []types.ScenarioStepReference {
	var refs []types.ScenarioStepReference
	for _, f := range e.FilterFeatures(features) {
		for _, step := range f.Steps {
			refs = append(refs, types.ScenarioStepReference{
				Text:       step.Text,
				SourcePath: f.SourcePath,
				Line:       step.Line,
			})
		}
	}
	return refs
}
