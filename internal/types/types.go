package types

// Shared data model for the step index. All components exchange these
// normalized shapes; the origin of a definition site (attribute, annotation
// or call expression) is resolved by the scanner and never leaks past it.

// RawDefinition is one discovered step-definition site before compilation.
type RawDefinition struct {
	Text       string // pattern text exactly as authored
	SourcePath string
	Line       int // 1-based
	GroupLabel string
}

// ScenarioStepReference is one step line inside a feature file. Transient:
// supplied per reconciliation call, never stored in the index.
type ScenarioStepReference struct {
	Text       string
	SourcePath string
	Line       int
}

// SearchResult is one ranked hit from the fuzzy search engine.
type SearchResult struct {
	DisplayText string
	SourcePath  string
	Line        int
}

// MissingStep reports a scenario step reference that no compiled
// definition pattern fully matches.
type MissingStep struct {
	Text       string
	SourcePath string
	Line       int
}

// Default resource limits for the project scanner.
const (
	DefaultMaxFileSize     = 10 * 1024 * 1024
	DefaultScanWorkers     = 0 // 0 = NumCPU
	DefaultWatchDebounceMs = 300
)
