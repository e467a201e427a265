package gherkin

// Parsed feature-file shapes. Only what reconciliation and counting need:
// plain scenarios, outlines with their example-row counts, and every step
// reference with its line number.

// Feature is one parsed .feature file.
type Feature struct {
	Name       string
	SourcePath string
	Line       int // 1-based line of the Feature: keyword

	Scenarios []Scenario
	Outlines  []Outline
	Steps     []Step // all step references in the file, in document order
}

// Scenario is a plain scenario node.
type Scenario struct {
	Name string
	Line int
}

// Outline is a scenario template expanded once per example data row.
type Outline struct {
	Name     string
	Line     int
	Examples []ExampleBlock
}

// ExampleBlock is one Examples: table. RowCount excludes the header row.
type ExampleBlock struct {
	Line     int
	RowCount int
}

// Step is one step reference line.
type Step struct {
	Keyword string // Given, When, Then, And, But, *
	Text    string
	Line    int
}

// ExampleRows returns the total data-row count across all example blocks.
func (o Outline) ExampleRows() int {
	total := 0
	for _, b := range o.Examples {
		total += b.RowCount
	}
	return total
}
