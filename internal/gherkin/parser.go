// Package gherkin is a line-based parser for .feature files. It extracts
// the structure the reconciliation engine needs and tolerates malformed
// input: unknown lines are description text and never abort a parse.
package gherkin

import (
	"strings"
)

var stepKeywords = []string{"Given ", "When ", "Then ", "And ", "But ", "* "}

// Parse parses one feature file. It never fails: files mid-edit produce a
// partial but well-formed Feature.
func Parse(sourcePath string, content []byte) *Feature {
	feature := &Feature{SourcePath: sourcePath}

	lines := strings.Split(string(content), "\n")

	// Parser position: inside an outline (so Examples: tables attach to
	// it), inside an examples table (so pipe rows count as data), inside a
	// doc string (so step keywords in payload text are ignored).
	var (
		inOutline    bool
		inExamples   bool
		seenHeader   bool
		docDelim     string
		currentBlock *ExampleBlock
	)

	flushBlock := func() {
		if currentBlock != nil && len(feature.Outlines) > 0 {
			last := &feature.Outlines[len(feature.Outlines)-1]
			last.Examples = append(last.Examples, *currentBlock)
			currentBlock = nil
		}
	}

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		lineNo := i + 1

		if docDelim != "" {
			if strings.HasPrefix(line, docDelim) {
				docDelim = ""
			}
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "@") {
			continue
		}
		if strings.HasPrefix(line, `"""`) || strings.HasPrefix(line, "```") {
			docDelim = line[:3]
			continue
		}

		switch {
		case strings.HasPrefix(line, "Feature:"):
			feature.Name = strings.TrimSpace(strings.TrimPrefix(line, "Feature:"))
			feature.Line = lineNo

		case strings.HasPrefix(line, "Background:"):
			flushBlock()
			inOutline, inExamples = false, false

		case strings.HasPrefix(line, "Scenario Outline:") || strings.HasPrefix(line, "Scenario Template:"):
			flushBlock()
			name := strings.TrimSpace(line[strings.Index(line, ":")+1:])
			feature.Outlines = append(feature.Outlines, Outline{Name: name, Line: lineNo})
			inOutline, inExamples = true, false

		case strings.HasPrefix(line, "Scenario:") || strings.HasPrefix(line, "Example:"):
			flushBlock()
			name := strings.TrimSpace(line[strings.Index(line, ":")+1:])
			feature.Scenarios = append(feature.Scenarios, Scenario{Name: name, Line: lineNo})
			inOutline, inExamples = false, false

		case strings.HasPrefix(line, "Examples:") || strings.HasPrefix(line, "Scenarios:"):
			flushBlock()
			if inOutline {
				currentBlock = &ExampleBlock{Line: lineNo}
				inExamples = true
				seenHeader = false
			}

		case strings.HasPrefix(line, "|"):
			if inExamples && currentBlock != nil {
				if !seenHeader {
					seenHeader = true
				} else {
					currentBlock.RowCount++
				}
			}
			// Pipe rows outside Examples are step data tables; skipped.

		default:
			if keyword, text, ok := splitStep(line); ok {
				flushBlock()
				inExamples = false
				feature.Steps = append(feature.Steps, Step{Keyword: keyword, Text: text, Line: lineNo})
			}
			// Anything else is description text.
		}
	}
	flushBlock()

	return feature
}

func splitStep(line string) (keyword, text string, ok bool) {
	for _, kw := range stepKeywords {
		if strings.HasPrefix(line, kw) {
			return strings.TrimSpace(kw), strings.TrimSpace(line[len(kw):]), true
		}
	}
	return "", "", false
}
