// Package parser extracts step-definition sites from source files using
// tree-sitter. Each supported ecosystem declares its sites differently
// (C# attributes, Java annotations, Python decorators, Go and JS call
// expressions) and all of that polymorphism ends here: the output is the
// normalized RawDefinition shape regardless of origin.
package parser

import (
	"path/filepath"
	"strconv"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/stepdex/internal/debug"
	"github.com/standardbeagle/stepdex/internal/types"
)

type compiledLang struct {
	spec   langSpec
	parser *tree_sitter.Parser
	query  *tree_sitter.Query
}

// StepParser parses source files and extracts step-definition sites.
// A StepParser is not safe for concurrent use; create one per goroutine.
type StepParser struct {
	byExt map[string]*compiledLang
}

// NewStepParser builds parsers and queries for the requested languages
// (empty = all supported). Languages whose grammar or query fails to load
// are skipped; extraction for the rest is unaffected.
func NewStepParser(languages []string) *StepParser {
	wanted := make(map[string]bool, len(languages))
	for _, l := range languages {
		wanted[strings.ToLower(l)] = true
	}

	p := &StepParser{byExt: make(map[string]*compiledLang)}
	for _, spec := range languageSpecs {
		if len(wanted) > 0 && !wanted[spec.name] {
			continue
		}
		language := grammarFor(spec.name)
		if language == nil {
			continue
		}
		tsParser := tree_sitter.NewParser()
		if err := tsParser.SetLanguage(language); err != nil {
			debug.LogScan("language %s unavailable: %v\n", spec.name, err)
			continue
		}
		query, err := tree_sitter.NewQuery(language, spec.query)
		if err != nil || query == nil {
			debug.LogScan("query for %s failed to compile\n", spec.name)
			continue
		}
		cl := &compiledLang{spec: spec, parser: tsParser, query: query}
		for _, ext := range spec.exts {
			p.byExt[ext] = cl
		}
	}
	return p
}

// Handles reports whether path has an extension the parser can process.
func (p *StepParser) Handles(path string) bool {
	_, ok := p.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ExtractFile returns the step-definition sites found in one source file.
// Unparseable content yields no definitions, never an error: files mid-edit
// are expected.
func (p *StepParser) ExtractFile(path string, content []byte) []types.RawDefinition {
	cl, ok := p.byExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil
	}

	tree := cl.parser.Parse(content, nil)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()
	matches := qc.Matches(cl.query, tree.RootNode(), content)
	captureNames := cl.query.CaptureNames()

	var defs []types.RawDefinition
	for {
		match := matches.Next()
		if match == nil {
			break
		}

		var nameNode, patternNode *tree_sitter.Node
		for i := range match.Captures {
			c := &match.Captures[i]
			switch captureNames[c.Index] {
			case "name":
				nameNode = &c.Node
			case "pattern":
				patternNode = &c.Node
			}
		}
		if nameNode == nil || patternNode == nil {
			continue
		}

		marker := nodeText(nameNode, content)
		// Qualified attribute names keep only the final segment
		// (Reqnroll.Given -> Given).
		if dot := strings.LastIndex(marker, "."); dot >= 0 {
			marker = marker[dot+1:]
		}
		if !cl.spec.keywords[strings.ToLower(marker)] {
			continue
		}

		text := unquote(nodeText(patternNode, content), patternNode.Kind())
		if text == "" {
			continue
		}

		defs = append(defs, types.RawDefinition{
			Text:       text,
			SourcePath: path,
			Line:       int(patternNode.StartPosition().Row) + 1,
			GroupLabel: p.groupLabel(cl.spec, patternNode, path, content),
		})
	}

	debug.LogScan("extracted %d definitions from %s\n", len(defs), path)
	return defs
}

func (p *StepParser) groupLabel(spec langSpec, node *tree_sitter.Node, path string, content []byte) string {
	switch spec.group {
	case groupFromClass, groupFromFunction:
		if name := enclosingName(node, spec.groupKinds, content); name != "" {
			return name
		}
	}
	return fileBase(path)
}

// enclosingName walks up from node looking for an ancestor of one of the
// given kinds and returns its name field text.
func enclosingName(node *tree_sitter.Node, kinds map[string]string, content []byte) string {
	for parent := node.Parent(); parent != nil; parent = parent.Parent() {
		field, ok := kinds[parent.Kind()]
		if !ok {
			continue
		}
		if nameNode := parent.ChildByFieldName(field); nameNode != nil {
			return nodeText(nameNode, content)
		}
	}
	return ""
}

func fileBase(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func nodeText(node *tree_sitter.Node, content []byte) string {
	start, end := int(node.StartByte()), int(node.EndByte())
	if start < 0 || end > len(content) || start > end {
		return ""
	}
	return string(content[start:end])
}

// unquote recovers the authored pattern text from a string-literal node.
// Raw and verbatim forms keep their content as written; escaped forms are
// unescaped, so `"^I have (\\d+)$"` yields the single-backslash regex the
// author meant.
func unquote(literal, kind string) string {
	s := literal

	switch kind {
	case "raw_string_literal", "template_string":
		return strings.Trim(s, "`")
	case "verbatim_string_literal":
		s = strings.TrimPrefix(s, "@")
		s = trimQuote(s, '"')
		return strings.ReplaceAll(s, `""`, `"`)
	}

	// Python-style prefixes (r"...", u'...') and triple quotes. Raw-prefix
	// strings keep backslashes as written; the prefix only needs stripping.
	rawPrefix := strings.ContainsAny(firstQuoteRun(s), "rR")
	s = strings.TrimLeft(s, "rRbBuUfF")
	for _, triple := range []string{`"""`, "'''"} {
		if strings.HasPrefix(s, triple) && strings.HasSuffix(s, triple) && len(s) >= 6 {
			return s[3 : len(s)-3]
		}
	}
	if len(s) < 2 || (s[0] != '"' && s[0] != '\'') {
		return s
	}
	if rawPrefix {
		return trimQuote(s, rune(s[0]))
	}
	if s[0] == '"' {
		if unquoted, err := strconv.Unquote(s); err == nil {
			return unquoted
		}
		return trimQuote(s, '"')
	}
	s = trimQuote(s, '\'')
	s = strings.ReplaceAll(s, `\'`, `'`)
	return strings.ReplaceAll(s, `\\`, `\`)
}

// firstQuoteRun returns the literal's prefix letters before the opening
// quote (Python r/b/u/f markers).
func firstQuoteRun(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\'' {
			return s[:i]
		}
	}
	return ""
}

func trimQuote(s string, q rune) string {
	if len(s) >= 2 && rune(s[0]) == q && rune(s[len(s)-1]) == q {
		return s[1 : len(s)-1]
	}
	return s
}
