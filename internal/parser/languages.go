package parser

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// groupStrategy decides where a definition's group label comes from.
type groupStrategy int

const (
	groupFromFile groupStrategy = iota
	groupFromClass
	groupFromFunction
)

// langSpec describes one language's step-definition convention: which
// syntax nodes carry patterns (attribute, annotation, decorator or call
// expression) and which identifiers mark a step site.
type langSpec struct {
	name     string
	exts     []string
	query    string
	keywords map[string]bool // lowercased identifier names accepted as step markers
	group    groupStrategy

	// groupKinds maps ancestor node kinds to the field holding their name,
	// for class/function group strategies.
	groupKinds map[string]string
}

func keywordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// languageSpecs covers the ecosystems with a syntax-level step-definition
// convention. Behat (PHP) keeps patterns in docblock comments and
// cucumber-rs (Rust) in macro token trees; neither yields stable syntax
// nodes, so they are not scanned.
var languageSpecs = []langSpec{
	{
		name: "go",
		exts: []string{".go"},
		// godog call style: ctx.Step(`^pattern$`, fn), ctx.Given(...) etc.
		query: `
            (call_expression
                function: (selector_expression
                    field: (field_identifier) @name)
                arguments: (argument_list
                    [(raw_string_literal) (interpreted_string_literal)] @pattern))
        `,
		keywords:   keywordSet("step", "given", "when", "then"),
		group:      groupFromFunction,
		groupKinds: map[string]string{"function_declaration": "name", "method_declaration": "name"},
	},
	{
		name: "csharp",
		exts: []string{".cs"},
		// SpecFlow / Reqnroll attribute style: [Given("pattern")].
		query: `
            (attribute
                name: [(identifier) (qualified_name)] @name
                (attribute_argument_list
                    (attribute_argument
                        [(string_literal) (verbatim_string_literal)] @pattern)))
        `,
		keywords:   keywordSet("given", "when", "then", "stepdefinition"),
		group:      groupFromClass,
		groupKinds: map[string]string{"class_declaration": "name"},
	},
	{
		name: "java",
		exts: []string{".java"},
		// Cucumber-JVM annotation style: @Given("pattern").
		query: `
            (annotation
                name: (identifier) @name
                arguments: (annotation_argument_list
                    (string_literal) @pattern))
        `,
		keywords:   keywordSet("given", "when", "then", "and", "but"),
		group:      groupFromClass,
		groupKinds: map[string]string{"class_declaration": "name"},
	},
	{
		name: "javascript",
		exts: []string{".js", ".jsx"},
		// cucumber-js call style: Given('pattern', fn).
		query: `
            (call_expression
                function: (identifier) @name
                arguments: (arguments
                    [(string) (template_string)] @pattern))
        `,
		keywords: keywordSet("given", "when", "then", "definestep"),
		group:    groupFromFile,
	},
	{
		name: "typescript",
		exts: []string{".ts", ".tsx"},
		query: `
            (call_expression
                function: (identifier) @name
                arguments: (arguments
                    [(string) (template_string)] @pattern))
        `,
		keywords: keywordSet("given", "when", "then", "definestep"),
		group:    groupFromFile,
	},
	{
		name: "python",
		exts: []string{".py"},
		// behave decorator style: @given("pattern").
		query: `
            (decorator
                (call
                    function: (identifier) @name
                    arguments: (argument_list
                        (string) @pattern)))
        `,
		keywords: keywordSet("given", "when", "then", "step"),
		group:    groupFromFile,
	},
}

func grammarFor(name string) *tree_sitter.Language {
	switch name {
	case "go":
		return tree_sitter.NewLanguage(tree_sitter_go.Language())
	case "csharp":
		return tree_sitter.NewLanguage(tree_sitter_csharp.Language())
	case "java":
		return tree_sitter.NewLanguage(tree_sitter_java.Language())
	case "javascript":
		return tree_sitter.NewLanguage(tree_sitter_javascript.Language())
	case "typescript":
		return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	case "python":
		return tree_sitter.NewLanguage(tree_sitter_python.Language())
	default:
		return nil
	}
}

// SupportedExtensions returns the file extensions the scanner should feed
// to the parser, optionally limited to the named languages.
func SupportedExtensions(languages []string) map[string]bool {
	wanted := make(map[string]bool, len(languages))
	for _, l := range languages {
		wanted[l] = true
	}
	exts := make(map[string]bool)
	for _, spec := range languageSpecs {
		if len(wanted) > 0 && !wanted[spec.name] {
			continue
		}
		for _, ext := range spec.exts {
			exts[ext] = true
		}
	}
	return exts
}
