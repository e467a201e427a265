// Package pattern compiles human-authored step-definition text into
// deterministic matchers. Authors write three dialects, often mixed within
// one codebase: plain literals ("I log in"), regular expressions
// (`^I wait (\d+) seconds$`), and cucumber-expression templates
// ("I log in with {string}"). The compiler normalizes all three into a
// single anchored, case-insensitive regexp.
package pattern

import (
	"regexp"
	"strings"
)

// placeholderRe matches one {…} template token, non-greedy, no nesting.
var placeholderRe = regexp.MustCompile(`\{[^{}]*?\}`)

// Compiled is an anchored, case-insensitive matcher plus the information
// needed to regenerate a display form. The regexp matches full candidate
// strings only, never a prefix.
type Compiled struct {
	re        *regexp.Regexp
	raw       string
	templated bool // built by escaping literal segments (step 2)
}

// Compile turns one raw step-definition string into a matcher.
//
// Raw text that already looks like regex syntax (leading ^, trailing $,
// any backslash, or a balanced pair of parentheses) is taken verbatim and
// only anchored. Anything else is treated as a template: {…} placeholders
// become wildcards and every literal segment is escaped exactly.
//
// A compilation error means malformed regex syntax survived detection; the
// caller decides whether to drop the definition, other definitions are
// unaffected.
func Compile(raw string) (*Compiled, error) {
	var expr string
	templated := false

	if looksLikeRegex(raw) {
		expr = raw
		if !strings.HasPrefix(expr, "^") {
			expr = "^" + expr
		}
		if !strings.HasSuffix(expr, "$") {
			expr += "$"
		}
	} else {
		segments := placeholderRe.Split(raw, -1)
		escaped := make([]string, len(segments))
		for i, seg := range segments {
			escaped[i] = regexp.QuoteMeta(seg)
		}
		expr = "^" + strings.Join(escaped, ".*") + "$"
		templated = true
	}

	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, err
	}
	return &Compiled{re: re, raw: raw, templated: templated}, nil
}

// looksLikeRegex reports whether raw is authored regex syntax rather than
// a literal or template. Parentheses count only as a pair; a lone "(" in
// prose text is not a capture group.
func looksLikeRegex(raw string) bool {
	if strings.HasPrefix(raw, "^") || strings.HasSuffix(raw, "$") {
		return true
	}
	if strings.Contains(raw, `\`) {
		return true
	}
	return strings.Contains(raw, "(") && strings.Contains(raw, ")")
}

// Matches reports whether text matches the full pattern, case-insensitively.
func (c *Compiled) Matches(text string) bool {
	return c.re.MatchString(text)
}

// Raw returns the definition text exactly as authored.
func (c *Compiled) Raw() string {
	return c.raw
}

// Display returns a human-readable form of the pattern: anchors stripped,
// and for templated patterns the escape markers removed and each wildcard
// rendered as a {string} placeholder, approximating the authored text.
func (c *Compiled) Display() string {
	expr := c.re.String()
	expr = strings.TrimPrefix(expr, "(?i)")
	expr = strings.TrimPrefix(expr, "^")
	expr = strings.TrimSuffix(expr, "$")
	if c.templated {
		expr = strings.ReplaceAll(expr, ".*", "{string}")
		expr = strings.ReplaceAll(expr, `\`, "")
	}
	return expr
}

// ScreenTag extracts the optional leading "Label:" classification from raw
// step text. The colon must come strictly before the first space (or the
// text has no space at all), so clock-time substrings such as
// "Wait 12:00 for response" are not misread as tags.
func ScreenTag(raw string) string {
	colon := strings.Index(raw, ":")
	if colon < 0 {
		return ""
	}
	if space := strings.Index(raw, " "); space >= 0 && colon > space {
		return ""
	}
	return strings.TrimSpace(raw[:colon])
}
