// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parse

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Match is a (number, name) pair recognised on one line.
type Match struct {
	Number      int
	Name        string
	Description string
	Rule        string
}

// Rule recognises one surface form of a hexagram heading.
type Rule struct {
	Name    string
	re      *regexp.Regexp
	extract func(groups []string) (Match, bool)
}

// NewRule compiles a rule whose pattern captures the number in group num
// and the name in group name. desc is the optional description group (0
// for none).
func NewRule(ruleName, pattern string, num, name, desc int) Rule {
	return Rule{
		Name: ruleName,
		re:   regexp.MustCompile(pattern),
		extract: func(g []string) (Match, bool) {
			n, err := strconv.Atoi(g[num])
			if err != nil {
				return Match{}, false
			}
			m := Match{Number: n, Name: cleanName(g[name])}
			if desc > 0 && desc < len(g) {
				m.Description = strings.TrimSpace(g[desc])
			}
			return m, m.Name != ""
		},
	}
}

// Apply reports the match for line, if any.
func (r Rule) Apply(line string) (Match, bool) {
	g := r.re.FindStringSubmatch(line)
	if g == nil {
		return Match{}, false
	}
	m, ok := r.extract(g)
	if !ok {
		return Match{}, false
	}
	m.Rule = r.Name
	return m, true
}

const (
	han = `(\p{Han}{1,3})`
	num = `(\d{1,2})`
	sep = `\s*[\s、.・]\s*`
	// pre keeps a number from being the tail of a longer digit run.
	pre = `(?:^|[^\d])`
)

// DefaultRules lists the heading forms in priority order. Lines are
// normalized by Normalize before matching, so full-width digits and
// punctuation arrive as ASCII.
var DefaultRules = []Rule{
	NewRule("numbered-described", pre+num+`\s*[.、・]\s*`+han+`\s*\(([^)]+)\)`, 1, 2, 3),
	NewRule("ordinal-gua", `第\s*`+num+`\s*卦\s*`+han, 1, 2, 0),
	NewRule("ordinal", `第\s*`+num+sep+han, 1, 2, 0),
	NewRule("numbered", pre+num+sep+han, 1, 2, 0),
	NewRule("numbered-gua", pre+num+`\s*`+han+`\s*卦`, 1, 2, 0),
	NewRule("trailing-number", han+sep+num+`(?:[^\d]|$)`, 2, 1, 0),
}

// MatchLine tries rules in order against one line; the first match wins.
func MatchLine(rules []Rule, line string) (Match, bool) {
	for _, r := range rules {
		if m, ok := r.Apply(line); ok {
			return m, true
		}
	}
	return Match{}, false
}

// Normalize applies compatibility composition and folds full-width ASCII
// variants so that "１２．乾（天）" reads as "12.乾(天)" and "⑫" reads as "12".
func Normalize(line string) string {
	return strings.TrimSpace(width.Fold.String(norm.NFKC.String(line)))
}

func cleanName(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > 1 && r[len(r)-1] == '卦' {
		s = string(r[:len(r)-1])
	}
	return s
}
