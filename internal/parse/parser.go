// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package parse turns recovered page text into candidate hexagram records.
// Each line is tried against an ordered rule list (first match wins); an
// accepted (number, name) pair opens a new candidate, and the lines that
// follow accumulate into its content block until the next accepted pair.
package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/yijing-kb/pkg/types"
)

// pageMarker recognises the "--- Page N ---" separators written between pages.
var pageMarker = regexp.MustCompile(`^---\s*(?:Page|ページ)\s*(\d+)`)

// Options configures a Parser.
type Options struct {
	// Rules are tried in order per line. Nil uses DefaultRules.
	Rules []Rule

	// Lo and Hi bound accepted numbers when EnforceRange is set. Zero
	// values default to the canonical 1..64.
	Lo, Hi       int
	EnforceRange bool

	// ContextLines captures this many lines before and after each accepted
	// heading as auxiliary context. Zero disables capture.
	ContextLines int
}

// Candidate is one accepted heading plus the content that followed it.
type Candidate struct {
	Number      int
	Name        string
	Description string
	Rule        string

	// Page is the 1-based page the heading was found on (0 if unknown).
	Page int

	// Content holds the lines between this heading and the next accepted one.
	Content []string

	// Context is the window of lines around the heading, joined by spaces.
	Context string

	line int // index into Parser.lines
}

// Block returns the content block as newline-joined text.
func (c *Candidate) Block() string {
	return strings.Join(c.Content, "\n")
}

// Rejection records a matched heading that was not accepted.
type Rejection struct {
	Match  Match
	Page   int
	Reason string
}

const (
	ReasonDuplicate  = "duplicate"
	ReasonOutOfRange = "out of range"
)

// Parser holds the running state of one extraction pass. Pages must be fed
// in order because content and candidate state carry across page breaks.
type Parser struct {
	opts       Options
	seen       map[int]bool
	candidates []*Candidate
	current    *Candidate
	rejected   []Rejection
	lines      []string
	page       int
	matched    int
}

// New returns a Parser for one extraction pass.
func New(opts Options) *Parser {
	if opts.Rules == nil {
		opts.Rules = DefaultRules
	}
	if opts.Lo == 0 {
		opts.Lo = types.MinHexagram
	}
	if opts.Hi == 0 {
		opts.Hi = types.MaxHexagram
	}
	return &Parser{opts: opts, seen: make(map[int]bool)}
}

// Feed processes the text of one page. page is 1-based; pass 0 when the
// text carries its own page markers.
func (p *Parser) Feed(page int, text string) {
	if page > 0 {
		p.page = page
	}
	for _, raw := range strings.Split(text, "\n") {
		p.feedLine(raw)
	}
}

func (p *Parser) feedLine(raw string) {
	line := Normalize(raw)
	if line == "" {
		return
	}
	if m := pageMarker.FindStringSubmatch(line); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			p.page = n
		}
		return
	}

	p.lines = append(p.lines, line)
	idx := len(p.lines) - 1

	m, ok := MatchLine(p.opts.Rules, line)
	if !ok {
		if p.current != nil {
			p.current.Content = append(p.current.Content, line)
		}
		return
	}
	p.matched++

	// Heading lines never become content, accepted or not.
	switch {
	case p.seen[m.Number]:
		p.rejected = append(p.rejected, Rejection{Match: m, Page: p.page, Reason: ReasonDuplicate})
	case p.opts.EnforceRange && (m.Number < p.opts.Lo || m.Number > p.opts.Hi):
		p.rejected = append(p.rejected, Rejection{Match: m, Page: p.page, Reason: ReasonOutOfRange})
	default:
		p.seen[m.Number] = true
		c := &Candidate{
			Number:      m.Number,
			Name:        m.Name,
			Description: m.Description,
			Rule:        m.Rule,
			Page:        p.page,
			line:        idx,
		}
		p.candidates = append(p.candidates, c)
		p.current = c
	}
}

// Candidates returns accepted candidates in discovery order with their
// context windows filled in.
func (p *Parser) Candidates() []Candidate {
	out := make([]Candidate, len(p.candidates))
	for i, c := range p.candidates {
		out[i] = *c
		out[i].Content = append([]string(nil), c.Content...)
		if k := p.opts.ContextLines; k > 0 {
			lo := max(0, c.line-k)
			hi := min(len(p.lines), c.line+k+1)
			out[i].Context = strings.Join(p.lines[lo:hi], " ")
		}
	}
	return out
}

// Rejections returns headings that matched a rule but were not accepted.
func (p *Parser) Rejections() []Rejection {
	return append([]Rejection(nil), p.rejected...)
}

// Stats reports how many non-empty lines were read and how many of them
// matched a heading rule.
func (p *Parser) Stats() (lines, matched int) {
	return len(p.lines), p.matched
}

// Sample returns up to n runes of the text read so far, for diagnosing runs
// that found nothing.
func (p *Parser) Sample(n int) string {
	s := []rune(strings.Join(p.lines, "\n"))
	if len(s) > n {
		s = s[:n]
	}
	return string(s)
}

// Parse runs a single-pass parse over text.
func Parse(text string, opts Options) []Candidate {
	p := New(opts)
	p.Feed(0, text)
	return p.Candidates()
}

// Record builds the skeleton record for an accepted candidate. Meaning and
// advice carry the placeholder text and the record is marked incomplete
// until the detail synthesizer or a manual edit fills them in.
func (c *Candidate) Record() types.Record {
	desc := c.Description
	if desc == "" {
		desc = c.Name + "の卦"
	}
	r := types.Record{
		ID:          types.HexagramID(c.Number),
		Name:        c.Name,
		Number:      types.IntPtr(c.Number),
		Description: desc,
		Meaning:     types.PlaceholderText,
		Advice:      types.PlaceholderText,
		Keywords:    []string{c.Name},
		Elements:    []string{},
		Context:     c.Context,
		Complete:    types.BoolPtr(false),
	}
	return r
}
