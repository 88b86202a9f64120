// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synth derives secondary fields for a candidate hexagram from its
// raw content block: the trigram glyph, a keyword set drawn from a closed
// vocabulary, and meaning/advice snippets. Results are heuristic and may be
// incomplete.
package synth

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/yijing-kb/internal/symbols"
	"github.com/pdiddy/yijing-kb/pkg/types"
)

const (
	// scanLines is how many leading lines are searched for marker lines.
	scanLines = 10
	// fallbackRunes is the prefix length used when no meaning marker is found.
	fallbackRunes = 100
	// MaxKeywords caps the keyword set stored on a record.
	MaxKeywords = 10
)

// vocabulary is the closed set of domain terms recognised as keywords.
var vocabulary = []string{
	// trigram images
	"天", "地", "水", "火", "風", "雷", "山", "沢",
	// five phases
	"木", "土", "金",
	// polarity
	"陰", "陽", "吉", "凶", "禍", "福", "善", "悪",
	// outcomes and situations
	"創造", "成功", "失敗", "危機", "機会", "変化", "安定", "調和",
	"対立", "統合", "分裂", "発展", "衰退", "盛衰", "進退",
}

// lineMarker matches line-statement labels such as 初九, 六二 or 上六.
var lineMarker = regexp.MustCompile(`[初上][九六]|[九六][二三四五]|用[九六]`)

var (
	meaningMarkers = []string{"意味", "解釈", "象徴", "meaning", "interpretation"}
	adviceMarkers  = []string{"助言", "アドバイス", "注意", "advice", "caution"}
)

// Details holds the fields derived from one content block.
type Details struct {
	Symbol   string
	Keywords []string
	Meaning  string
	Advice   string

	// MeaningFromMarkers is false when Meaning fell back to a block prefix.
	MeaningFromMarkers bool
}

// Derive scans block for the glyph, keywords and meaning/advice lines.
func Derive(block string) Details {
	d := Details{
		Symbol:   Glyph(block),
		Keywords: Keywords(block),
	}

	lines := strings.Split(block, "\n")
	if len(lines) > scanLines {
		lines = lines[:scanLines]
	}
	var meaning, advice []string
	for _, line := range lines {
		lower := strings.ToLower(line)
		switch {
		case containsAny(lower, meaningMarkers):
			meaning = append(meaning, strings.TrimSpace(line))
		case containsAny(lower, adviceMarkers):
			advice = append(advice, strings.TrimSpace(line))
		}
	}

	if len(meaning) > 0 {
		d.Meaning = strings.Join(meaning, " ")
		d.MeaningFromMarkers = true
	} else if strings.TrimSpace(block) != "" {
		d.Meaning = truncate(strings.TrimSpace(block), fallbackRunes)
	}
	d.Advice = strings.Join(advice, " ")
	return d
}

// Glyph returns the first two glyphs of the first run of two or more
// trigram characters in s, or "" when there is none.
func Glyph(s string) string {
	var run []rune
	for _, r := range s {
		if symbols.IsTrigram(r) {
			run = append(run, r)
			continue
		}
		if len(run) >= 2 {
			break
		}
		run = run[:0]
	}
	if len(run) < 2 {
		return ""
	}
	return string(run[:2])
}

// Keywords returns the deduplicated vocabulary terms and line-statement
// markers found in s, sorted.
func Keywords(s string) []string {
	set := make(map[string]bool)
	for _, term := range vocabulary {
		if strings.Contains(s, term) {
			set[term] = true
		}
	}
	for _, m := range lineMarker.FindAllString(s, -1) {
		set[m] = true
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Apply merges derived details into a skeleton record. Fields that could
// not be derived keep their existing value, so placeholders survive until
// real content is found. The record is marked complete only when both
// meaning and advice came from marker lines.
func Apply(r *types.Record, d Details) {
	if d.Symbol != "" {
		r.Symbol = d.Symbol
	}
	r.Keywords = mergeKeywords(r.Keywords, d.Keywords)
	if d.Meaning != "" {
		r.Meaning = d.Meaning
	}
	if d.Advice != "" {
		r.Advice = d.Advice
	}
	r.Complete = types.BoolPtr(d.MeaningFromMarkers && d.Advice != "")
}

func mergeKeywords(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, k := range list {
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	if len(out) > MaxKeywords {
		out = out[:MaxKeywords]
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
