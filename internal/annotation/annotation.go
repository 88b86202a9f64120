// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package annotation builds batches of annotation records, either by
// chunking recovered book text into sections or from hand-authored entry
// files. Ids continue after the highest annotation sequence already in the
// collection so a new batch never collides with an earlier one.
package annotation

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/yijing-kb/pkg/types"
)

const (
	// shortLine is the length under which a paragraph is merged forward.
	shortLine = 50
	// emitOver is the buffer length that closes a section.
	emitOver = 100
	// keepOver is the minimum length for the trailing buffer to be kept.
	keepOver = 50
)

// Defaults for records chunked from book text.
const (
	DefaultCategory    = "易学知識"
	DefaultTitlePrefix = "易の本の内容"
	DefaultSource      = "PDF本から抽出"
)

var (
	seqPattern  = regexp.MustCompile(`^book_knowledge_(\d+)$`)
	pageMarker  = regexp.MustCompile(`^---\s*(?:Page|ページ)\s*\d+`)
	ordinalName = regexp.MustCompile(`第(\d{1,2})卦?[\s、.・]?\s*(\p{Han}{1,3})`)
	guaName     = regexp.MustCompile(`(\p{Han}{1,3})卦`)
)

// Options controls how a batch is stamped.
type Options struct {
	Source      string
	Category    string
	TitlePrefix string

	// Names are hexagram names looked for when deriving keywords.
	Names []string

	// Now stamps extracted_date. Nil uses time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Source == "" {
		o.Source = DefaultSource
	}
	if o.Category == "" {
		o.Category = DefaultCategory
	}
	if o.TitlePrefix == "" {
		o.TitlePrefix = DefaultTitlePrefix
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Entry is one hand-authored annotation before it is stamped.
type Entry struct {
	Title    string   `yaml:"title" json:"title"`
	Content  string   `yaml:"content" json:"content"`
	Keywords []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Category string   `yaml:"category,omitempty" json:"category,omitempty"`
	Source   string   `yaml:"source,omitempty" json:"source,omitempty"`
}

// NextSequence returns the sequence number following the highest
// book_knowledge_NNN id in c, starting at 1.
func NextSequence(c types.Collection) int {
	hi := 0
	for i := range c {
		m := seqPattern.FindStringSubmatch(c[i].ID)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > hi {
			hi = n
		}
	}
	return hi + 1
}

// Chunk splits page text into sections. Page markers are dropped, short
// paragraphs are merged into the running buffer, and the buffer is closed
// once it exceeds emitOver runes before the next long paragraph is added.
// The trailing buffer is kept only when it exceeds keepOver runes.
func Chunk(text string) []string {
	var (
		sections []string
		buf      strings.Builder
	)
	for _, line := range strings.Split(text, "\n") {
		p := strings.TrimSpace(line)
		if p == "" || pageMarker.MatchString(p) {
			continue
		}
		if runeLen(p) < shortLine {
			buf.WriteString(p)
			buf.WriteByte(' ')
			continue
		}
		if cur := strings.TrimSpace(buf.String()); runeLen(cur) > emitOver {
			sections = append(sections, cur)
			buf.Reset()
		}
		buf.WriteString(p)
		buf.WriteByte(' ')
	}
	if cur := strings.TrimSpace(buf.String()); runeLen(cur) > keepOver {
		sections = append(sections, cur)
	}
	return sections
}

// FromText chunks text and stamps one annotation record per section,
// numbering after the annotations already in existing.
func FromText(text string, existing types.Collection, opts Options) types.Collection {
	opts = opts.withDefaults()
	sections := Chunk(text)
	entries := make([]Entry, len(sections))
	seq := NextSequence(existing)
	for i, s := range sections {
		entries[i] = Entry{
			Title:   fmt.Sprintf("%s - 第%d節", opts.TitlePrefix, seq+i),
			Content: s,
		}
	}
	return Stamp(entries, existing, opts)
}

// Stamp turns entries into annotation records with sequential ids, the
// annotation type marker, source, category and capture date. Entries without
// keywords get keywords derived from their content.
func Stamp(entries []Entry, existing types.Collection, opts Options) types.Collection {
	opts = opts.withDefaults()
	seq := NextSequence(existing)
	date := opts.Now().Format(time.RFC3339)

	out := make(types.Collection, 0, len(entries))
	for i, e := range entries {
		r := types.Record{
			ID:            types.AnnotationID(seq + i),
			Type:          types.TypeAnnotation,
			Title:         e.Title,
			Content:       strings.TrimSpace(e.Content),
			Source:        firstNonEmpty(e.Source, opts.Source),
			ExtractedDate: date,
			Keywords:      e.Keywords,
			Category:      firstNonEmpty(e.Category, opts.Category),
		}
		if len(r.Keywords) == 0 {
			r.Keywords = Keywords(r.Content, opts.Names)
		}
		out = append(out, r)
	}
	return out
}

// Keywords returns the hexagram names from names found in text plus names
// written in structural forms ("第N 名", "名卦"), deduplicated and sorted.
func Keywords(text string, names []string) []string {
	set := make(map[string]bool)
	for _, n := range names {
		if n != "" && strings.Contains(text, n) {
			set[n] = true
		}
	}
	for _, m := range ordinalName.FindAllStringSubmatch(text, -1) {
		set[strings.TrimSuffix(m[2], "卦")] = true
	}
	for _, m := range guaName.FindAllStringSubmatch(text, -1) {
		set[m[1]] = true
	}
	delete(set, "")
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LoadAuthored reads a YAML (or JSON) list of entries.
func LoadAuthored(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Title) == "" || strings.TrimSpace(e.Content) == "" {
			return nil, fmt.Errorf("%s: entry %d needs a title and content", path, i+1)
		}
	}
	return entries, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func runeLen(s string) int {
	return len([]rune(s))
}
