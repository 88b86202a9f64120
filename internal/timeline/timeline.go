// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package timeline re-orders a collection into a stable presentation
// sequence: hexagram records by number, then annotation records grouped by
// category in taxonomy order (stage by stage, category by category), then
// any categories the taxonomy does not name.
package timeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/pdiddy/yijing-kb/pkg/types"
)

// ErrTaxonomy reports a malformed taxonomy.
var ErrTaxonomy = errors.New("invalid taxonomy")

// DefaultCategory groups annotation records that carry no category.
const DefaultCategory = "その他"

// Validate checks that every category is named and declared once.
func Validate(t types.Taxonomy) error {
	seen := make(map[string]string)
	for _, st := range t.Stages {
		for _, c := range st.Categories {
			if c == "" {
				return fmt.Errorf("%w: stage %q has an empty category", ErrTaxonomy, st.Name)
			}
			if prev, ok := seen[c]; ok {
				return fmt.Errorf("%w: category %q declared in stage %q and stage %q", ErrTaxonomy, c, prev, st.Name)
			}
			seen[c] = st.Name
		}
	}
	return nil
}

// Partition is the result of the first phase: every input record lands in
// exactly one bucket.
type Partition struct {
	// Hexagrams holds every record not tagged as an annotation.
	Hexagrams []types.Record

	// Categories maps category -> annotation records in arrival order.
	Categories map[string][]types.Record

	// order lists categories in order of first encounter.
	order []string

	// Unnumbered counts hexagram-bucket records without a valid 1..64 number.
	Unnumbered int
}

// Annotations returns the number of records in the annotation bucket.
func (p *Partition) Annotations() int {
	n := 0
	for _, recs := range p.Categories {
		n += len(recs)
	}
	return n
}

// Split scans c once and routes each record to a bucket.
func Split(c types.Collection) *Partition {
	p := &Partition{Categories: make(map[string][]types.Record)}
	for _, r := range c {
		if !r.IsAnnotation() {
			if _, ok := r.HexagramNumber(); !ok {
				p.Unnumbered++
			}
			p.Hexagrams = append(p.Hexagrams, r)
			continue
		}
		cat := r.Category
		if cat == "" {
			cat = DefaultCategory
		}
		if _, ok := p.Categories[cat]; !ok {
			p.order = append(p.order, cat)
		}
		p.Categories[cat] = append(p.Categories[cat], r)
	}
	return p
}

// StageSummary reports how many records one category contributed.
type StageSummary struct {
	Stage    int
	Name     string
	Category string
	Count    int
}

// Result is the reorganized collection plus a per-category account.
type Result struct {
	Collection   types.Collection
	Hexagrams    int
	Emitted      []StageSummary
	Unclassified []StageSummary
	Unnumbered   int
}

// Reorganize runs both phases over c with taxonomy t. The output is fully
// determined by c and t.
func Reorganize(c types.Collection, t types.Taxonomy, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := Validate(t); err != nil {
		return Result{}, err
	}

	p := Split(c)
	res := Result{
		Collection: make(types.Collection, 0, len(c)),
		Hexagrams:  len(p.Hexagrams),
		Unnumbered: p.Unnumbered,
	}

	hex := append([]types.Record(nil), p.Hexagrams...)
	sort.SliceStable(hex, func(i, j int) bool {
		return hexKey(&hex[i]) < hexKey(&hex[j])
	})
	res.Collection = append(res.Collection, hex...)

	pending := p.Categories
	for _, st := range t.Stages {
		for _, cat := range st.Categories {
			recs, ok := pending[cat]
			if !ok {
				continue
			}
			res.Collection = append(res.Collection, sortByID(recs)...)
			res.Emitted = append(res.Emitted, StageSummary{Stage: st.Stage, Name: st.Name, Category: cat, Count: len(recs)})
			delete(pending, cat)
		}
	}

	for _, cat := range p.order {
		recs, ok := pending[cat]
		if !ok {
			continue
		}
		logger.Warn("unclassified category", "category", cat, "records", len(recs))
		res.Collection = append(res.Collection, sortByID(recs)...)
		res.Unclassified = append(res.Unclassified, StageSummary{Category: cat, Count: len(recs)})
		delete(pending, cat)
	}

	if res.Unnumbered > 0 {
		logger.Warn("records without a hexagram number placed after numbered records", "records", res.Unnumbered)
	}
	return res, nil
}

// hexKey sorts numbered records first by number and pushes records without
// a valid number to the end.
func hexKey(r *types.Record) int {
	if n, ok := r.HexagramNumber(); ok {
		return n
	}
	return types.MaxHexagram + 1
}

func sortByID(recs []types.Record) []types.Record {
	out := append([]types.Record(nil), recs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Report writes the per-stage account of a reorganization.
func (r Result) Report(w io.Writer) {
	fmt.Fprintf(w, "hexagrams: %d\n", r.Hexagrams)
	stage := -1
	for _, s := range r.Emitted {
		if s.Stage != stage {
			fmt.Fprintf(w, "stage %d: %s\n", s.Stage, s.Name)
			stage = s.Stage
		}
		fmt.Fprintf(w, "  - %s: %d\n", s.Category, s.Count)
	}
	if len(r.Unclassified) > 0 {
		fmt.Fprintln(w, "unclassified:")
		for _, s := range r.Unclassified {
			fmt.Fprintf(w, "  - %s: %d\n", s.Category, s.Count)
		}
	}
	fmt.Fprintf(w, "\nreorganized: %d records\n", len(r.Collection))
}
