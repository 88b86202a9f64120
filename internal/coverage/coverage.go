// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package coverage reports which of the 64 hexagrams the collection holds
// and builds skeleton records for the ones it lacks.
package coverage

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pdiddy/yijing-kb/internal/parse"
	"github.com/pdiddy/yijing-kb/internal/symbols"
	"github.com/pdiddy/yijing-kb/pkg/types"
)

// Range is the progress of one band of hexagram numbers.
type Range struct {
	Lo, Hi   int
	Existing []int
	Missing  []int
}

// Name returns the band label, e.g. "1-20".
func (r Range) Name() string {
	return fmt.Sprintf("%d-%d", r.Lo, r.Hi)
}

// Size returns the number of hexagrams in the band.
func (r Range) Size() int {
	return r.Hi - r.Lo + 1
}

// Bands are the reporting bands used by Analyze.
var Bands = [][2]int{{1, 20}, {21, 40}, {41, 64}}

// Report is the coverage of one collection.
type Report struct {
	Records     int
	Annotations int

	// Unnumbered counts non-annotation records without a valid number.
	Unnumbered int

	Existing   []int
	Missing    []int
	Ranges     []Range
	Duplicates []int

	// NeedsEnrichment lists ids of hexagram records still carrying
	// placeholders or an incomplete flag.
	NeedsEnrichment []string
}

// Complete reports whether all 64 hexagrams are present.
func (r Report) Complete() bool {
	return len(r.Missing) == 0
}

// Analyze scans c once.
func Analyze(c types.Collection) Report {
	rep := Report{Records: len(c)}
	present := make(map[int]bool)

	for i := range c {
		rec := &c[i]
		if rec.IsAnnotation() {
			rep.Annotations++
			continue
		}
		n, ok := rec.HexagramNumber()
		if !ok {
			rep.Unnumbered++
			continue
		}
		present[n] = true
		if rec.NeedsEnrichment() {
			rep.NeedsEnrichment = append(rep.NeedsEnrichment, rec.ID)
		}
	}

	for n := types.MinHexagram; n <= types.MaxHexagram; n++ {
		if present[n] {
			rep.Existing = append(rep.Existing, n)
		} else {
			rep.Missing = append(rep.Missing, n)
		}
	}
	for _, b := range Bands {
		rg := Range{Lo: b[0], Hi: b[1]}
		for n := b[0]; n <= b[1]; n++ {
			if present[n] {
				rg.Existing = append(rg.Existing, n)
			} else {
				rg.Missing = append(rg.Missing, n)
			}
		}
		rep.Ranges = append(rep.Ranges, rg)
	}
	rep.Duplicates = c.DuplicateNumbers()
	sort.Strings(rep.NeedsEnrichment)
	return rep
}

// Print writes the human-readable report.
func (r Report) Print(w io.Writer) {
	fmt.Fprintf(w, "records: %d (annotations %d, without number %d)\n", r.Records, r.Annotations, r.Unnumbered)
	fmt.Fprintf(w, "hexagrams: %d/%d\n", len(r.Existing), types.MaxHexagram)
	for _, rg := range r.Ranges {
		fmt.Fprintf(w, "  %s: %d/%d", rg.Name(), len(rg.Existing), rg.Size())
		if len(rg.Missing) > 0 {
			fmt.Fprintf(w, " missing %s", joinInts(rg.Missing))
		}
		fmt.Fprintln(w)
	}
	if len(r.Duplicates) > 0 {
		fmt.Fprintf(w, "duplicate numbers: %s\n", joinInts(r.Duplicates))
	}
	if len(r.NeedsEnrichment) > 0 {
		fmt.Fprintf(w, "needs enrichment: %d (%s)\n", len(r.NeedsEnrichment), strings.Join(r.NeedsEnrichment, ", "))
	}
}

// Template returns a skeleton record for every number in missing, named
// and given its glyph from the symbol table.
func Template(missing []int, tbl *symbols.Table) types.Collection {
	out := make(types.Collection, 0, len(missing))
	for _, n := range missing {
		e, ok := tbl.Entry(n)
		if !ok {
			continue
		}
		cand := parse.Candidate{Number: n, Name: e.Name}
		rec := cand.Record()
		rec.Symbol = e.Symbol
		out = append(out, rec)
	}
	return out
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ",")
}
