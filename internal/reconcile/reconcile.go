// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile merges newly produced records into an existing
// collection. Existing records always win: a new record whose number (or,
// for records without a number, whose id) is already present is skipped and
// reported, never written over the existing one.
package reconcile

import (
	"fmt"
	"io"
	"sort"

	"github.com/pdiddy/yijing-kb/pkg/types"
)

// Policy decides where records without a number end up after sorting.
type Policy int

const (
	// UnnumberedLast places unnumbered records after all numbered ones, in
	// arrival order.
	UnnumberedLast Policy = iota

	// UnnumberedFirst places unnumbered records before all numbered ones, in
	// arrival order.
	UnnumberedFirst

	// UnnumberedInPlace keeps each unnumbered record directly after the
	// numbered record it followed on arrival.
	UnnumberedInPlace
)

// ParsePolicy maps a flag value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "last":
		return UnnumberedLast, nil
	case "first":
		return UnnumberedFirst, nil
	case "in-place":
		return UnnumberedInPlace, nil
	default:
		return 0, fmt.Errorf("unknown unnumbered policy %q: use last, first or in-place", s)
	}
}

// Skip reasons.
const (
	ReasonExisting   = "already present"
	ReasonBatchDup   = "duplicate in batch"
	ReasonExistingID = "id already present"
)

// Skip is one batch record that was not merged.
type Skip struct {
	Record types.Record
	Reason string
}

// Result is the outcome of a merge.
type Result struct {
	Collection types.Collection
	Added      []types.Record
	Skipped    []Skip
}

// Merge returns existing ∪ batch with numbered records sorted ascending.
// Every existing record is retained unchanged.
func Merge(existing, batch types.Collection, policy Policy) Result {
	var res Result

	numbers := make(map[int]bool)
	ids := make(map[string]bool)
	for i := range existing {
		r := &existing[i]
		if n, ok := numberOf(r); ok {
			numbers[n] = true
		}
		if r.ID != "" {
			ids[r.ID] = true
		}
	}

	batchNumbers := make(map[int]bool)
	for _, r := range batch {
		if n, ok := numberOf(&r); ok {
			switch {
			case numbers[n]:
				res.Skipped = append(res.Skipped, Skip{Record: r, Reason: ReasonExisting})
				continue
			case batchNumbers[n]:
				res.Skipped = append(res.Skipped, Skip{Record: r, Reason: ReasonBatchDup})
				continue
			}
			batchNumbers[n] = true
		} else if r.ID != "" && ids[r.ID] {
			res.Skipped = append(res.Skipped, Skip{Record: r, Reason: ReasonExistingID})
			continue
		}
		if r.ID != "" {
			ids[r.ID] = true
		}
		res.Added = append(res.Added, r)
	}

	merged := make(types.Collection, 0, len(existing)+len(res.Added))
	merged = append(merged, existing...)
	merged = append(merged, res.Added...)
	res.Collection = Sort(merged, policy)
	return res
}

// Sort orders numbered records ascending by number. Records with equal
// numbers keep their relative order. Unnumbered records keep their arrival
// order and are placed per policy.
func Sort(c types.Collection, policy Policy) types.Collection {
	out := make(types.Collection, len(c))
	copy(out, c)

	if policy == UnnumberedInPlace {
		// Each unnumbered record sorts with the numbered record before it.
		keys := make([]int, len(out))
		last := 0
		for i := range out {
			if n, ok := numberOf(&out[i]); ok {
				last = n
			}
			keys[i] = last
		}
		idx := make([]int, len(out))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return keys[idx[a]] < keys[idx[b]] })
		sorted := make(types.Collection, len(out))
		for i, j := range idx {
			sorted[i] = out[j]
		}
		return sorted
	}

	var numbered, unnumbered types.Collection
	for _, r := range out {
		if _, ok := numberOf(&r); ok {
			numbered = append(numbered, r)
		} else {
			unnumbered = append(unnumbered, r)
		}
	}
	sort.SliceStable(numbered, func(a, b int) bool {
		return *numbered[a].Number < *numbered[b].Number
	})

	sorted := make(types.Collection, 0, len(out))
	if policy == UnnumberedFirst {
		sorted = append(sorted, unnumbered...)
		return append(sorted, numbered...)
	}
	sorted = append(sorted, numbered...)
	return append(sorted, unnumbered...)
}

// numberOf returns the merge key for a record: its number, when it has one
// and is not an annotation.
func numberOf(r *types.Record) (int, bool) {
	if r.Number == nil || r.IsAnnotation() {
		return 0, false
	}
	return *r.Number, true
}

// Report writes one line per added and skipped record followed by a summary.
func (r Result) Report(w io.Writer) {
	for _, s := range r.Skipped {
		fmt.Fprintf(w, "skipped: %s (%s)\n", label(s.Record), s.Reason)
	}
	for _, a := range r.Added {
		fmt.Fprintf(w, "added:   %s\n", label(a))
	}
	fmt.Fprintf(w, "\nmerge summary: %d added, %d skipped (total: %d)\n",
		len(r.Added), len(r.Skipped), len(r.Collection))
}

func label(r types.Record) string {
	switch {
	case r.Number != nil && !r.IsAnnotation():
		return fmt.Sprintf("%d %s", *r.Number, r.Name)
	case r.Title != "":
		return fmt.Sprintf("%s %s", r.ID, r.Title)
	default:
		return r.ID
	}
}
