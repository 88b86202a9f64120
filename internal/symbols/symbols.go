// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package symbols holds the canonical hexagram symbol table and the repair
// pass that corrects previously derived glyphs in a stored collection.
package symbols

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pdiddy/yijing-kb/pkg/types"
)

// ErrTable reports a symbol table that does not cover 1..64 exactly once
// with well-formed two-trigram glyphs.
var ErrTable = errors.New("invalid symbol table")

// Trigram glyphs U+2630..U+2637.
const (
	Heaven   = '☰'
	Lake     = '☱'
	Fire     = '☲'
	Thunder  = '☳'
	Wind     = '☴'
	Water    = '☵'
	Mountain = '☶'
	Earth    = '☷'
)

// IsTrigram reports whether r is one of the eight trigram glyphs.
func IsTrigram(r rune) bool {
	return r >= Heaven && r <= Earth
}

// Table is a validated lookup from hexagram number to its canonical entry.
type Table struct {
	entries [types.MaxHexagram + 1]types.SymbolEntry
}

// NewTable validates t and builds a lookup table.
func NewTable(t types.SymbolTable) (*Table, error) {
	tbl := &Table{}
	for _, e := range t.Hexagrams {
		if e.Number < types.MinHexagram || e.Number > types.MaxHexagram {
			return nil, fmt.Errorf("%w: number %d out of range", ErrTable, e.Number)
		}
		if tbl.entries[e.Number].Number != 0 {
			return nil, fmt.Errorf("%w: number %d listed twice", ErrTable, e.Number)
		}
		if !validGlyph(e.Symbol) {
			return nil, fmt.Errorf("%w: number %d has malformed symbol %q", ErrTable, e.Number, e.Symbol)
		}
		tbl.entries[e.Number] = e
	}
	for n := types.MinHexagram; n <= types.MaxHexagram; n++ {
		if tbl.entries[n].Number == 0 {
			return nil, fmt.Errorf("%w: number %d missing", ErrTable, n)
		}
	}
	return tbl, nil
}

// validGlyph requires exactly two trigram runes, upper over lower.
func validGlyph(s string) bool {
	runes := []rune(s)
	return len(runes) == 2 && IsTrigram(runes[0]) && IsTrigram(runes[1])
}

// Symbol returns the canonical glyph for number.
func (t *Table) Symbol(number int) (string, bool) {
	e, ok := t.Entry(number)
	return e.Symbol, ok
}

// Entry returns the canonical row for number.
func (t *Table) Entry(number int) (types.SymbolEntry, bool) {
	if number < types.MinHexagram || number > types.MaxHexagram {
		return types.SymbolEntry{}, false
	}
	return t.entries[number], true
}

// Names returns the hexagram names in number order.
func (t *Table) Names() []string {
	out := make([]string, 0, types.MaxHexagram)
	for n := types.MinHexagram; n <= types.MaxHexagram; n++ {
		out = append(out, t.entries[n].Name)
	}
	return out
}

// Correction records one symbol overwritten by Repair.
type Correction struct {
	ID     string `json:"id" yaml:"id"`
	Number int    `json:"number" yaml:"number"`
	Name   string `json:"name" yaml:"name"`
	Old    string `json:"old" yaml:"old"`
	New    string `json:"new" yaml:"new"`
}

// Repair overwrites the symbol of every non-annotation record that carries
// both a number and a symbol field whenever it differs from the canonical
// glyph. The collection is modified in place. Running Repair on its own
// output yields no corrections.
func (t *Table) Repair(c types.Collection, logger *slog.Logger) []Correction {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var out []Correction
	for i := range c {
		r := &c[i]
		if r.IsAnnotation() || r.Number == nil || !r.Has("symbol") {
			continue
		}
		want, ok := t.Symbol(*r.Number)
		if !ok || r.Symbol == want {
			continue
		}
		corr := Correction{ID: r.ID, Number: *r.Number, Name: r.Name, Old: r.Symbol, New: want}
		r.Symbol = want
		logger.Info("symbol corrected",
			"id", corr.ID, "number", corr.Number, "name", corr.Name,
			"old", corr.Old, "new", corr.New)
		out = append(out, corr)
	}
	return out
}
