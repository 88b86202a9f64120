// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Stage is one named learning stage of the timeline taxonomy. Categories
// are emitted in declaration order.
type Stage struct {
	Stage      int      `json:"stage" yaml:"stage" toml:"stage"`
	Name       string   `json:"stage_name" yaml:"stage_name" toml:"stage_name"`
	Categories []string `json:"categories" yaml:"categories" toml:"categories"`
}

// Taxonomy is the ordered list of stages used to sequence annotation
// records for presentation.
type Taxonomy struct {
	Stages []Stage `json:"stages" yaml:"stages" toml:"stages"`
}

// SymbolEntry is one row of the canonical symbol table.
type SymbolEntry struct {
	Number int    `json:"number" yaml:"number" toml:"number"`
	Name   string `json:"name" yaml:"name" toml:"name"`
	Symbol string `json:"symbol" yaml:"symbol" toml:"symbol"`
}

// SymbolTable lists the canonical two-trigram glyph for every hexagram.
type SymbolTable struct {
	Hexagrams []SymbolEntry `json:"hexagrams" yaml:"hexagrams" toml:"hexagrams"`
}

// PageRange maps one source document to the hexagram numbers it is known
// to cover.
type PageRange struct {
	// Source is the document base name (e.g. "140-160.pdf").
	Source string `json:"source" yaml:"source" toml:"source"`

	// First and Last bound the hexagram numbers accepted from Source.
	First int `json:"first" yaml:"first" toml:"first"`
	Last  int `json:"last" yaml:"last" toml:"last"`
}

// PageIndex is the explicit source-to-hexagram index table.
type PageIndex struct {
	Documents []PageRange `json:"documents" yaml:"documents" toml:"documents"`
}

// Lookup returns the hexagram range declared for source. When source is
// not listed the full canonical range is returned with ok == false.
func (p PageIndex) Lookup(source string) (first, last int, ok bool) {
	for _, d := range p.Documents {
		if d.Source == source {
			return d.First, d.Last, true
		}
	}
	return MinHexagram, MaxHexagram, false
}
