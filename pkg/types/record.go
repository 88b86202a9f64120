// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// TypeAnnotation marks a record as a topical annotation rather than a
// hexagram. The value matches the marker used by existing stores.
const TypeAnnotation = "book_content"

// PlaceholderText is written into meaning/advice of skeleton records. Its
// presence means the record still needs enrichment from the source text.
const PlaceholderText = "詳細は原文を参照してください"

// MinHexagram and MaxHexagram bound the canonical hexagram numbers.
const (
	MinHexagram = 1
	MaxHexagram = 64
)

// HexagramID returns the deterministic record id for a hexagram number.
func HexagramID(number int) string {
	return fmt.Sprintf("hexagram_%03d", number)
}

// AnnotationID returns the record id for the seq-th annotation of a batch.
func AnnotationID(seq int) string {
	return fmt.Sprintf("book_knowledge_%03d", seq)
}

// Record is one entry of the knowledge collection. Hexagram records are
// keyed by Number; annotation records carry Type == TypeAnnotation and a
// Category used for timeline ordering.
//
// Fields not modelled here are preserved verbatim in Extra, and the set of
// keys present in the source document is remembered, so a load/save round
// trip never drops data.
type Record struct {
	ID            string
	Type          string
	Name          string
	Number        *int
	Symbol        string
	Title         string
	Description   string
	Meaning       string
	Advice        string
	Content       string
	Keywords      []string
	Elements      []string
	Direction     string
	Season        string
	Time          string
	Category      string
	Source        string
	ExtractedDate string
	Context       string
	Complete      *bool

	// Extra holds unknown fields keyed by JSON name.
	Extra map[string]json.RawMessage

	present map[string]bool
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// IsAnnotation reports whether the record is tagged as an annotation.
func (r *Record) IsAnnotation() bool {
	return r.Type == TypeAnnotation
}

// HasNumber reports whether the record carries a number field.
func (r *Record) HasNumber() bool {
	return r.Number != nil
}

// HexagramNumber returns the record number when it lies in the canonical
// range and the record is not an annotation.
func (r *Record) HexagramNumber() (int, bool) {
	if r.Number == nil || r.IsAnnotation() {
		return 0, false
	}
	n := *r.Number
	if n < MinHexagram || n > MaxHexagram {
		return 0, false
	}
	return n, true
}

// NeedsEnrichment reports whether the record is a skeleton still carrying
// placeholder text or an explicit incomplete flag.
func (r *Record) NeedsEnrichment() bool {
	if r.Complete != nil && !*r.Complete {
		return true
	}
	return r.Meaning == PlaceholderText || r.Advice == PlaceholderText
}

// Has reports whether the record carries the named known field, either
// because it was present in the source document or because it is set.
func (r *Record) Has(key string) bool {
	if r.present[key] {
		return true
	}
	f, ok := knownKeys[key]
	return ok && !f.empty(r)
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := r
	if r.Number != nil {
		c.Number = IntPtr(*r.Number)
	}
	if r.Complete != nil {
		c.Complete = BoolPtr(*r.Complete)
	}
	c.Keywords = cloneStrings(r.Keywords)
	c.Elements = cloneStrings(r.Elements)
	if r.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	if r.present != nil {
		c.present = make(map[string]bool, len(r.present))
		for k, v := range r.present {
			c.present[k] = v
		}
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// field describes one known JSON key. always reports whether the key is
// written even when empty and absent from the source.
type field struct {
	key    string
	value  func(r *Record) any
	empty  func(r *Record) bool
	set    func(r *Record, raw json.RawMessage) error
	always func(r *Record) bool
}

func hexagramField(r *Record) bool   { return !r.IsAnnotation() }
func annotationField(r *Record) bool { return r.IsAnnotation() }
func never(*Record) bool             { return false }

func stringField(key string, p func(r *Record) *string, always func(r *Record) bool) field {
	return field{
		key:   key,
		value: func(r *Record) any { return *p(r) },
		empty: func(r *Record) bool { return *p(r) == "" },
		set: func(r *Record, raw json.RawMessage) error {
			return json.Unmarshal(raw, p(r))
		},
		always: always,
	}
}

func listField(key string, p func(r *Record) *[]string, always func(r *Record) bool) field {
	return field{
		key: key,
		value: func(r *Record) any {
			if *p(r) == nil {
				return []string{}
			}
			return *p(r)
		},
		empty: func(r *Record) bool { return len(*p(r)) == 0 },
		set: func(r *Record, raw json.RawMessage) error {
			return json.Unmarshal(raw, p(r))
		},
		always: always,
	}
}

// fields lists known keys in serialization order.
var fields = []field{
	stringField("id", func(r *Record) *string { return &r.ID }, func(*Record) bool { return true }),
	stringField("type", func(r *Record) *string { return &r.Type }, annotationField),
	stringField("name", func(r *Record) *string { return &r.Name }, hexagramField),
	{
		key:   "number",
		value: func(r *Record) any { return *r.Number },
		empty: func(r *Record) bool { return r.Number == nil },
		set: func(r *Record, raw json.RawMessage) error {
			n, ok := parseInt(raw)
			if !ok {
				// Non-integer numbers are kept verbatim as unknown data.
				r.setExtra("number", raw)
				return nil
			}
			r.Number = &n
			return nil
		},
		always: never,
	},
	stringField("symbol", func(r *Record) *string { return &r.Symbol }, hexagramField),
	stringField("title", func(r *Record) *string { return &r.Title }, annotationField),
	stringField("description", func(r *Record) *string { return &r.Description }, hexagramField),
	stringField("meaning", func(r *Record) *string { return &r.Meaning }, hexagramField),
	stringField("advice", func(r *Record) *string { return &r.Advice }, hexagramField),
	stringField("content", func(r *Record) *string { return &r.Content }, annotationField),
	listField("keywords", func(r *Record) *[]string { return &r.Keywords }, func(*Record) bool { return true }),
	listField("elements", func(r *Record) *[]string { return &r.Elements }, hexagramField),
	stringField("direction", func(r *Record) *string { return &r.Direction }, hexagramField),
	stringField("season", func(r *Record) *string { return &r.Season }, hexagramField),
	stringField("time", func(r *Record) *string { return &r.Time }, hexagramField),
	stringField("category", func(r *Record) *string { return &r.Category }, annotationField),
	stringField("source", func(r *Record) *string { return &r.Source }, annotationField),
	stringField("extracted_date", func(r *Record) *string { return &r.ExtractedDate }, annotationField),
	stringField("context", func(r *Record) *string { return &r.Context }, never),
	{
		key:   "complete",
		value: func(r *Record) any { return *r.Complete },
		empty: func(r *Record) bool { return r.Complete == nil },
		set: func(r *Record, raw json.RawMessage) error {
			var b bool
			if err := json.Unmarshal(raw, &b); err != nil {
				return err
			}
			r.Complete = &b
			return nil
		},
		always: never,
	},
}

var knownKeys = func() map[string]*field {
	m := make(map[string]*field, len(fields))
	for i := range fields {
		m[fields[i].key] = &fields[i]
	}
	return m
}()

func parseInt(raw json.RawMessage) (int, bool) {
	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&num); err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(num.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

func (r *Record) setExtra(key string, raw json.RawMessage) {
	if r.Extra == nil {
		r.Extra = make(map[string]json.RawMessage)
	}
	r.Extra[key] = append(json.RawMessage(nil), raw...)
}

// UnmarshalJSON decodes a record object, keeping unknown keys in Extra.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record{present: make(map[string]bool, len(raw))}

	for k, v := range raw {
		f, ok := knownKeys[k]
		if !ok || string(v) == "null" {
			r.setExtra(k, v)
			continue
		}
		if err := f.set(r, v); err != nil {
			// Known key with an unexpected shape: keep it as-is.
			r.setExtra(k, v)
			continue
		}
		r.present[k] = true
	}
	return nil
}

// MarshalJSON encodes known keys in a fixed order followed by unknown keys
// sorted by name. HTML characters are not escaped.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, v any) error {
		val, err := encodeValue(v)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := encodeValue(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}

	for i := range fields {
		f := &fields[i]
		if _, shadow := r.Extra[f.key]; shadow {
			continue
		}
		if f.empty(&r) && !r.present[f.key] && !f.always(&r) {
			continue
		}
		if f.key == "number" && r.Number == nil || f.key == "complete" && r.Complete == nil {
			continue
		}
		if err := write(f.key, f.value(&r)); err != nil {
			return nil, err
		}
	}

	extras := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		extras = append(extras, k)
	}
	sort.Strings(extras)
	for _, k := range extras {
		if err := write(k, r.Extra[k]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeValue(v any) ([]byte, error) {
	if raw, ok := v.(json.RawMessage); ok {
		var out bytes.Buffer
		if err := json.Compact(&out, raw); err != nil {
			return nil, err
		}
		return out.Bytes(), nil
	}
	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(out.Bytes(), "\n"), nil
}

// Collection is the full ordered sequence of records persisted as one
// document.
type Collection []Record

// Clone returns a deep copy of the collection.
func (c Collection) Clone() Collection {
	if c == nil {
		return nil
	}
	out := make(Collection, len(c))
	for i := range c {
		out[i] = c[i].Clone()
	}
	return out
}

// NumberIndex maps every number present in the collection to the index of
// its first record. Annotation records are ignored.
func (c Collection) NumberIndex() map[int]int {
	idx := make(map[int]int)
	for i := range c {
		r := &c[i]
		if r.Number == nil || r.IsAnnotation() {
			continue
		}
		if _, ok := idx[*r.Number]; !ok {
			idx[*r.Number] = i
		}
	}
	return idx
}

// DuplicateNumbers returns the numbers carried by more than one
// non-annotation record, ascending.
func (c Collection) DuplicateNumbers() []int {
	seen := make(map[int]int)
	for i := range c {
		r := &c[i]
		if r.Number == nil || r.IsAnnotation() {
			continue
		}
		seen[*r.Number]++
	}
	var dups []int
	for n, count := range seen {
		if count > 1 {
			dups = append(dups, n)
		}
	}
	sort.Ints(dups)
	return dups
}
