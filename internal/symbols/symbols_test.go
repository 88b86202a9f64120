// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package symbols

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/yijing-kb/internal/tables"
	"github.com/pdiddy/yijing-kb/pkg/types"
)

func canonical(t *testing.T) *Table {
	t.Helper()
	st, err := tables.Symbols("")
	require.NoError(t, err)
	tbl, err := NewTable(st)
	require.NoError(t, err)
	return tbl
}

func fullTable() types.SymbolTable {
	var st types.SymbolTable
	for n := types.MinHexagram; n <= types.MaxHexagram; n++ {
		st.Hexagrams = append(st.Hexagrams, types.SymbolEntry{Number: n, Name: "卦", Symbol: "☰☷"})
	}
	return st
}

func TestCanonicalTable(t *testing.T) {
	tbl := canonical(t)

	tests := []struct {
		number int
		name   string
		symbol string
	}{
		{1, "乾", "☰☰"},
		{2, "坤", "☷☷"},
		{3, "屯", "☵☳"},
		{8, "比", "☵☷"},
		{11, "泰", "☷☰"},
		{12, "否", "☰☷"},
		{23, "剥", "☶☷"},
		{50, "鼎", "☲☴"},
		{63, "既済", "☵☲"},
		{64, "未済", "☲☵"},
	}
	for _, tt := range tests {
		e, ok := tbl.Entry(tt.number)
		require.True(t, ok)
		assert.Equal(t, tt.name, e.Name, "number %d", tt.number)
		assert.Equal(t, tt.symbol, e.Symbol, "number %d", tt.number)
	}

	_, ok := tbl.Symbol(0)
	assert.False(t, ok)
	_, ok = tbl.Symbol(65)
	assert.False(t, ok)

	names := tbl.Names()
	assert.Len(t, names, 64)
	assert.Equal(t, "乾", names[0])
}

func TestNewTableRejectsBadTables(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(st *types.SymbolTable)
	}{
		{"missing number", func(st *types.SymbolTable) { st.Hexagrams = st.Hexagrams[1:] }},
		{"duplicate number", func(st *types.SymbolTable) { st.Hexagrams[1].Number = 1 }},
		{"out of range", func(st *types.SymbolTable) { st.Hexagrams[0].Number = 65 }},
		{"one trigram", func(st *types.SymbolTable) { st.Hexagrams[0].Symbol = "☰" }},
		{"not trigrams", func(st *types.SymbolTable) { st.Hexagrams[0].Symbol = "天地" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := fullTable()
			tt.mutate(&st)
			_, err := NewTable(st)
			require.ErrorIs(t, err, ErrTable)
		})
	}
}

func TestRepair(t *testing.T) {
	tbl := canonical(t)

	var c types.Collection
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id": "hexagram_001", "name": "乾", "number": 1, "symbol": "☰☰"},
		{"id": "hexagram_003", "name": "屯", "number": 3, "symbol": "☰☰"},
		{"id": "hexagram_004", "name": "蒙", "number": 4},
		{"id": "book_knowledge_001", "type": "book_content", "number": 5, "symbol": "☰☰"},
		{"id": "hexagram_099", "name": "?", "number": 99, "symbol": "☰☰"},
		{"id": "hexagram_011", "name": "泰", "number": 11, "symbol": ""}
	]`), &c))

	fixes := tbl.Repair(c, nil)
	require.Len(t, fixes, 2)
	assert.Equal(t, Correction{ID: "hexagram_003", Number: 3, Name: "屯", Old: "☰☰", New: "☵☳"}, fixes[0])
	assert.Equal(t, Correction{ID: "hexagram_011", Number: 11, Name: "泰", Old: "", New: "☷☰"}, fixes[1])

	assert.Equal(t, "☵☳", c[1].Symbol)
	assert.False(t, c[2].Has("symbol"), "records without a symbol field are not given one")
	assert.Equal(t, "☰☰", c[3].Symbol, "annotations are untouched")
	assert.Equal(t, "☰☰", c[4].Symbol, "numbers outside the table are untouched")

	assert.Empty(t, tbl.Repair(c, nil), "repair is idempotent")
}

func TestIsTrigram(t *testing.T) {
	for _, r := range "☰☱☲☳☴☵☶☷" {
		assert.True(t, IsTrigram(r))
	}
	assert.False(t, IsTrigram('☸'))
	assert.False(t, IsTrigram('天'))
}
