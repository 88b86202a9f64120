// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package timeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/yijing-kb/internal/tables"
	"github.com/pdiddy/yijing-kb/pkg/types"
)

func note(id, category string) types.Record {
	return types.Record{ID: id, Type: types.TypeAnnotation, Title: id, Category: category}
}

func hex(n int) types.Record {
	return types.Record{ID: types.HexagramID(n), Number: types.IntPtr(n)}
}

func ids(c types.Collection) []string {
	out := make([]string, len(c))
	for i, r := range c {
		out[i] = r.ID
	}
	return out
}

var abTaxonomy = types.Taxonomy{Stages: []types.Stage{
	{Stage: 1, Name: "first", Categories: []string{"A"}},
	{Stage: 2, Name: "second", Categories: []string{"B"}},
}}

func TestReorganize(t *testing.T) {
	c := types.Collection{
		note("x", "B"),
		hex(3),
		note("y", "A"),
		{ID: "loose", Name: "番号なし"},
		note("z", "C"),
		hex(1),
	}

	res, err := Reorganize(c, abTaxonomy, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"hexagram_001", "hexagram_003", "loose", "y", "x", "z"}, ids(res.Collection))
	assert.Equal(t, 3, res.Hexagrams)
	assert.Equal(t, 1, res.Unnumbered)
	assert.Equal(t, []StageSummary{
		{Stage: 1, Name: "first", Category: "A", Count: 1},
		{Stage: 2, Name: "second", Category: "B", Count: 1},
	}, res.Emitted)
	assert.Equal(t, []StageSummary{{Category: "C", Count: 1}}, res.Unclassified)
}

func TestReorganizeWithinCategoryByID(t *testing.T) {
	c := types.Collection{note("b3", "B"), note("b1", "B"), note("a2", "A"), note("b2", "B")}

	res, err := Reorganize(c, abTaxonomy, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "b1", "b2", "b3"}, ids(res.Collection))
}

func TestReorganizeIsDeterministicAndComplete(t *testing.T) {
	tax, err := tables.Taxonomy("")
	require.NoError(t, err)

	c := types.Collection{
		note("book_knowledge_004", "占い方法"),
		hex(64),
		note("book_knowledge_001", "基本概念"),
		note("book_knowledge_003", ""),
		note("book_knowledge_002", "未来展望"),
		hex(2),
		note("book_knowledge_005", "新しい分類"),
	}

	first, err := Reorganize(c, tax, nil)
	require.NoError(t, err)
	second, err := Reorganize(c.Clone(), tax, nil)
	require.NoError(t, err)
	assert.Equal(t, ids(first.Collection), ids(second.Collection))
	assert.ElementsMatch(t, ids(c), ids(first.Collection), "every record is kept exactly once")

	again, err := Reorganize(first.Collection, tax, nil)
	require.NoError(t, err)
	assert.Equal(t, ids(first.Collection), ids(again.Collection), "reorganizing sorted output changes nothing")

	assert.Equal(t, []string{
		"hexagram_002", "hexagram_064",
		"book_knowledge_001", "book_knowledge_004", "book_knowledge_002",
		"book_knowledge_003", "book_knowledge_005",
	}, ids(first.Collection))
	assert.Equal(t, []StageSummary{
		{Category: DefaultCategory, Count: 1},
		{Category: "新しい分類", Count: 1},
	}, first.Unclassified)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(abTaxonomy))

	dup := types.Taxonomy{Stages: []types.Stage{
		{Stage: 1, Name: "one", Categories: []string{"A"}},
		{Stage: 2, Name: "two", Categories: []string{"A"}},
	}}
	require.ErrorIs(t, Validate(dup), ErrTaxonomy)

	empty := types.Taxonomy{Stages: []types.Stage{{Stage: 1, Categories: []string{""}}}}
	require.ErrorIs(t, Validate(empty), ErrTaxonomy)

	_, err := Reorganize(nil, dup, nil)
	require.ErrorIs(t, err, ErrTaxonomy)
}

func TestSplit(t *testing.T) {
	p := Split(types.Collection{hex(1), note("a", ""), note("b", "X"), hex(70)})
	assert.Len(t, p.Hexagrams, 2)
	assert.Equal(t, 1, p.Unnumbered)
	assert.Equal(t, 2, p.Annotations())
	assert.Contains(t, p.Categories, DefaultCategory)
}

func TestReport(t *testing.T) {
	res, err := Reorganize(types.Collection{hex(1), note("y", "A"), note("z", "C")}, abTaxonomy, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	res.Report(&buf)
	out := buf.String()
	assert.Contains(t, out, "stage 1: first")
	assert.Contains(t, out, "  - A: 1")
	assert.Contains(t, out, "unclassified:")
	assert.Contains(t, out, "reorganized: 3 records")
}
