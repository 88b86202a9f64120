// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/yijing-kb/internal/extract"
	"github.com/pdiddy/yijing-kb/internal/parse"
	"github.com/pdiddy/yijing-kb/pkg/types"
)

type pagesDoc []string

func (d pagesDoc) PageCount() int                 { return len(d) }
func (d pagesDoc) PageText(n int) (string, error) { return d[n-1], nil }

const bookText = `--- Page 1 ---
第1卦 乾
☰☰ 天の力
意味: 創造の力が満ちる
助言: ためらわず進む
--- Page 2 ---
第2卦 坤
☷☷ 大地
第1卦 乾
`

func TestParseText(t *testing.T) {
	p := &Pipeline{Parse: parse.Options{EnforceRange: true, ContextLines: 1}}

	var buf bytes.Buffer
	res := p.ParseText("book.txt", bookText, &buf)

	require.Len(t, res.Records, 2)
	require.Len(t, res.Rejections, 1)
	assert.Equal(t, parse.ReasonDuplicate, res.Rejections[0].Reason)
	assert.Equal(t, 2, res.Rejections[0].Page)

	qian := res.Records[0]
	assert.Equal(t, "hexagram_001", qian.ID)
	assert.Equal(t, "☰☰", qian.Symbol)
	assert.Equal(t, "意味: 創造の力が満ちる", qian.Meaning)
	assert.Equal(t, "助言: ためらわず進む", qian.Advice)
	assert.Equal(t, []string{"乾", "創造", "天"}, qian.Keywords)
	require.NotNil(t, qian.Complete)
	assert.True(t, *qian.Complete)

	kun := res.Records[1]
	assert.Equal(t, "☷☷", kun.Symbol)
	assert.Equal(t, types.PlaceholderText, kun.Advice)
	assert.True(t, kun.NeedsEnrichment())
	assert.Equal(t, 2, res.Candidates[1].Page)

	assert.Contains(t, buf.String(), "found:    1 乾 (page 1, ordinal-gua)")
	assert.Contains(t, buf.String(), "book.txt: 2 candidates, 1 rejected (range 1-64)")
}

func TestParseTextPageIndexRange(t *testing.T) {
	p := &Pipeline{
		Parse:     parse.Options{EnforceRange: true},
		PageIndex: types.PageIndex{Documents: []types.PageRange{{Source: "21-40.txt", First: 2, Last: 2}}},
	}
	res := p.ParseText("/data/21-40.txt", bookText, &bytes.Buffer{})

	require.Len(t, res.Records, 1)
	assert.Equal(t, 2, *res.Records[0].Number)
	assert.Equal(t, 2, res.Lo)
	assert.Equal(t, 2, res.Hi)

	reasons := map[string]int{}
	for _, r := range res.Rejections {
		reasons[r.Reason]++
	}
	assert.Equal(t, 2, reasons[parse.ReasonOutOfRange])
}

func TestParseTextNothingFound(t *testing.T) {
	p := &Pipeline{}
	var buf bytes.Buffer
	res := p.ParseText("notes.txt", "ただの文章です。\n卦の番号はありません。", &buf)

	assert.Empty(t, res.Records)
	assert.Contains(t, buf.String(), "warning: no hexagrams found in notes.txt")
}

func TestImportThroughExtractor(t *testing.T) {
	doc := pagesDoc{"第3卦 屯\n☵☳ 水雷", "", "第4卦 蒙\n☶☵"}
	ex := &extract.Extractor{
		Open:       func(string) (extract.Document, error) { return doc, nil },
		Strategies: []extract.Strategy{extract.DirectText{}},
	}
	p := &Pipeline{Extractor: ex}

	var buf bytes.Buffer
	res, err := p.Import(context.Background(), "book.pdf", &buf)
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "☵☳", res.Records[0].Symbol)
	assert.Equal(t, 3, res.Candidates[1].Page)
	assert.Equal(t, 2, res.Extraction.Count(extract.OutcomeText))
	assert.Contains(t, buf.String(), "page 2: none")
}

func TestImportTextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extracted.txt")
	require.NoError(t, os.WriteFile(path, []byte(bookText), 0o644))

	res, err := (&Pipeline{}).Import(context.Background(), path, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.Nil(t, res.Extraction)
}

func TestImportMissingSource(t *testing.T) {
	_, err := (&Pipeline{}).Import(context.Background(), filepath.Join(t.TempDir(), "gone.txt"), &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrSourceUnavailable)
}
