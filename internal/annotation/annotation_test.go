// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package annotation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/yijing-kb/pkg/types"
)

var fixedNow = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

func TestNextSequence(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want int
	}{
		{"empty", nil, 1},
		{"hexagrams only", []string{"hexagram_001", "hexagram_002"}, 1},
		{"highest wins", []string{"book_knowledge_002", "book_knowledge_007", "book_knowledge_003"}, 8},
		{"malformed ignored", []string{"book_knowledge_x", "book_knowledge_004_old"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c types.Collection
			for _, id := range tt.ids {
				c = append(c, types.Record{ID: id})
			}
			assert.Equal(t, tt.want, NextSequence(c))
		})
	}
}

func TestChunk(t *testing.T) {
	long := strings.Repeat("易", 60)
	longer := strings.Repeat("陽", 120)

	t.Run("short lines merge into one trailing section", func(t *testing.T) {
		text := strings.Repeat("短い行です。\n", 10)
		got := Chunk(text)
		require.Len(t, got, 1)
		assert.True(t, strings.HasPrefix(got[0], "短い行です。 短い行です。"))
	})

	t.Run("buffer over limit closes before next long paragraph", func(t *testing.T) {
		text := longer + "\n" + long + "\n"
		got := Chunk(text)
		require.Len(t, got, 2)
		assert.Equal(t, longer, got[0])
		assert.Equal(t, long, got[1])
	})

	t.Run("page markers skipped", func(t *testing.T) {
		text := "--- Page 1 ---\n" + long + "\n--- ページ 2 ---\n"
		got := Chunk(text)
		require.Len(t, got, 1)
		assert.NotContains(t, got[0], "Page")
	})

	t.Run("short trailing buffer dropped", func(t *testing.T) {
		assert.Empty(t, Chunk("短い\n"))
	})
}

func TestFromTextContinuesSequence(t *testing.T) {
	existing := types.Collection{
		{ID: "hexagram_001", Number: types.IntPtr(1)},
		{ID: "book_knowledge_003", Type: types.TypeAnnotation},
	}
	text := strings.Repeat("乾は天なり。", 20) + "\n" + strings.Repeat("坤は地なり。", 20)

	got := FromText(text, existing, Options{Now: fixedNow, Names: []string{"乾", "坤", "屯"}})
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "book_knowledge_004", first.ID)
	assert.Equal(t, types.TypeAnnotation, first.Type)
	assert.Equal(t, "易の本の内容 - 第4節", first.Title)
	assert.Equal(t, DefaultCategory, first.Category)
	assert.Equal(t, DefaultSource, first.Source)
	assert.Equal(t, "2026-03-01T09:00:00Z", first.ExtractedDate)
	assert.Contains(t, first.Keywords, "乾")
	assert.NotContains(t, first.Keywords, "屯")

	assert.Equal(t, "book_knowledge_005", got[1].ID)
}

func TestStampKeepsAuthoredFields(t *testing.T) {
	entries := []Entry{
		{Title: "八卦の成り立ち", Content: "  八卦は三つの爻から成る。  ", Keywords: []string{"八卦"}, Category: "八卦知識"},
		{Title: "占い方法", Content: "第1卦 乾から読む。"},
	}
	got := Stamp(entries, nil, Options{Now: fixedNow, Source: "易の本から抽出"})
	require.Len(t, got, 2)

	assert.Equal(t, "book_knowledge_001", got[0].ID)
	assert.Equal(t, "八卦は三つの爻から成る。", got[0].Content)
	assert.Equal(t, []string{"八卦"}, got[0].Keywords)
	assert.Equal(t, "八卦知識", got[0].Category)
	assert.Equal(t, "易の本から抽出", got[0].Source)

	assert.Equal(t, DefaultCategory, got[1].Category)
	assert.Contains(t, got[1].Keywords, "乾")
}

func TestKeywords(t *testing.T) {
	got := Keywords("第3 屯の象。泰卦と否卦。", []string{"泰"})
	assert.Equal(t, []string{"否", "屯", "泰"}, got)

	got = Keywords("第1卦 乾から読む。", nil)
	assert.Equal(t, []string{"乾"}, got)
}

func TestLoadAuthored(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml", func(t *testing.T) {
		p := filepath.Join(dir, "entries.yaml")
		require.NoError(t, os.WriteFile(p, []byte(`
- title: 易経の基本思想
  content: 陰陽の思想を基盤とする。
  keywords: [易経, 陰陽]
  category: 易学基礎
`), 0o644))
		got, err := LoadAuthored(p)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "易学基礎", got[0].Category)
		assert.Equal(t, []string{"易経", "陰陽"}, got[0].Keywords)
	})

	t.Run("json", func(t *testing.T) {
		p := filepath.Join(dir, "entries.json")
		require.NoError(t, os.WriteFile(p, []byte(`[{"title": "五行", "content": "木火土金水"}]`), 0o644))
		got, err := LoadAuthored(p)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "五行", got[0].Title)
	})

	t.Run("missing content rejected", func(t *testing.T) {
		p := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(p, []byte("- title: only a title\n"), 0o644))
		_, err := LoadAuthored(p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "entry 1")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadAuthored(filepath.Join(dir, "nope.yaml"))
		require.Error(t, err)
	})
}
