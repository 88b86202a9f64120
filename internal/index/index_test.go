// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/yijing-kb/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.IndexConfig{DBPath: filepath.Join(t.TempDir(), "index", "yijing.db"), MaxResults: 10})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleCollection() types.Collection {
	return types.Collection{
		{
			ID: "hexagram_001", Name: "乾", Number: types.IntPtr(1), Symbol: "☰☰",
			Meaning: "創造の力が天に満ちる", Advice: "ためらわず進む",
			Keywords: []string{"乾", "天"}, Complete: types.BoolPtr(true),
		},
		{
			ID: "hexagram_002", Name: "坤", Number: types.IntPtr(2), Symbol: "☷☷",
			Meaning: types.PlaceholderText, Advice: types.PlaceholderText,
			Keywords: []string{"坤", "地"}, Complete: types.BoolPtr(false),
		},
		{
			ID: "book_knowledge_001", Type: types.TypeAnnotation, Title: "易経の基本思想",
			Content: "陰陽の思想を基盤とし、八卦と六十四卦で世界の変化を表す。",
			Keywords: []string{"陰陽", "八卦"}, Category: "易学基礎",
		},
		{
			ID: "book_knowledge_002", Type: types.TypeAnnotation, Title: "五行",
			Content: "木火土金水の循環。", Keywords: []string{"五行"}, Category: "五行思想",
		},
	}
}

func synced(t *testing.T) *Store {
	t.Helper()
	s := testStore(t)
	sum, err := s.Sync(context.Background(), sampleCollection(), &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, 4, sum.Indexed)
	return s
}

func TestSync(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	c := sampleCollection()

	var buf bytes.Buffer
	sum, err := s.Sync(ctx, c, &buf)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Indexed)
	assert.Equal(t, 2, sum.Hexagrams)
	assert.Equal(t, 2, sum.Annotations)
	assert.False(t, sum.UpToDate)
	assert.Contains(t, buf.String(), "indexed: 4 records")

	t.Run("unchanged collection is skipped", func(t *testing.T) {
		sum, err := s.Sync(ctx, c, &bytes.Buffer{})
		require.NoError(t, err)
		assert.True(t, sum.UpToDate)
	})

	t.Run("changed collection is rebuilt", func(t *testing.T) {
		smaller := c[:3]
		sum, err := s.Sync(ctx, smaller, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, 3, sum.Indexed)

		all, err := s.Retrieve(ctx, QueryOptions{})
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("duplicate ids keep the first", func(t *testing.T) {
		dup := append(c.Clone(), types.Record{ID: "hexagram_001", Name: "重複"})
		sum, err := s.Sync(ctx, dup, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, 4, sum.Indexed)
	})
}

func TestRetrieveFullText(t *testing.T) {
	s := synced(t)
	ctx := context.Background()

	got, err := s.Retrieve(ctx, QueryOptions{Query: "創造の力"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hexagram_001", got[0].ID)
	assert.Equal(t, "1 乾 ☰☰", got[0].Label())
	require.NotNil(t, got[0].Complete)
	assert.True(t, *got[0].Complete)

	got, err = s.Retrieve(ctx, QueryOptions{Query: `六十四"卦`})
	require.NoError(t, err, "quotes in the query are escaped")
	assert.Empty(t, got)
}

func TestRetrieveShortQuery(t *testing.T) {
	s := synced(t)

	got, err := s.Retrieve(context.Background(), QueryOptions{Query: "陰陽"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "book_knowledge_001", got[0].ID)
}

func TestPlaceholderNotSearchable(t *testing.T) {
	s := synced(t)

	got, err := s.Retrieve(context.Background(), QueryOptions{Query: types.PlaceholderText})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetrieveFilters(t *testing.T) {
	s := synced(t)
	ctx := context.Background()

	tests := []struct {
		name string
		opts QueryOptions
		want []string
	}{
		{"all in collection order", QueryOptions{}, []string{"hexagram_001", "hexagram_002", "book_knowledge_001", "book_knowledge_002"}},
		{"kind", QueryOptions{Kind: KindAnnotation}, []string{"book_knowledge_001", "book_knowledge_002"}},
		{"category", QueryOptions{Category: "五行思想"}, []string{"book_knowledge_002"}},
		{"number", QueryOptions{Number: 2}, []string{"hexagram_002"}},
		{"keyword", QueryOptions{Keywords: []string{"天"}}, []string{"hexagram_001"}},
		{"keywords AND", QueryOptions{Keywords: []string{"陰陽", "五行"}}, nil},
		{"limit", QueryOptions{MaxResults: 1}, []string{"hexagram_001"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Retrieve(ctx, tt.opts)
			require.NoError(t, err)
			var ids []string
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestExport(t *testing.T) {
	s := synced(t)
	ctx := context.Background()

	path, err := s.ExportYAML(ctx, QueryOptions{Kind: KindHexagram})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var fromYAML []Result
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Len(t, fromYAML, 2)

	path, err = s.ExportJSON(ctx, QueryOptions{Category: "存在しない"})
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	var fromJSON []Result
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Empty(t, fromJSON)
	assert.Equal(t, "[]", string(data))
}
