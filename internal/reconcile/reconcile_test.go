// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/yijing-kb/pkg/types"
)

func hex(n int, name string) types.Record {
	return types.Record{ID: types.HexagramID(n), Name: name, Number: types.IntPtr(n)}
}

func names(c types.Collection) []string {
	out := make([]string, len(c))
	for i, r := range c {
		out[i] = r.Name + r.Title
	}
	return out
}

func TestMergeExistingWins(t *testing.T) {
	existing := types.Collection{hex(1, "乾"), hex(2, "坤"), hex(3, "屯")}
	batch := types.Collection{hex(2, "別の坤"), hex(4, "蒙")}

	res := Merge(existing, batch, UnnumberedLast)

	assert.Equal(t, []string{"乾", "坤", "屯", "蒙"}, names(res.Collection))
	require.Len(t, res.Added, 1)
	assert.Equal(t, "蒙", res.Added[0].Name)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "別の坤", res.Skipped[0].Record.Name)
	assert.Equal(t, ReasonExisting, res.Skipped[0].Reason)

	assert.Equal(t, "坤", existing[1].Name, "inputs are not modified")
}

func TestMergeBatchDuplicates(t *testing.T) {
	res := Merge(nil, types.Collection{hex(5, "需"), hex(5, "需2"), hex(3, "屯")}, UnnumberedLast)

	assert.Equal(t, []string{"屯", "需"}, names(res.Collection))
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, ReasonBatchDup, res.Skipped[0].Reason)
}

func TestMergeUnnumberedByID(t *testing.T) {
	existing := types.Collection{
		hex(1, "乾"),
		{ID: "book_knowledge_001", Type: types.TypeAnnotation, Title: "陰陽"},
	}
	batch := types.Collection{
		{ID: "book_knowledge_001", Type: types.TypeAnnotation, Title: "重複"},
		{ID: "book_knowledge_002", Type: types.TypeAnnotation, Title: "五行"},
		hex(2, "坤"),
	}

	res := Merge(existing, batch, UnnumberedLast)

	assert.Equal(t, []string{"乾", "坤", "陰陽", "五行"}, names(res.Collection))
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, ReasonExistingID, res.Skipped[0].Reason)
}

func TestMergeKeepsEveryExistingRecord(t *testing.T) {
	existing := types.Collection{
		hex(3, "屯"),
		hex(3, "屯の重複"),
		{ID: "", Name: "無名"},
	}
	res := Merge(existing, types.Collection{hex(3, "新")}, UnnumberedLast)

	assert.Len(t, res.Collection, 3)
	assert.Equal(t, []string{"屯", "屯の重複", "無名"}, names(res.Collection))
}

func TestSortPolicies(t *testing.T) {
	c := types.Collection{hex(3, "屯"), {Name: "X"}, hex(1, "乾"), {Name: "Y"}, hex(2, "坤")}

	assert.Equal(t, []string{"乾", "坤", "屯", "X", "Y"}, names(Sort(c, UnnumberedLast)))
	assert.Equal(t, []string{"X", "Y", "乾", "坤", "屯"}, names(Sort(c, UnnumberedFirst)))
	assert.Equal(t, []string{"乾", "Y", "坤", "屯", "X"}, names(Sort(c, UnnumberedInPlace)))
}

func TestMergeKeepsUnnumberedArrivalOrder(t *testing.T) {
	existing := types.Collection{
		hex(5, "需"),
		{ID: "book_knowledge_001", Type: types.TypeAnnotation, Title: "A"},
		hex(2, "坤"),
		{ID: "book_knowledge_002", Type: types.TypeAnnotation, Title: "B"},
	}
	batch := types.Collection{
		hex(4, "蒙"),
		{ID: "book_knowledge_003", Type: types.TypeAnnotation, Title: "C"},
	}

	tests := []struct {
		policy Policy
		want   []string
	}{
		{UnnumberedLast, []string{"坤", "蒙", "需", "A", "B", "C"}},
		{UnnumberedFirst, []string{"A", "B", "C", "坤", "蒙", "需"}},
		{UnnumberedInPlace, []string{"坤", "B", "蒙", "C", "需", "A"}},
	}
	for _, tt := range tests {
		res := Merge(existing, batch, tt.policy)
		assert.Equal(t, tt.want, names(res.Collection), "policy %d", tt.policy)
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, UnnumberedLast, p)

	p, err = ParsePolicy("in-place")
	require.NoError(t, err)
	assert.Equal(t, UnnumberedInPlace, p)

	p, err = ParsePolicy("first")
	require.NoError(t, err)
	assert.Equal(t, UnnumberedFirst, p)

	_, err = ParsePolicy("middle")
	require.Error(t, err)
}

func TestReport(t *testing.T) {
	res := Merge(types.Collection{hex(2, "坤")}, types.Collection{hex(2, "坤"), hex(4, "蒙")}, UnnumberedLast)

	var buf bytes.Buffer
	res.Report(&buf)
	out := buf.String()
	assert.Contains(t, out, "skipped: 2 坤 (already present)")
	assert.Contains(t, out, "added:   4 蒙")
	assert.Contains(t, out, "merge summary: 1 added, 1 skipped (total: 2)")
}
