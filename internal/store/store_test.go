// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/yijing-kb/pkg/types"
)

const seed = `[
    {
        "id": "hexagram_002",
        "name": "坤",
        "number": 2,
        "custom": true
    }
]
`

func newStore(t *testing.T, content string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kb.json")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return New(types.StoreConfig{Path: path})
}

func appendRecord(r types.Record) Mutator {
	return func(prior types.Collection) (types.Collection, error) {
		return append(prior, r), nil
	}
}

func TestBackupPathFor(t *testing.T) {
	assert.Equal(t, "data/fortune-knowledge-backup.json", BackupPathFor("data/fortune-knowledge.json"))
	assert.Equal(t, "kb-backup", BackupPathFor("kb"))
}

func TestCommitWritesBackupOfPriorBytes(t *testing.T) {
	s := newStore(t, seed)

	res, err := s.Commit(CommitOptions{}, appendRecord(types.Record{ID: "hexagram_001", Name: "乾", Number: types.IntPtr(1)}))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Before)
	assert.Equal(t, 2, res.After)
	assert.True(t, res.BackupWritten)
	assert.True(t, res.Written)

	backup, err := os.ReadFile(s.BackupPath())
	require.NoError(t, err)
	assert.Equal(t, seed, string(backup))

	c, err := s.Load()
	require.NoError(t, err)
	require.Len(t, c, 2)
	assert.Contains(t, string(c[0].Extra["custom"]), "true", "unknown fields survive a commit")

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, res.Bytes, len(data))
	assert.True(t, strings.HasPrefix(string(data), "[\n    {"), "four-space indent")
}

func TestCommitDryRun(t *testing.T) {
	s := newStore(t, seed)

	res, err := s.Commit(CommitOptions{DryRun: true}, appendRecord(types.Record{ID: "x"}))
	require.NoError(t, err)
	assert.Equal(t, 2, res.After)
	assert.Positive(t, res.Bytes)
	assert.False(t, res.Written)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, seed, string(data))
	_, err = os.Stat(s.BackupPath())
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestCommitMissingDocument(t *testing.T) {
	t.Run("refused by default", func(t *testing.T) {
		s := newStore(t, "")
		_, err := s.Commit(CommitOptions{}, appendRecord(types.Record{ID: "x"}))
		require.Error(t, err)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("allowed starts empty without backup", func(t *testing.T) {
		s := newStore(t, "")
		res, err := s.Commit(CommitOptions{AllowMissing: true}, appendRecord(types.Record{ID: "x"}))
		require.NoError(t, err)
		assert.Equal(t, 0, res.Before)
		assert.False(t, res.BackupWritten)
		_, err = os.Stat(s.BackupPath())
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})
}

func TestCommitCorruptDocumentWritesNothing(t *testing.T) {
	for _, content := range []string{"{not json", "   \n"} {
		s := newStore(t, content)
		called := false
		_, err := s.Commit(CommitOptions{AllowMissing: true}, func(c types.Collection) (types.Collection, error) {
			called = true
			return c, nil
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCorrupt))
		assert.False(t, called)

		data, err := os.ReadFile(s.Path())
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
	}
}

func TestCommitMutatorErrorWritesNothing(t *testing.T) {
	s := newStore(t, seed)
	boom := errors.New("boom")

	_, err := s.Commit(CommitOptions{}, func(types.Collection) (types.Collection, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	_, err = os.Stat(s.BackupPath())
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestCommitMutatorGetsPrivateCopy(t *testing.T) {
	s := newStore(t, seed)
	var seen types.Collection
	_, err := s.Commit(CommitOptions{DryRun: true}, func(c types.Collection) (types.Collection, error) {
		seen = c
		c[0].Name = "変更"
		return c, nil
	})
	require.NoError(t, err)

	c, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "坤", c[0].Name)
	assert.Equal(t, "変更", seen[0].Name)
}

func TestEncodeEmptyCollection(t *testing.T) {
	data, err := Encode(nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestWriteDocumentRefusesCanonicalPaths(t *testing.T) {
	s := newStore(t, seed)

	_, err := s.WriteDocument(s.Path(), types.Collection{})
	require.Error(t, err)
	_, err = s.WriteDocument(s.BackupPath(), types.Collection{})
	require.Error(t, err)

	out := filepath.Join(filepath.Dir(s.Path()), "template.json")
	n, err := s.WriteDocument(out, types.Collection{{ID: "hexagram_003", Name: "屯", Number: types.IntPtr(3)}})
	require.NoError(t, err)
	assert.Positive(t, n)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, seed, string(data))
}
