// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunHandlesSettledFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{".pdf"}, 50*time.Millisecond, nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	var (
		mu   sync.Mutex
		seen []string
	)
	done := make(chan struct{}, 4)
	handle := func(_ context.Context, path string) error {
		mu.Lock()
		seen = append(seen, filepath.Base(path))
		mu.Unlock()
		done <- struct{}{}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopped := make(chan error, 1)
	go func() { stopped <- w.Run(ctx, dir, handle) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(50 * time.Millisecond)

	pdf := filepath.Join(dir, "book.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644))
	f, err := os.OpenFile(pdf, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("\n%%EOF")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler not called")
	}

	// Repeated writes to the same file coalesce into one call.
	time.Sleep(200 * time.Millisecond)
	cancel()
	require.NoError(t, <-stopped)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"book.pdf"}, seen)
}

func TestRunMissingDir(t *testing.T) {
	w, err := New(nil, 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	err = w.Run(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)
}

func TestWatchedExtension(t *testing.T) {
	w := &Watcher{extensions: []string{".pdf", ".txt"}}
	assert.True(t, w.watched("/a/b.PDF"))
	assert.True(t, w.watched("c.txt"))
	assert.False(t, w.watched("d.json"))
}

func TestNewNormalizesExtensions(t *testing.T) {
	w, err := New([]string{"PDF", " .Txt", ""}, 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	assert.Equal(t, []string{".pdf", ".txt"}, w.extensions)
	assert.Equal(t, DefaultSettle, w.settle)
}
