// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch runs a handler for every source file that appears or
// changes in a directory. Events for one path are coalesced until the file
// has been quiet for a settle period, and handlers run one at a time so
// that runs against the store never overlap.
package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must stay unchanged before it is handled.
const DefaultSettle = 2 * time.Second

// Handler processes one settled file.
type Handler func(ctx context.Context, path string) error

// Watcher monitors one directory.
type Watcher struct {
	fs         *fsnotify.Watcher
	extensions []string
	settle     time.Duration
	logger     *slog.Logger
}

// New creates a watcher for files with the given extensions (".pdf" when
// none are given).
func New(extensions []string, settle time.Duration, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	exts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	if len(exts) == 0 {
		exts = []string{".pdf"}
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Watcher{fs: fw, extensions: exts, settle: settle, logger: logger}, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Run watches dir until ctx is done, calling handle for each settled file.
// Handler errors are logged and do not stop the watch.
func (w *Watcher) Run(ctx context.Context, dir string, handle Handler) error {
	if err := w.fs.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.logger.Info("watching", "dir", dir, "extensions", w.extensions)

	pending := make(map[string]time.Time)
	timer := time.NewTimer(w.settle)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.watched(ev.Name) || !(ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) {
				continue
			}
			pending[ev.Name] = time.Now().Add(w.settle)
			timer.Reset(w.settle)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			now := time.Now()
			var due []string
			for p, at := range pending {
				if !at.After(now) {
					due = append(due, p)
				}
			}
			sort.Strings(due)
			for _, p := range due {
				delete(pending, p)
				if ctx.Err() != nil {
					return nil
				}
				if err := handle(ctx, p); err != nil {
					w.logger.Error("handling file", "path", p, "error", err)
				}
			}
			if next, ok := earliest(pending); ok {
				timer.Reset(max(time.Until(next), time.Millisecond))
			}
		}
	}
}

func (w *Watcher) watched(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func earliest(m map[string]time.Time) (time.Time, bool) {
	var (
		first time.Time
		found bool
	)
	for _, t := range m {
		if !found || t.Before(first) {
			first, found = t, true
		}
	}
	return first, found
}
