// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store reads and writes the canonical record collection as a single
// JSON document. Every overwrite goes through Commit, which copies the prior
// document to a sibling backup before the new one is written.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/yijing-kb/pkg/types"
)

// ErrCorrupt reports that the existing collection could not be decoded. No
// write is attempted after this error.
var ErrCorrupt = errors.New("collection document is corrupt")

const defaultIndent = 4

// Store is the gateway to one persisted collection and its backup.
type Store struct {
	path       string
	backupPath string
	indent     int
}

// New returns a Store for the document at cfg.Path.
func New(cfg types.StoreConfig) *Store {
	indent := cfg.Indent
	if indent <= 0 {
		indent = defaultIndent
	}
	backup := cfg.BackupPath
	if backup == "" {
		backup = BackupPathFor(cfg.Path)
	}
	return &Store{path: cfg.Path, backupPath: backup, indent: indent}
}

// BackupPathFor derives the sibling backup path: data/x.json -> data/x-backup.json.
func BackupPathFor(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-backup" + ext
}

// Path returns the collection document path.
func (s *Store) Path() string { return s.path }

// BackupPath returns the backup document path.
func (s *Store) BackupPath() string { return s.backupPath }

// Load reads and decodes the full collection. A missing document yields an
// error wrapping fs.ErrNotExist; an undecodable one wraps ErrCorrupt.
func (s *Store) Load() (types.Collection, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading collection %s: %w", s.path, err)
	}
	return Decode(raw)
}

// Decode parses a collection document.
func Decode(raw []byte) (types.Collection, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrCorrupt)
	}
	var c types.Collection
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if c == nil {
		c = types.Collection{}
	}
	return c, nil
}

// Encode serializes a collection as an indented JSON array without HTML
// escaping. Output is deterministic for a given collection.
func Encode(c types.Collection, indent int) ([]byte, error) {
	if c == nil {
		c = types.Collection{}
	}
	if indent <= 0 {
		indent = defaultIndent
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", strings.Repeat(" ", indent))
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encoding collection: %w", err)
	}
	return buf.Bytes(), nil
}

// CommitOptions controls a Commit run.
type CommitOptions struct {
	// AllowMissing treats an absent document as an empty collection.
	AllowMissing bool

	// DryRun computes the new collection but writes nothing.
	DryRun bool
}

// CommitResult reports what a Commit did.
type CommitResult struct {
	Before        int
	After         int
	Bytes         int
	BackupWritten bool
	Written       bool
}

// Mutator computes the new collection from the prior one. It receives a
// private copy and may modify it freely.
type Mutator func(prior types.Collection) (types.Collection, error)

// Commit runs one read-modify-write transaction: read the prior document,
// compute the new collection, write the backup, write the new document.
// Failure to read or decode the prior document, to compute the new value or
// to write the backup aborts before anything is written.
func (s *Store) Commit(opts CommitOptions, fn Mutator) (CommitResult, error) {
	var res CommitResult

	raw, err := os.ReadFile(s.path)
	exists := err == nil
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && opts.AllowMissing:
	default:
		return res, fmt.Errorf("reading collection %s: %w", s.path, err)
	}

	prior := types.Collection{}
	if exists {
		prior, err = Decode(raw)
		if err != nil {
			return res, fmt.Errorf("loading %s: %w", s.path, err)
		}
	}
	res.Before = len(prior)

	next, err := fn(prior.Clone())
	if err != nil {
		return res, err
	}
	res.After = len(next)

	data, err := Encode(next, s.indent)
	if err != nil {
		return res, err
	}
	res.Bytes = len(data)

	if opts.DryRun {
		return res, nil
	}

	if exists {
		if err := writeAtomic(s.backupPath, raw); err != nil {
			return res, fmt.Errorf("writing backup %s: %w", s.backupPath, err)
		}
		res.BackupWritten = true
	}

	if err := writeAtomic(s.path, data); err != nil {
		return res, fmt.Errorf("writing collection %s: %w", s.path, err)
	}
	res.Written = true
	return res, nil
}

// WriteDocument writes a derived document (such as a template export) to
// path. It refuses to touch the canonical collection or its backup.
func (s *Store) WriteDocument(path string, c types.Collection) (int, error) {
	if sameFile(path, s.path) || sameFile(path, s.backupPath) {
		return 0, fmt.Errorf("refusing to write derived document over %s", path)
	}
	data, err := Encode(c, s.indent)
	if err != nil {
		return 0, err
	}
	if err := writeAtomic(path, data); err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return len(data), nil
}

func sameFile(a, b string) bool {
	ca, errA := filepath.Abs(a)
	cb, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return ca == cb
}

// writeAtomic writes data to a temp file in the target directory, syncs it
// and renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
