// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index mirrors the knowledge collection into a SQLite database
// with an FTS5 table for full-text search. The mirror is derived data: it
// is rebuilt from the collection whenever the collection changes and never
// written back.
package index

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/yijing-kb/pkg/types"
)

// Kinds stored in the records table.
const (
	KindHexagram   = "hexagram"
	KindAnnotation = "annotation"
)

const defaultMaxResults = 20

// Store manages the search database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
}

// NewStore opens or creates the database at cfg.DBPath and creates the
// schema if it does not exist.
func NewStore(cfg types.IndexConfig) (*Store, error) {
	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, dir: dir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			position INTEGER NOT NULL,
			number INTEGER,
			name TEXT,
			symbol TEXT,
			title TEXT,
			category TEXT,
			keywords TEXT,
			body TEXT NOT NULL,
			complete INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_kind ON records(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_records_category ON records(category)`,
		`CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='records_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	// Trigram tokens let unsegmented Japanese text match on substrings.
	ftsStatements := []string{
		`CREATE VIRTUAL TABLE records_fts USING fts5(body, content=records, content_rowid=rowid, tokenize='trigram')`,
		`CREATE TRIGGER records_ai AFTER INSERT ON records BEGIN
			INSERT INTO records_fts(rowid, body) VALUES (new.rowid, new.body);
		END`,
		`CREATE TRIGGER records_ad AFTER DELETE ON records BEGIN
			INSERT INTO records_fts(records_fts, rowid, body) VALUES('delete', old.rowid, old.body);
		END`,
		`CREATE TRIGGER records_au AFTER UPDATE ON records BEGIN
			INSERT INTO records_fts(records_fts, rowid, body) VALUES('delete', old.rowid, old.body);
			INSERT INTO records_fts(rowid, body) VALUES (new.rowid, new.body);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// SyncSummary holds counts from one sync.
type SyncSummary struct {
	Indexed     int
	Hexagrams   int
	Annotations int

	// UpToDate is set when the collection matched the last synced digest.
	UpToDate bool
}

// Sync rebuilds the mirror from c unless c is identical to what was last
// synced (compared by digest of its serialized form).
func (s *Store) Sync(ctx context.Context, c types.Collection, w io.Writer) (SyncSummary, error) {
	digest, err := Digest(c)
	if err != nil {
		return SyncSummary{}, err
	}

	var stored string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = 'digest'`).Scan(&stored)
	if err == nil && stored == digest {
		fmt.Fprintf(w, "skipped: index up to date (%d records)\n", len(c))
		return SyncSummary{UpToDate: true}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return SyncSummary{}, fmt.Errorf("clearing records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO records (id, kind, position, number, name, symbol, title, category, keywords, body, complete)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	var sum SyncSummary
	for i := range c {
		r := &c[i]
		if r.ID == "" {
			continue
		}
		kind := KindHexagram
		if r.IsAnnotation() {
			kind = KindAnnotation
		}
		var number, complete any
		if r.Number != nil {
			number = *r.Number
		}
		if r.Complete != nil {
			complete = *r.Complete
		}
		kw, _ := json.Marshal(r.Keywords)
		res, err := stmt.ExecContext(ctx,
			r.ID, kind, i, number, r.Name, r.Symbol, r.Title, r.Category,
			string(kw), body(r), complete,
		)
		if err != nil {
			return SyncSummary{}, fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
		// A repeated id keeps its first occurrence.
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		sum.Indexed++
		if kind == KindAnnotation {
			sum.Annotations++
		} else {
			sum.Hexagrams++
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sync_state (key, value) VALUES ('digest', ?), ('synced_at', ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		digest, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return SyncSummary{}, fmt.Errorf("updating sync state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return SyncSummary{}, fmt.Errorf("committing index: %w", err)
	}

	fmt.Fprintf(w, "indexed: %d records (hexagrams %d, annotations %d)\n",
		sum.Indexed, sum.Hexagrams, sum.Annotations)
	return sum, nil
}

// Digest returns a hex sha256 over the serialized collection.
func Digest(c types.Collection) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding collection: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// body is the searchable text of a record.
func body(r *types.Record) string {
	parts := []string{r.Name, r.Title, r.Description, r.Meaning, r.Advice, r.Content, strings.Join(r.Keywords, " ")}
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" && p != types.PlaceholderText {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}
