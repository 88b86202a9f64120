// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// minTrigram is the shortest query the trigram tokenizer can match; shorter
// queries fall back to a substring scan.
const minTrigram = 3

// QueryOptions holds parameters for index queries.
type QueryOptions struct {
	// Query is the full-text search string.
	Query string

	// Kind filters by KindHexagram or KindAnnotation.
	Kind string

	// Category filters annotation records by category.
	Category string

	// Keywords filters by one or more keywords with AND semantics.
	Keywords []string

	// Number filters hexagram records by number. Zero means any.
	Number int

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Kind == "" && q.Category == "" && len(q.Keywords) == 0 && q.Number == 0
}

// Result is one matching record.
type Result struct {
	ID       string   `json:"id" yaml:"id"`
	Kind     string   `json:"kind" yaml:"kind"`
	Number   int      `json:"number,omitempty" yaml:"number,omitempty"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Symbol   string   `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Title    string   `json:"title,omitempty" yaml:"title,omitempty"`
	Category string   `json:"category,omitempty" yaml:"category,omitempty"`
	Keywords []string `json:"keywords" yaml:"keywords"`
	Body     string   `json:"body" yaml:"body"`
	Complete *bool    `json:"complete,omitempty" yaml:"complete,omitempty"`
}

// Label is a short human-readable identification of the record.
func (r Result) Label() string {
	if r.Kind == KindHexagram && r.Number > 0 {
		return fmt.Sprintf("%d %s %s", r.Number, r.Name, r.Symbol)
	}
	if r.Title != "" {
		return fmt.Sprintf("%s [%s]", r.Title, r.Category)
	}
	return r.ID
}

// Retrieve queries the mirror with optional full-text search and structured
// filters. Full-text results are ranked by relevance; filter-only results
// keep collection order.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]Result, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = utf8.RuneCountInString(opts.Query) >= minTrigram
	)

	const cols = `r.id, r.kind, r.number, r.name, r.symbol, r.title, r.category, r.keywords, r.body, r.complete`
	if useFTS {
		qb.WriteString(`SELECT ` + cols + ` FROM records_fts
			JOIN records r ON r.rowid = records_fts.rowid
			WHERE records_fts MATCH ?`)
		args = append(args, ftsPhrase(opts.Query))
	} else {
		qb.WriteString(`SELECT ` + cols + ` FROM records r WHERE 1=1`)
		if opts.Query != "" {
			qb.WriteString(` AND r.body LIKE ?`)
			args = append(args, "%"+opts.Query+"%")
		}
	}

	if opts.Kind != "" {
		qb.WriteString(` AND r.kind = ?`)
		args = append(args, opts.Kind)
	}
	if opts.Category != "" {
		qb.WriteString(` AND r.category = ?`)
		args = append(args, opts.Category)
	}
	if opts.Number > 0 {
		qb.WriteString(` AND r.number = ?`)
		args = append(args, opts.Number)
	}
	for _, kw := range opts.Keywords {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(r.keywords) WHERE value = ?)`)
		args = append(args, kw)
	}

	if useFTS {
		qb.WriteString(` ORDER BY records_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY r.position`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			res      Result
			number   sql.NullInt64
			name     sql.NullString
			symbol   sql.NullString
			title    sql.NullString
			category sql.NullString
			keywords sql.NullString
			complete sql.NullBool
		)
		if err := rows.Scan(&res.ID, &res.Kind, &number, &name, &symbol, &title, &category,
			&keywords, &res.Body, &complete); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		res.Number = int(number.Int64)
		res.Name, res.Symbol, res.Title, res.Category = name.String, symbol.String, title.String, category.String
		if keywords.Valid {
			json.Unmarshal([]byte(keywords.String), &res.Keywords)
		}
		if complete.Valid {
			b := complete.Bool
			res.Complete = &b
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// ftsPhrase quotes q as a single FTS5 phrase so that user input is never
// parsed as query syntax.
func ftsPhrase(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}
