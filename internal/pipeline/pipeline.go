// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline turns one source document into candidate hexagram
// records: text extraction, entity parsing and detail synthesis, in that
// order. It never touches the store; callers hand the records to the
// reconciler.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/yijing-kb/internal/extract"
	"github.com/pdiddy/yijing-kb/internal/parse"
	"github.com/pdiddy/yijing-kb/internal/synth"
	"github.com/pdiddy/yijing-kb/pkg/types"
)

// sampleRunes is the size of the text sample logged when a run finds no
// hexagrams.
const sampleRunes = 200

// Pipeline holds the per-run collaborators.
type Pipeline struct {
	Extractor *extract.Extractor
	Parse     parse.Options
	PageIndex types.PageIndex
	Logger    *slog.Logger
}

// Result is what one source produced.
type Result struct {
	Source     string
	Extraction *extract.Report
	Candidates []parse.Candidate
	Rejections []parse.Rejection
	Records    types.Collection

	// Lo and Hi are the number range applied to this source.
	Lo, Hi int

	Lines, Matched int
}

// Import processes path. Plain-text files (.txt) skip extraction and are
// parsed directly; anything else goes through the extractor.
func (p *Pipeline) Import(ctx context.Context, path string, w io.Writer) (*Result, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", extract.ErrSourceUnavailable, err)
		}
		return p.ParseText(path, string(data), w), nil
	}

	if p.Extractor == nil {
		return nil, fmt.Errorf("no extractor configured for %s", path)
	}
	rep, err := p.Extractor.Run(ctx, path, w)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", path, err)
	}
	rep.Summary(w)
	res := p.parse(path, w, func(ps *parse.Parser) {
		for _, pg := range rep.Pages {
			if pg.Text != "" {
				ps.Feed(pg.Page, pg.Text)
			}
		}
	})
	res.Extraction = rep
	return res, nil
}

// ParseText parses already recovered text. Page markers in the text are
// honoured.
func (p *Pipeline) ParseText(source, text string, w io.Writer) *Result {
	return p.parse(source, w, func(ps *parse.Parser) {
		ps.Feed(0, text)
	})
}

func (p *Pipeline) parse(source string, w io.Writer, feed func(*parse.Parser)) *Result {
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	opts := p.Parse
	opts.Lo, opts.Hi, _ = p.PageIndex.Lookup(filepath.Base(source))
	ps := parse.New(opts)
	feed(ps)

	res := &Result{
		Source:     source,
		Candidates: ps.Candidates(),
		Rejections: ps.Rejections(),
		Lo:         opts.Lo,
		Hi:         opts.Hi,
	}
	res.Lines, res.Matched = ps.Stats()

	for i := range res.Candidates {
		c := &res.Candidates[i]
		rec := c.Record()
		synth.Apply(&rec, synth.Derive(c.Block()))
		res.Records = append(res.Records, rec)
		fmt.Fprintf(w, "found:    %d %s (page %d, %s)\n", c.Number, c.Name, c.Page, c.Rule)
	}
	for _, rj := range res.Rejections {
		fmt.Fprintf(w, "rejected: %d %s (page %d, %s)\n", rj.Match.Number, rj.Match.Name, rj.Page, rj.Reason)
	}

	if len(res.Candidates) == 0 {
		logger.Warn("no hexagrams found", "source", source, "lines", res.Lines, "sample", ps.Sample(sampleRunes))
		fmt.Fprintf(w, "warning: no hexagrams found in %s (%d lines read)\n", filepath.Base(source), res.Lines)
	}
	fmt.Fprintf(w, "%s: %d candidates, %d rejected (range %d-%d)\n",
		filepath.Base(source), len(res.Candidates), len(res.Rejections), res.Lo, res.Hi)
	return res
}
