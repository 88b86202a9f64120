// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract recovers text from paginated source documents. Each page
// runs through an ordered chain of strategies (direct text, rasterize and
// keep the image, rasterize and OCR); the first strategy that yields text
// wins. A failing page degrades to "no text" and never stops the run. Only
// a failure to open the document is fatal.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/yijing-kb/internal/tools"
	"github.com/pdiddy/yijing-kb/pkg/types"
)

// ErrSourceUnavailable reports a document that could not be opened.
var ErrSourceUnavailable = errors.New("source unavailable")

// Outcome is what a page finally produced.
type Outcome string

const (
	OutcomeText  Outcome = "text"
	OutcomeOCR   Outcome = "ocr"
	OutcomeImage Outcome = "image"
	OutcomeNone  Outcome = "none"
)

// PageResult is the outcome for one page.
type PageResult struct {
	Page      int
	Text      string
	ImagePath string
	Outcome   Outcome

	// Strategy names the strategy that produced Outcome.
	Strategy string

	// Errors collects strategy failures absorbed for this page.
	Errors []string
}

// Page is the unit of work handed to a strategy.
type Page struct {
	Doc    Document
	Source string
	Number int

	// Image is the path of a raster already produced for this page by an
	// earlier strategy, or "".
	Image string
}

// Strategy is one way of recovering a page. Extract returns ok when the
// page now has text; a result without text may still carry an image.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, p *Page) (PageResult, bool)
}

// DirectText reads the text layer of the document.
type DirectText struct{}

func (DirectText) Name() string { return "direct-text" }

func (DirectText) Extract(_ context.Context, p *Page) (PageResult, bool) {
	text, err := p.Doc.PageText(p.Number)
	if err != nil {
		return PageResult{Errors: []string{err.Error()}}, false
	}
	if strings.TrimSpace(text) == "" {
		return PageResult{}, false
	}
	return PageResult{Text: text, Outcome: OutcomeText}, true
}

// ToolText reads the text layer with an external program, which decodes
// fonts the built-in reader cannot.
type ToolText struct {
	Tool tools.TextLayer
}

func (ToolText) Name() string { return "tool-text" }

func (t ToolText) Extract(ctx context.Context, p *Page) (PageResult, bool) {
	text, err := t.Tool.PageText(ctx, p.Source, p.Number)
	if err != nil {
		return PageResult{Errors: []string{err.Error()}}, false
	}
	text = cleanText(text)
	if text == "" {
		return PageResult{}, false
	}
	return PageResult{Text: text, Outcome: OutcomeText}, true
}

// StoreImage rasterizes the page into Dir and keeps the file. It never
// yields text, so later strategies still run.
type StoreImage struct {
	Rasterizer tools.Rasterizer
	Dir        string
	DPI        int
}

func (StoreImage) Name() string { return "rasterize-then-store" }

func (s StoreImage) Extract(ctx context.Context, p *Page) (PageResult, bool) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return PageResult{Errors: []string{err.Error()}}, false
	}
	out := filepath.Join(s.Dir, imageName(p.Source, p.Number))
	if err := s.Rasterizer.Rasterize(ctx, p.Source, p.Number, s.DPI, out); err != nil {
		return PageResult{Errors: []string{err.Error()}}, false
	}
	p.Image = out
	return PageResult{ImagePath: out, Outcome: OutcomeImage}, false
}

// OCRText rasterizes the page (unless an earlier strategy already did) and
// runs OCR over the image with the configured language.
type OCRText struct {
	Rasterizer tools.Rasterizer
	Engine     tools.OCR
	Lang       string
	DPI        int

	// Scratch holds rasters that are not kept.
	Scratch string
}

func (OCRText) Name() string { return "rasterize-then-ocr" }

func (o OCRText) Extract(ctx context.Context, p *Page) (PageResult, bool) {
	img := p.Image
	if img == "" {
		img = filepath.Join(o.Scratch, imageName(p.Source, p.Number))
		if err := o.Rasterizer.Rasterize(ctx, p.Source, p.Number, o.DPI, img); err != nil {
			return PageResult{Errors: []string{err.Error()}}, false
		}
	}
	text, err := o.Engine.Recognize(ctx, img, o.Lang)
	if err != nil {
		return PageResult{Errors: []string{err.Error()}}, false
	}
	text = cleanText(text)
	if text == "" {
		return PageResult{}, false
	}
	return PageResult{Text: text, Outcome: OutcomeOCR}, true
}

func imageName(source string, page int) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return fmt.Sprintf("%s_page_%03d.png", stem, page)
}

// Extractor runs the strategy chain over every page of a document.
type Extractor struct {
	Open       Opener
	Strategies []Strategy

	// MaxPages bounds the run to pages 1..MaxPages. Zero means all pages.
	MaxPages int

	Logger *slog.Logger
}

// New builds an Extractor from configuration. Rasterizer and OCR may be nil;
// strategies that need a missing tool are left out of the chain. scratch is
// used for rasters that are OCRed but not kept.
func New(cfg types.ExtractConfig, r tools.Rasterizer, ocr tools.OCR, scratch string, logger *slog.Logger) *Extractor {
	chain := []Strategy{DirectText{}}
	if r != nil && cfg.SaveImages {
		chain = append(chain, StoreImage{Rasterizer: r, Dir: cfg.ImagesDir, DPI: cfg.DPI})
	}
	if r != nil && ocr != nil && cfg.EnableOCR {
		chain = append(chain, OCRText{Rasterizer: r, Engine: ocr, Lang: cfg.OCRLanguage, DPI: cfg.DPI, Scratch: scratch})
	}
	return &Extractor{
		Open:       OpenPDF,
		Strategies: chain,
		MaxPages:   cfg.MaxPages,
		Logger:     logger,
	}
}

// WithTextLayer puts a ToolText strategy at the head of the chain. The
// built-in reader then only runs for pages the tool returns nothing for. A
// nil tool leaves the chain unchanged.
func (e *Extractor) WithTextLayer(tl tools.TextLayer) *Extractor {
	if tl == nil {
		return e
	}
	e.Strategies = append([]Strategy{ToolText{Tool: tl}}, e.Strategies...)
	return e
}

// Report is the per-page account of one document.
type Report struct {
	Source    string
	PageCount int
	Pages     []PageResult
}

// Count returns how many pages ended with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, p := range r.Pages {
		if p.Outcome == o {
			n++
		}
	}
	return n
}

// Text joins the text of every page that produced some, each preceded by a
// "--- Page N ---" marker.
func (r *Report) Text() string {
	var b strings.Builder
	for _, p := range r.Pages {
		if p.Text == "" {
			continue
		}
		fmt.Fprintf(&b, "--- Page %d ---\n%s\n", p.Page, p.Text)
	}
	return b.String()
}

// Summary writes the closing count line.
func (r *Report) Summary(w io.Writer) {
	fmt.Fprintf(w, "%s: %d/%d pages processed (text %d, ocr %d, image %d, none %d)\n",
		filepath.Base(r.Source), len(r.Pages), r.PageCount,
		r.Count(OutcomeText), r.Count(OutcomeOCR), r.Count(OutcomeImage), r.Count(OutcomeNone))
}

// Run extracts the document at path. Progress is written to w one line per
// page. The returned error is non-nil only when the document cannot be
// opened or ctx is cancelled; in the latter case the partial report is
// returned alongside the error.
func (e *Extractor) Run(ctx context.Context, path string, w io.Writer) (*Report, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	open := e.Open
	if open == nil {
		open = OpenPDF
	}

	doc, err := open(path)
	if err != nil {
		if !errors.Is(err, ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		return nil, err
	}

	rep := &Report{Source: path, PageCount: doc.PageCount()}
	last := rep.PageCount
	if e.MaxPages > 0 && e.MaxPages < last {
		last = e.MaxPages
	}

	for n := 1; n <= last; n++ {
		if err := ctx.Err(); err != nil {
			return rep, fmt.Errorf("extracting %s: %w", path, err)
		}
		res := e.page(ctx, doc, path, n, logger)
		rep.Pages = append(rep.Pages, res)

		line := fmt.Sprintf("page %d: %s", n, res.Outcome)
		if res.Outcome == OutcomeText || res.Outcome == OutcomeOCR {
			line += fmt.Sprintf(" (%d chars)", len([]rune(res.Text)))
		}
		if res.Outcome == OutcomeNone {
			if d, ok := doc.(ImageDetector); ok && d.HasImages(n) {
				line += " (image-only page)"
			}
		}
		fmt.Fprintln(w, line)
	}
	return rep, nil
}

// page runs the chain for one page. Errors and panics inside a strategy
// count as "no text" from that strategy.
func (e *Extractor) page(ctx context.Context, doc Document, source string, n int, logger *slog.Logger) PageResult {
	best := PageResult{Page: n, Outcome: OutcomeNone}
	p := &Page{Doc: doc, Source: source, Number: n}

	for _, s := range e.Strategies {
		res, ok := safeExtract(ctx, s, p)
		for _, msg := range res.Errors {
			logger.Warn("page strategy failed", "source", source, "page", n, "strategy", s.Name(), "error", msg)
		}
		best.Errors = append(best.Errors, res.Errors...)
		if res.ImagePath != "" {
			best.ImagePath = res.ImagePath
			if best.Outcome == OutcomeNone {
				best.Outcome, best.Strategy = res.Outcome, s.Name()
			}
		}
		if ok {
			best.Text, best.Outcome, best.Strategy = res.Text, res.Outcome, s.Name()
			break
		}
	}
	return best
}

func safeExtract(ctx context.Context, s Strategy, p *Page) (res PageResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			res = PageResult{Errors: []string{fmt.Sprintf("panic: %v", r)}}
			ok = false
		}
	}()
	return s.Extract(ctx, p)
}
