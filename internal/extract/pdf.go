// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Document is a paginated source. Pages are numbered from 1.
type Document interface {
	PageCount() int

	// PageText returns the text drawn on page n, or "" when the page carries
	// no extractable text.
	PageText(n int) (string, error)
}

// ImageDetector is implemented by documents that can tell whether a page
// embeds raster images. It is used only for reporting.
type ImageDetector interface {
	HasImages(n int) bool
}

// Opener opens a document by path.
type Opener func(path string) (Document, error)

// pdfDocument reads page content streams with pdfcpu.
type pdfDocument struct {
	ctx *model.Context
}

// OpenPDF reads and validates the PDF at path. Any failure is reported as
// ErrSourceUnavailable.
func OpenPDF(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrSourceUnavailable, path, err)
	}
	return &pdfDocument{ctx: ctx}, nil
}

func (d *pdfDocument) PageCount() int {
	return d.ctx.PageCount
}

func (d *pdfDocument) PageText(n int) (string, error) {
	r, err := pdfcpu.ExtractPageContent(d.ctx, n)
	if err != nil {
		return "", fmt.Errorf("reading content of page %d: %w", n, err)
	}
	if r == nil {
		return "", nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading content of page %d: %w", n, err)
	}
	return streamText(data), nil
}

func (d *pdfDocument) HasImages(n int) bool {
	if d.ctx.Optimize == nil {
		return false
	}
	return len(pdfcpu.ImageObjNrs(d.ctx, n)) > 0
}
