// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tools detects and runs the external programs used for pages the
// built-in reader cannot handle: a text layer reader (pdftotext), a
// rasterizer (pdftoppm, falling back to mutool) and an OCR engine
// (tesseract).
package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	binPdftotext = "pdftotext"
	binPdftoppm  = "pdftoppm"
	binMutool    = "mutool"
	binTesseract = "tesseract"
)

// TextLayer reads the embedded text of one PDF page. It decodes fonts
// (CID-keyed CJK fonts in particular) that a raw content-stream scan
// cannot.
type TextLayer interface {
	Name() string

	// PageText returns the text of page (1-based) of pdfPath.
	PageText(ctx context.Context, pdfPath string, page int) (string, error)
}

// Rasterizer renders one PDF page to a PNG file.
type Rasterizer interface {
	// Name returns the program name ("pdftoppm" or "mutool").
	Name() string

	// Rasterize renders page (1-based) of pdfPath at dpi into outPath.
	Rasterize(ctx context.Context, pdfPath string, page, dpi int, outPath string) error
}

// OCR recovers text from a page image.
type OCR interface {
	// Recognize returns the text found in imagePath for the given script
	// or language identifier (e.g. "jpn").
	Recognize(ctx context.Context, imagePath, lang string) (string, error)
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	Run(ctx context.Context, name string, args []string, stdout io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (o *osExecutor) Run(ctx context.Context, name string, args []string, stdout io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// program is a binary that answers a version probe.
type program struct {
	bin   string
	probe []string
	exec  executor
}

func (p *program) Name() string { return p.bin }

func (p *program) available() bool {
	if _, err := p.exec.LookPath(p.bin); err != nil {
		return false
	}
	return p.exec.RunSilent(p.bin, p.probe...) == nil
}

// pdftotext reads the text layer with poppler, writing UTF-8 to stdout.
type pdftotext struct{ program }

func (p *pdftotext) PageText(ctx context.Context, pdfPath string, page int) (string, error) {
	n := strconv.Itoa(page)
	args := []string{"-f", n, "-l", n, "-enc", "UTF-8", "-layout", pdfPath, "-"}
	var out bytes.Buffer
	if err := p.exec.Run(ctx, p.bin, args, &out); err != nil {
		return "", fmt.Errorf("reading page %d with %s: %w", page, p.bin, err)
	}
	return out.String(), nil
}

// pdftoppm renders with poppler: -singlefile writes <prefix>.png.
type pdftoppm struct{ program }

func (r *pdftoppm) Rasterize(ctx context.Context, pdfPath string, page, dpi int, outPath string) error {
	prefix := strings.TrimSuffix(outPath, filepath.Ext(outPath))
	n := strconv.Itoa(page)
	args := []string{"-f", n, "-l", n, "-png", "-r", strconv.Itoa(dpi), "-singlefile", pdfPath, prefix}
	if err := r.exec.Run(ctx, r.bin, args, io.Discard); err != nil {
		return fmt.Errorf("rasterizing page %d with %s: %w", page, r.bin, err)
	}
	if prefix+".png" != outPath {
		return os.Rename(prefix+".png", outPath)
	}
	return nil
}

// mutool renders with MuPDF.
type mutool struct{ program }

func (r *mutool) Rasterize(ctx context.Context, pdfPath string, page, dpi int, outPath string) error {
	args := []string{"draw", "-q", "-r", strconv.Itoa(dpi), "-o", outPath, pdfPath, strconv.Itoa(page)}
	if err := r.exec.Run(ctx, r.bin, args, io.Discard); err != nil {
		return fmt.Errorf("rasterizing page %d with %s: %w", page, r.bin, err)
	}
	return nil
}

// tesseract writes recognized text to stdout.
type tesseract struct{ program }

func (t *tesseract) Recognize(ctx context.Context, imagePath, lang string) (string, error) {
	args := []string{imagePath, "stdout"}
	if lang != "" {
		args = append(args, "-l", lang)
	}
	var out bytes.Buffer
	if err := t.exec.Run(ctx, t.bin, args, &out); err != nil {
		return "", fmt.Errorf("running %s on %s: %w", t.bin, imagePath, err)
	}
	return out.String(), nil
}

func newPdftotext(e executor) *pdftotext {
	return &pdftotext{program{bin: binPdftotext, probe: []string{"-v"}, exec: e}}
}

func newPdftoppm(e executor) *pdftoppm {
	return &pdftoppm{program{bin: binPdftoppm, probe: []string{"-v"}, exec: e}}
}

func newMutool(e executor) *mutool {
	return &mutool{program{bin: binMutool, probe: []string{"-v"}, exec: e}}
}

func newTesseract(e executor) *tesseract {
	return &tesseract{program{bin: binTesseract, probe: []string{"--version"}, exec: e}}
}

var defaultExec = &osExecutor{}

// DetectTextLayer returns the pdftotext reader if it is installed.
func DetectTextLayer() (TextLayer, error) {
	return detectTextLayer(defaultExec)
}

func detectTextLayer(e executor) (TextLayer, error) {
	if p := newPdftotext(e); p.available() {
		return p, nil
	}
	return nil, fmt.Errorf("no text layer reader available: %s not found or operational", binPdftotext)
}

// DetectRasterizer tries pdftoppm first, falls back to mutool. Returns an
// error if neither is available.
func DetectRasterizer() (Rasterizer, error) {
	return detectRasterizer(defaultExec)
}

func detectRasterizer(e executor) (Rasterizer, error) {
	if p := newPdftoppm(e); p.available() {
		return p, nil
	}
	if m := newMutool(e); m.available() {
		return m, nil
	}
	return nil, fmt.Errorf(
		"no rasterizer available: neither %s nor %s found or operational",
		binPdftoppm, binMutool,
	)
}

// DetectOCR returns the tesseract OCR engine if it is installed.
func DetectOCR() (OCR, error) {
	return detectOCR(defaultExec)
}

func detectOCR(e executor) (OCR, error) {
	if t := newTesseract(e); t.available() {
		return t, nil
	}
	return nil, fmt.Errorf("no OCR engine available: %s not found or operational", binTesseract)
}
