// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/yijing-kb/internal/extract"
	"github.com/pdiddy/yijing-kb/internal/parse"
	"github.com/pdiddy/yijing-kb/internal/pipeline"
	"github.com/pdiddy/yijing-kb/internal/reconcile"
	"github.com/pdiddy/yijing-kb/internal/store"
	"github.com/pdiddy/yijing-kb/internal/tables"
	"github.com/pdiddy/yijing-kb/internal/tools"
	"github.com/pdiddy/yijing-kb/pkg/types"
)

var importCmd = &cobra.Command{
	Use:   "import <source...>",
	Short: "Extract hexagrams from PDF or text sources into the collection",
	Long: `Import extracts page text from each source (direct text first, then the
configured image and OCR fallbacks), finds hexagram headings, derives
symbol, keywords, meaning and advice for each, and merges the result into
the collection. Hexagrams already in the collection are never overwritten.

Plain text sources (.txt) skip extraction. Sources listed in the page index
table are restricted to their declared hexagram range.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	unnumbered, _ := cmd.Flags().GetString("unnumbered")
	policy, err := reconcile.ParsePolicy(unnumbered)
	if err != nil {
		return err
	}

	p, cleanup, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	batch, err := importSources(cmd.Context(), p, args, os.Stdout)
	if err != nil {
		return err
	}
	return mergeBatch(cfg, batch, policy, dryRun(cmd), os.Stdout)
}

// newPipeline wires the extractor and parser from configuration. External
// tools are only looked up when a fallback that needs them is enabled.
func newPipeline(cfg types.Config) (*pipeline.Pipeline, func(), error) {
	idx, err := tables.PageIndex(cfg.Tables.PageIndex)
	if err != nil {
		return nil, nil, err
	}

	var (
		tl  tools.TextLayer
		r   tools.Rasterizer
		ocr tools.OCR
	)
	if tl, err = tools.DetectTextLayer(); err != nil {
		logger.Debug("using built-in text reader only", "error", err)
	}
	if cfg.Extract.EnableOCR || cfg.Extract.SaveImages {
		if r, err = tools.DetectRasterizer(); err != nil {
			logger.Warn("page image fallbacks disabled", "error", err)
		}
	}
	if cfg.Extract.EnableOCR {
		if ocr, err = tools.DetectOCR(); err != nil {
			logger.Warn("OCR fallback disabled", "error", err)
		}
	}

	scratch, err := os.MkdirTemp("", "yijing-kb-*")
	if err != nil {
		return nil, nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(scratch) }

	return &pipeline.Pipeline{
		Extractor: extract.New(cfg.Extract, r, ocr, scratch, logger).WithTextLayer(tl),
		Parse: parse.Options{
			EnforceRange: cfg.Parse.EnforceRange,
			ContextLines: cfg.Parse.ContextLines,
		},
		PageIndex: idx,
		Logger:    logger,
	}, cleanup, nil
}

// importSources runs the pipeline over every source. A source that cannot
// be read is reported and skipped; the run fails only when every source
// failed.
func importSources(ctx context.Context, p *pipeline.Pipeline, sources []string, w io.Writer) (types.Collection, error) {
	var (
		batch  types.Collection
		failed int
	)
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := p.Import(ctx, src, w)
		if err != nil {
			fmt.Fprintf(w, "failed:   %s: %v\n", src, err)
			logger.Error("import failed", "source", src, "error", err)
			failed++
			continue
		}
		batch = append(batch, res.Records...)
	}
	if failed == len(sources) {
		return nil, fmt.Errorf("%d source(s) failed", failed)
	}
	fmt.Fprintf(w, "\nimport summary: %d source(s), %d failed, %d candidate records\n",
		len(sources), failed, len(batch))
	return batch, nil
}

// mergeBatch reconciles batch into the collection in one commit.
func mergeBatch(cfg types.Config, batch types.Collection, policy reconcile.Policy, dry bool, w io.Writer) error {
	s := store.New(cfg.Store)
	res, err := s.Commit(store.CommitOptions{AllowMissing: true, DryRun: dry}, func(prior types.Collection) (types.Collection, error) {
		m := reconcile.Merge(prior, batch, policy)
		m.Report(w)
		return m.Collection, nil
	})
	if err != nil {
		return err
	}
	reportCommit(w, s, res, dry)
	return nil
}

func init() {
	importCmd.Flags().Int("max-pages", 0, "process only the first N pages of each PDF (0 = all)")
	importCmd.Flags().Int("dpi", 0, "rasterization resolution for image fallbacks")
	importCmd.Flags().Bool("ocr", false, "OCR pages that have no text layer")
	importCmd.Flags().String("ocr-lang", "", "OCR language (default jpn)")
	importCmd.Flags().Bool("save-images", false, "save images of pages that have no text layer")
	importCmd.Flags().String("images-dir", "", "directory for saved page images")
	importCmd.Flags().String("unnumbered", "last", "placement of records without a number: last, first or in-place")
	addDryRun(importCmd)

	viper.BindPFlag("extract.max_pages", importCmd.Flags().Lookup("max-pages"))
	viper.BindPFlag("extract.dpi", importCmd.Flags().Lookup("dpi"))
	viper.BindPFlag("extract.enable_ocr", importCmd.Flags().Lookup("ocr"))
	viper.BindPFlag("extract.ocr_language", importCmd.Flags().Lookup("ocr-lang"))
	viper.BindPFlag("extract.save_images", importCmd.Flags().Lookup("save-images"))
	viper.BindPFlag("extract.images_dir", importCmd.Flags().Lookup("images-dir"))

	rootCmd.AddCommand(importCmd)
}
