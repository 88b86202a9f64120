// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/yijing-kb/internal/annotation"
	"github.com/pdiddy/yijing-kb/internal/extract"
	"github.com/pdiddy/yijing-kb/internal/reconcile"
	"github.com/pdiddy/yijing-kb/internal/store"
	"github.com/pdiddy/yijing-kb/pkg/types"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <file...>",
	Short: "Add book annotations to the collection",
	Long: `Annotate adds book annotation records. YAML and JSON files hold
hand-authored entries (title, content, optional keywords and category).
Text and PDF files are split into sections and stored as one annotation
per section.

Annotation ids continue after the highest existing book_knowledge id.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnnotate,
}

// annotationInput is one file read before the commit starts.
type annotationInput struct {
	path    string
	entries []annotation.Entry
	text    string
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tbl, err := symbolTable(cfg)
	if err != nil {
		return err
	}

	category, _ := cmd.Flags().GetString("category")
	source, _ := cmd.Flags().GetString("source")
	prefix, _ := cmd.Flags().GetString("title-prefix")
	opts := annotation.Options{
		Source:      source,
		Category:    category,
		TitlePrefix: prefix,
		Names:       tbl.Names(),
	}

	inputs := make([]annotationInput, 0, len(args))
	for _, path := range args {
		in, err := readAnnotationInput(cmd, cfg, path)
		if err != nil {
			return err
		}
		inputs = append(inputs, in)
	}

	out := os.Stdout
	dry := dryRun(cmd)
	s := store.New(cfg.Store)
	res, err := s.Commit(store.CommitOptions{AllowMissing: true, DryRun: dry}, func(prior types.Collection) (types.Collection, error) {
		seen := prior.Clone()
		var batch types.Collection
		for _, in := range inputs {
			var recs types.Collection
			if in.entries != nil {
				recs = annotation.Stamp(in.entries, seen, opts)
			} else {
				recs = annotation.FromText(in.text, seen, opts)
			}
			fmt.Fprintf(out, "%s: %d annotation(s)\n", in.path, len(recs))
			seen = append(seen, recs...)
			batch = append(batch, recs...)
		}
		m := reconcile.Merge(prior, batch, reconcile.UnnumberedLast)
		m.Report(out)
		return m.Collection, nil
	})
	if err != nil {
		return err
	}
	reportCommit(out, s, res, dry)
	return nil
}

func readAnnotationInput(cmd *cobra.Command, cfg types.Config, path string) (annotationInput, error) {
	in := annotationInput{path: path}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		entries, err := annotation.LoadAuthored(path)
		if err != nil {
			return in, err
		}
		if entries == nil {
			entries = []annotation.Entry{}
		}
		in.entries = entries
	case ".pdf":
		p, cleanup, err := newPipeline(cfg)
		if err != nil {
			return in, err
		}
		defer cleanup()
		rep, err := p.Extractor.Run(cmd.Context(), path, os.Stdout)
		if err != nil {
			return in, fmt.Errorf("extracting %s: %w", path, err)
		}
		rep.Summary(os.Stdout)
		in.text = rep.Text()
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return in, fmt.Errorf("%w: %w", extract.ErrSourceUnavailable, err)
		}
		in.text = string(data)
	}
	return in, nil
}

func init() {
	annotateCmd.Flags().String("category", "", "category for annotations without one (default 易学知識)")
	annotateCmd.Flags().String("source", "", "source label for annotations without one")
	annotateCmd.Flags().String("title-prefix", "", "title prefix for sections split from text")
	addDryRun(annotateCmd)

	rootCmd.AddCommand(annotateCmd)
}
