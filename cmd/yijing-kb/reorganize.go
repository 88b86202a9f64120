// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/yijing-kb/internal/store"
	"github.com/pdiddy/yijing-kb/internal/tables"
	"github.com/pdiddy/yijing-kb/internal/timeline"
	"github.com/pdiddy/yijing-kb/pkg/types"
)

var reorganizeCmd = &cobra.Command{
	Use:   "reorganize",
	Short: "Order the collection along the study timeline",
	Long: `Reorganize rewrites the collection as all hexagram records in number
order followed by annotations grouped by category, in the order the
taxonomy lists its stages and categories. Categories the taxonomy does
not know are appended after the last stage in first-seen order and
reported as unclassified.`,
	Args: cobra.NoArgs,
	RunE: runReorganize,
}

func runReorganize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tax, err := tables.Taxonomy(cfg.Tables.Taxonomy)
	if err != nil {
		return err
	}
	if err := timeline.Validate(tax); err != nil {
		return err
	}

	out := os.Stdout
	dry := dryRun(cmd)
	s := store.New(cfg.Store)
	res, err := s.Commit(store.CommitOptions{DryRun: dry}, func(prior types.Collection) (types.Collection, error) {
		r, err := timeline.Reorganize(prior, tax, logger)
		if err != nil {
			return nil, err
		}
		r.Report(out)
		return r.Collection, nil
	})
	if err != nil {
		return err
	}
	reportCommit(out, s, res, dry)
	return nil
}

func init() {
	addDryRun(reorganizeCmd)
	rootCmd.AddCommand(reorganizeCmd)
}
