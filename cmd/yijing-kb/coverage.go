// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/yijing-kb/internal/coverage"
	"github.com/pdiddy/yijing-kb/internal/store"
)

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Report which hexagrams the collection covers",
	Long: `Coverage counts hexagram and annotation records, lists missing and
duplicate hexagram numbers with progress per range, and names records
that still carry placeholder text.

With --template, skeleton records for every missing hexagram are written
to a separate JSON document; the collection itself is never modified.`,
	Args: cobra.NoArgs,
	RunE: runCoverage,
}

func runCoverage(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s := store.New(cfg.Store)
	c, err := s.Load()
	if err != nil {
		return err
	}

	rep := coverage.Analyze(c)
	rep.Print(os.Stdout)

	path, _ := cmd.Flags().GetString("template")
	if path == "" {
		return nil
	}
	if len(rep.Missing) == 0 {
		fmt.Println("template: nothing missing")
		return nil
	}
	tbl, err := symbolTable(cfg)
	if err != nil {
		return err
	}
	tmpl := coverage.Template(rep.Missing, tbl)
	if dryRun(cmd) {
		fmt.Printf("dry run: template %s not written (%d records)\n", path, len(tmpl))
		return nil
	}
	n, err := s.WriteDocument(path, tmpl)
	if err != nil {
		return err
	}
	fmt.Printf("template: wrote %s (%d records, %d bytes)\n", path, len(tmpl), n)
	return nil
}

func init() {
	coverageCmd.Flags().String("template", "", "write skeleton records for missing hexagrams to this file")
	addDryRun(coverageCmd)
	rootCmd.AddCommand(coverageCmd)
}
