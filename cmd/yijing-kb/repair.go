// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/yijing-kb/internal/store"
	"github.com/pdiddy/yijing-kb/pkg/types"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Correct hexagram glyphs from the canonical symbol table",
	Long: `Repair compares the symbol of every numbered hexagram record with the
canonical two-trigram glyph for its number and overwrites it when they
differ. Annotations and records without a symbol field are left alone.
Each correction is printed and logged with the old and new glyph.`,
	Args: cobra.NoArgs,
	RunE: runRepair,
}

func runRepair(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tbl, err := symbolTable(cfg)
	if err != nil {
		return err
	}

	out := os.Stdout
	dry := dryRun(cmd)
	s := store.New(cfg.Store)
	res, err := s.Commit(store.CommitOptions{DryRun: dry}, func(prior types.Collection) (types.Collection, error) {
		fixes := tbl.Repair(prior, logger)
		for _, f := range fixes {
			fmt.Fprintf(out, "corrected: %d %s %s -> %s\n", f.Number, f.Name, f.Old, f.New)
		}
		fmt.Fprintf(out, "\nrepair summary: %d correction(s)\n", len(fixes))
		return prior, nil
	})
	if err != nil {
		return err
	}
	reportCommit(out, s, res, dry)
	return nil
}

func init() {
	addDryRun(repairCmd)
	rootCmd.AddCommand(repairCmd)
}
