// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/yijing-kb/internal/store"
	"github.com/pdiddy/yijing-kb/internal/symbols"
	"github.com/pdiddy/yijing-kb/internal/tables"
	"github.com/pdiddy/yijing-kb/pkg/types"
)

// addDryRun registers --dry-run on a command that writes the collection.
func addDryRun(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "compute and report the result without writing anything")
}

func dryRun(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("dry-run")
	return v
}

func symbolTable(cfg types.Config) (*symbols.Table, error) {
	st, err := tables.Symbols(cfg.Tables.Symbols)
	if err != nil {
		return nil, err
	}
	return symbols.NewTable(st)
}

// reportCommit prints the closing line of a write.
func reportCommit(w io.Writer, s *store.Store, res store.CommitResult, dry bool) {
	if dry {
		fmt.Fprintf(w, "dry run: %s not written (%d -> %d records, %d bytes)\n",
			s.Path(), res.Before, res.After, res.Bytes)
		return
	}
	if res.BackupWritten {
		fmt.Fprintf(w, "backup: %s\n", s.BackupPath())
	}
	fmt.Fprintf(w, "wrote %s: %d -> %d records (%d bytes)\n", s.Path(), res.Before, res.After, res.Bytes)
}
