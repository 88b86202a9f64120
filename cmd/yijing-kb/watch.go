// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/yijing-kb/internal/reconcile"
	"github.com/pdiddy/yijing-kb/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Import sources as they appear in a directory",
	Long: `Watch monitors a directory and imports every PDF (and, with --ext, other
source types) once it has stopped changing. Files are imported one at a
time. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	unnumbered, _ := cmd.Flags().GetString("unnumbered")
	policy, err := reconcile.ParsePolicy(unnumbered)
	if err != nil {
		return err
	}
	exts, _ := cmd.Flags().GetStringSlice("ext")
	settle, _ := cmd.Flags().GetDuration("settle")
	dry := dryRun(cmd)

	p, cleanup, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	w, err := watch.New(exts, settle, logger)
	if err != nil {
		return err
	}
	defer w.Close()

	out := os.Stdout
	fmt.Fprintf(out, "watching %s (Ctrl-C to stop)\n", args[0])
	return w.Run(cmd.Context(), args[0], func(ctx context.Context, path string) error {
		fmt.Fprintf(out, "\n== %s\n", path)
		batch, err := importSources(ctx, p, []string{path}, out)
		if err != nil {
			return err
		}
		return mergeBatch(cfg, batch, policy, dry, out)
	})
}

func init() {
	watchCmd.Flags().StringSlice("ext", []string{".pdf"}, "file extensions to import")
	watchCmd.Flags().Duration("settle", watch.DefaultSettle, "quiet period before a changed file is imported")
	watchCmd.Flags().String("unnumbered", "last", "placement of records without a number: last, first or in-place")
	addDryRun(watchCmd)

	rootCmd.AddCommand(watchCmd)
}
