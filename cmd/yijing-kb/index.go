// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/yijing-kb/internal/index"
	"github.com/pdiddy/yijing-kb/internal/store"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Maintain and query the SQLite search index",
	Long: `Index mirrors the collection into a local SQLite database with FTS5
full-text search. The mirror is derived data and never written back to
the collection.`,
}

// --- build subcommand ---

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the search index from the collection",
	Long: `Build loads the collection and rebuilds the search index. An unchanged
collection is skipped.`,
	Args: cobra.NoArgs,
	RunE: runIndexBuild,
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := store.New(cfg.Store).Load()
	if err != nil {
		return err
	}

	ix, err := index.NewStore(cfg.Index)
	if err != nil {
		return err
	}
	defer ix.Close()

	_, err = ix.Sync(cmd.Context(), c, os.Stdout)
	return err
}

// --- search subcommand ---

var indexSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the index with full-text search and filters",
	Long: `Search queries the index by text, record kind, category, keyword or
hexagram number. Text queries of three or more characters use the FTS5
index ranked by relevance; shorter ones match substrings.

With --export, matching records are written to export.yaml or export.json
next to the database instead of being printed.`,
	RunE: runIndexSearch,
}

func runIndexSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ix, err := index.NewStore(cfg.Index)
	if err != nil {
		return err
	}
	defer ix.Close()

	opts := queryOptsFromFlags(cmd, args)
	ctx := cmd.Context()

	format, _ := cmd.Flags().GetString("export")
	switch format {
	case "":
	case "yaml":
		path, err := ix.ExportYAML(ctx, opts)
		if err != nil {
			return err
		}
		fmt.Println("Exported to", path)
		return nil
	case "json":
		path, err := ix.ExportJSON(ctx, opts)
		if err != nil {
			return err
		}
		fmt.Println("Exported to", path)
		return nil
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --kind, --category, --keyword or --number")
	}
	results, err := ix.Retrieve(ctx, opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatSearchOutput(results, jsonOutput)
}

func formatSearchOutput(results []index.Result, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-10s  %-30s  %s\n", "Rank", "Kind", "Record", "Text")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))
	for i, r := range results {
		fmt.Fprintf(os.Stdout, "%-4d  %-10s  %-30s  %s\n", i+1, r.Kind, clip(r.Label(), 30), clip(r.Body, 40))
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// clip shortens s to n runes.
func clip(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) index.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}
	kind, _ := cmd.Flags().GetString("kind")
	category, _ := cmd.Flags().GetString("category")
	keywords, _ := cmd.Flags().GetStringSlice("keyword")
	number, _ := cmd.Flags().GetInt("number")
	limit, _ := cmd.Flags().GetInt("limit")

	return index.QueryOptions{
		Query:      queryText,
		Kind:       kind,
		Category:   category,
		Keywords:   keywords,
		Number:     number,
		MaxResults: limit,
	}
}

func init() {
	indexCmd.PersistentFlags().String("db", "", "search database path")
	indexCmd.PersistentFlags().Int("max-results", 0, "default maximum number of results")
	viper.BindPFlag("index.db_path", indexCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("index.max_results", indexCmd.PersistentFlags().Lookup("max-results"))

	indexSearchCmd.Flags().String("query", "", "full-text search query")
	indexSearchCmd.Flags().String("kind", "", "filter by record kind: hexagram or annotation")
	indexSearchCmd.Flags().String("category", "", "filter by annotation category")
	indexSearchCmd.Flags().StringSlice("keyword", nil, "filter by keyword (repeatable, all must match)")
	indexSearchCmd.Flags().Int("number", 0, "filter by hexagram number")
	indexSearchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	indexSearchCmd.Flags().Bool("json", false, "output results as JSON")
	indexSearchCmd.Flags().String("export", "", "write matches to the index directory: yaml or json")

	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexSearchCmd)

	rootCmd.AddCommand(indexCmd)
}
