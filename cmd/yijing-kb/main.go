// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the yijing-kb CLI.
// Each stage of the knowledge base workflow is a subcommand: import,
// annotate, repair, reorganize, coverage, index and watch.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/pdiddy/yijing-kb/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built from --log-level and --log-format before any subcommand
// runs. Every record carries the run id.
var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// rootCmd is the base command for the yijing-kb CLI.
var rootCmd = &cobra.Command{
	Use:   "yijing-kb",
	Short: "Build and maintain a Yijing hexagram knowledge base",
	Long: `yijing-kb turns scanned and digital books about the Yijing into a single
JSON collection of hexagram records and book annotations.

import extracts hexagrams from PDF or text sources and merges them into the
collection; annotate adds book annotations; repair fixes hexagram glyphs from
the canonical symbol table; reorganize orders annotations along the study
timeline; coverage reports which of the 64 hexagrams are still missing.
Every write keeps a backup of the previous collection.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseLevel(viper.GetString("log_level"))
		if err != nil {
			return err
		}
		handler, err := newHandler(viper.GetString("log_format"), level)
		if err != nil {
			return err
		}
		logger = slog.New(handler).With("run", uuid.NewString())
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./yijing-kb.yaml or ~/.config/yijing-kb/yijing-kb.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: auto, text or json (auto uses text on a terminal)")
	rootCmd.PersistentFlags().String("store", "", "collection JSON document")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("store"))

	setDefaults(types.DefaultConfig())
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("yijing-kb")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "yijing-kb"))
		}
	}

	viper.SetEnvPrefix("YIJING_KB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so that env variables and
// Unmarshal see them even without a config file.
func setDefaults(d types.Config) {
	viper.SetDefault("store.path", d.Store.Path)
	viper.SetDefault("store.backup_path", d.Store.BackupPath)
	viper.SetDefault("store.indent", d.Store.Indent)

	viper.SetDefault("extract.max_pages", d.Extract.MaxPages)
	viper.SetDefault("extract.dpi", d.Extract.DPI)
	viper.SetDefault("extract.ocr_language", d.Extract.OCRLanguage)
	viper.SetDefault("extract.enable_ocr", d.Extract.EnableOCR)
	viper.SetDefault("extract.save_images", d.Extract.SaveImages)
	viper.SetDefault("extract.images_dir", d.Extract.ImagesDir)

	viper.SetDefault("parse.context_lines", d.Parse.ContextLines)
	viper.SetDefault("parse.enforce_range", d.Parse.EnforceRange)

	viper.SetDefault("tables.symbols", d.Tables.Symbols)
	viper.SetDefault("tables.taxonomy", d.Tables.Taxonomy)
	viper.SetDefault("tables.page_index", d.Tables.PageIndex)

	viper.SetDefault("index.db_path", d.Index.DBPath)
	viper.SetDefault("index.max_results", d.Index.MaxResults)

	viper.SetDefault("log_level", d.LogLevel)
	viper.SetDefault("log_format", d.LogFormat)
}

// loadConfig resolves the effective configuration from defaults, config
// file, environment and flags.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// newHandler writes logs to stderr. auto picks text for a terminal and JSON
// otherwise.
func newHandler(format string, level slog.Level) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "", "auto":
		if term.IsTerminal(int(os.Stderr.Fd())) {
			return slog.NewTextHandler(os.Stderr, opts), nil
		}
		return slog.NewJSONHandler(os.Stderr, opts), nil
	case "text":
		return slog.NewTextHandler(os.Stderr, opts), nil
	case "json":
		return slog.NewJSONHandler(os.Stderr, opts), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: use auto, text or json", format)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
