package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/todoscan/todoscan/internal/config"
	"github.com/todoscan/todoscan/internal/output"
	"github.com/todoscan/todoscan/internal/scan"
)

// Global flags, shared by every command.
var (
	flagRoot    string
	flagConfig  string
	flagFormat  string
	flagNoCache bool
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "todoscan",
	Short: "Track TODO/FIXME comments across a source tree",
	Long: `todoscan finds marker comments (TODO, FIXME, HACK, XXX, BUG, NOTE) in a
source tree and turns them into structured records: tag, message, author,
issue reference, priority, and deadline.

Scans are incremental: unchanged files are served from a per-project cache
so repeated runs only re-read what changed. On top of the scan sit filters,
diffs against git refs, CI gates, style lints, age attribution via git
blame, and live watching.

Examples:
  todoscan list                        # List every marker in the tree
  todoscan list --tag FIXME --sort tag # Only FIXMEs, most severe first
  todoscan diff --since main           # What changed relative to main
  todoscan check --max 100             # Gate: fail when over budget
  todoscan watch                       # Re-scan on file changes`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "Directory to scan")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: search upward for .todoscan.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text, json, github-actions, sarif, or markdown")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the incremental scan cache")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging to stderr")

	// completions.go provides its own command in place of cobra's builtin.
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Execute runs the command tree. Errors that escape a Run function have
// already been reported; anything surfacing here is a usage problem.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fail(err)
	}
}

// fail reports an operational error and exits 2. Gate and lint violations
// are business outcomes and exit 1 from their own commands instead.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(2)
}

// loadConfig resolves the effective configuration: an explicit --config
// path must exist, otherwise the search walks upward from the root.
func loadConfig() config.Config {
	var cfg config.Config
	var err error
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.Load(flagRoot)
	}
	if err != nil {
		fail(err)
	}
	return cfg
}

// outputFormat parses the global --format flag, exiting on unknown names.
func outputFormat() output.Format {
	f, err := output.ParseFormat(flagFormat)
	if err != nil {
		fail(err)
	}
	return f
}

// runScan performs the full tree scan every read command starts from.
// Per-file warnings go to stderr so machine-readable stdout stays clean.
func runScan(ctx context.Context, cfg config.Config) *scan.Result {
	res, err := scan.Scan(ctx, scan.Options{
		Root:    flagRoot,
		Config:  cfg,
		NoCache: flagNoCache,
	})
	if err != nil {
		fail(err)
	}
	slog.Debug("scan complete",
		"files", res.FilesScanned,
		"records", len(res.Records),
		"cache_hits", res.CacheHits,
		"cache_misses", res.CacheMisses)
	printWarnings(res.Warnings)
	return res
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}

func unsupportedFormat(command string, f output.Format) error {
	return fmt.Errorf("format %q is not supported by %s", f, command)
}
