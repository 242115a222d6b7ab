package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/todoscan/todoscan/internal/diffscan"
	"github.com/todoscan/todoscan/internal/git"
	"github.com/todoscan/todoscan/internal/history"
	"github.com/todoscan/todoscan/internal/output"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare markers against a git ref",
	Long: `Scan the working tree and compare against the tree at a git ref,
reporting markers that were added, removed, or modified since.

The base scan is cached in the history store keyed by commit SHA, so
diffing against the same ref twice only scans once. Only files that
changed between the ref and the working tree are compared.

Examples:
  todoscan diff --since main        # What changed relative to main
  todoscan diff --since HEAD~5      # ...the last five commits
  todoscan diff --since v1.2.0 --tag FIXME`,
	Run: func(cmd *cobra.Command, args []string) {
		since, _ := cmd.Flags().GetString("since")
		tags, _ := cmd.Flags().GetStringSlice("tag")

		if since == "" {
			fail(errors.New("diff requires --since <ref>"))
		}

		format := outputFormat()
		cfg := loadConfig()
		ctx := context.Background()
		current := runScan(ctx, cfg)

		differ, closeStore := newDiffer(ctx)
		defer closeStore()

		res, err := differ.DiffAgainstRef(ctx, flagRoot, since, cfg, current.Records)
		if err != nil {
			fail(err)
		}
		printWarnings(res.Warnings)
		res.FilterTags(tags)

		switch format {
		case output.FormatText:
			output.TextDiff(os.Stdout, res)
		case output.FormatJSON:
			if err := output.JSON(os.Stdout, res); err != nil {
				fail(err)
			}
		case output.FormatGitHub:
			output.GitHubDiff(os.Stdout, res)
		case output.FormatSARIF:
			if err := output.SARIFDiff(os.Stdout, res); err != nil {
				fail(err)
			}
		case output.FormatMarkdown:
			output.MarkdownDiff(os.Stdout, res)
		}
	},
}

func init() {
	diffCmd.Flags().String("since", "", "Base git ref to compare against (required)")
	diffCmd.Flags().StringSlice("tag", nil, "Only report entries with these tags (repeatable)")
	rootCmd.AddCommand(diffCmd)
}

// newDiffer builds a ref differ backed by git and, when the history store
// opens, by cached base scans. A store failure degrades to materializing
// every base scan instead of failing the command.
func newDiffer(ctx context.Context) (*diffscan.Differ, func()) {
	g, err := git.NewGit(ctx)
	if err != nil {
		fail(err)
	}
	d := &diffscan.Differ{Git: g}

	store := openHistory()
	if store == nil {
		return d, func() {}
	}
	d.Store = store
	return d, func() { store.Close() }
}

// openHistory opens the per-root history database, warning instead of
// failing: everything that uses it can run without it.
func openHistory() *history.Store {
	path, err := history.DefaultPath(flagRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: history store unavailable: %v\n", err)
		return nil
	}
	store, err := history.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: history store unavailable: %v\n", err)
		return nil
	}
	return store
}
