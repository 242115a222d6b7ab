package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/todoscan/todoscan/internal/diffscan"
	"github.com/todoscan/todoscan/internal/output"
	"github.com/todoscan/todoscan/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize markers by tag, priority, author, and file",
	Long: `Aggregate the scan into counts: totals, per-tag, per-priority,
per-author, and the five files carrying the most markers. With --since,
a trend section shows what changed relative to a git ref.

Examples:
  todoscan stats
  todoscan stats --since main
  todoscan stats --format json`,
	Run: func(cmd *cobra.Command, args []string) {
		since, _ := cmd.Flags().GetString("since")

		format := outputFormat()
		switch format {
		case output.FormatText, output.FormatJSON, output.FormatMarkdown:
		default:
			fail(unsupportedFormat("stats", format))
		}

		cfg := loadConfig()
		ctx := context.Background()
		scanRes := runScan(ctx, cfg)

		var diff *diffscan.Result
		if since != "" {
			differ, closeStore := newDiffer(ctx)
			defer closeStore()
			var err error
			diff, err = differ.DiffAgainstRef(ctx, flagRoot, since, cfg, scanRes.Records)
			if err != nil {
				fail(err)
			}
			printWarnings(diff.Warnings)
		}

		res := stats.Compute(scanRes.Records, diff)

		switch format {
		case output.FormatText:
			output.TextStats(os.Stdout, res)
		case output.FormatJSON:
			if err := output.JSON(os.Stdout, res); err != nil {
				fail(err)
			}
		case output.FormatMarkdown:
			output.MarkdownStats(os.Stdout, res)
		}
	},
}

func init() {
	statsCmd.Flags().String("since", "", "Git ref to compute the trend section against")
	rootCmd.AddCommand(statsCmd)
}
