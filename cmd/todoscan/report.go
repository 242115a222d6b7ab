package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/todoscan/todoscan/internal/blame"
	"github.com/todoscan/todoscan/internal/git"
	"github.com/todoscan/todoscan/internal/history"
	"github.com/todoscan/todoscan/internal/output"
	"github.com/todoscan/todoscan/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a full technical-debt report",
	Long: `Assemble a markdown report from the scan: summary counts, the stats
breakdown, an age histogram from git blame, the recent snapshot history,
and the full marker table.

Each run appends a snapshot to the history store, so repeated reports
build up the trend table. Age data is omitted when git is unavailable.

Examples:
  todoscan report                     # Markdown to stdout
  todoscan report --out DEBT.md
  todoscan report --format json --out report.json`,
	Run: func(cmd *cobra.Command, args []string) {
		out, _ := cmd.Flags().GetString("out")
		staleDays, _ := cmd.Flags().GetString("stale-days")
		historyN, _ := cmd.Flags().GetInt("history")

		format := outputFormat()
		switch format {
		case output.FormatText, output.FormatMarkdown:
			// The report is a markdown document; plain text renders the same.
			format = output.FormatMarkdown
		case output.FormatJSON:
		default:
			fail(unsupportedFormat("report", format))
		}

		cfg := loadConfig()
		ctx := context.Background()
		scanRes := runScan(ctx, cfg)

		var blameRes *blame.Result
		if g, err := git.NewGit(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: age data omitted: %v\n", err)
		} else if blameRes, err = blame.Compute(ctx, g, flagRoot, scanRes.Records, blame.Options{
			ThresholdDays: staleThreshold(staleDays, cfg),
		}); err != nil {
			fmt.Fprintf(os.Stderr, "warning: age data omitted: %v\n", err)
			blameRes = nil
		}

		var snaps []history.Snapshot
		if store := openHistory(); store != nil {
			defer store.Close()
			recordSnapshot(ctx, store, scanRes.Records)
			var err error
			if snaps, err = store.RecentSnapshots(ctx, historyN); err != nil {
				fmt.Fprintf(os.Stderr, "warning: history omitted: %v\n", err)
			}
		}

		rep := report.Build(scanRes, blameRes, snaps, time.Now())

		var w io.Writer = os.Stdout
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				fail(fmt.Errorf("cannot write report: %w", err))
			}
			defer f.Close()
			w = f
		}

		switch format {
		case output.FormatMarkdown:
			output.MarkdownReport(w, rep)
		case output.FormatJSON:
			if err := output.JSON(w, rep); err != nil {
				fail(err)
			}
		}

		if out != "" {
			green := color.New(color.FgGreen).SprintFunc()
			fmt.Printf("%s Report written to %s\n", green("✓"), out)
		}
	},
}

func init() {
	reportCmd.Flags().String("out", "", "Write the report to this file instead of stdout")
	reportCmd.Flags().String("stale-days", "", "Age at which a marker counts as stale (e.g. 180d)")
	reportCmd.Flags().Int("history", 10, "Snapshots to include in the history section")
	rootCmd.AddCommand(reportCmd)
}
