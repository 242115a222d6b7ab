package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/todoscan/todoscan/internal/check"
	"github.com/todoscan/todoscan/internal/diffscan"
	"github.com/todoscan/todoscan/internal/git"
	"github.com/todoscan/todoscan/internal/history"
	"github.com/todoscan/todoscan/internal/marker"
	"github.com/todoscan/todoscan/internal/output"
	"github.com/todoscan/todoscan/internal/stats"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Gate the tree against marker budgets",
	Long: `Evaluate CI gate rules over the scan and exit 1 when any fail.

Rules come from .todoscan.yaml's check section; flags override. max caps
the total marker count, block-tags forbids tags outright, expired fails
on passed deadlines, and max-new caps markers added since a git ref
(requires --since).

Examples:
  todoscan check --max 100                   # Budget the whole tree
  todoscan check --block-tags FIXME,BUG      # No FIXMEs or BUGs at all
  todoscan check --since main --max-new 0    # Nothing new vs main
  todoscan check --expired                   # No blown deadlines`,
	Run: func(cmd *cobra.Command, args []string) {
		since, _ := cmd.Flags().GetString("since")
		blockTags, _ := cmd.Flags().GetString("block-tags")
		expired, _ := cmd.Flags().GetBool("expired")

		var o check.Overrides
		if cmd.Flags().Changed("max") {
			v, _ := cmd.Flags().GetInt("max")
			o.Max = &v
		}
		if cmd.Flags().Changed("max-new") {
			v, _ := cmd.Flags().GetInt("max-new")
			o.MaxNew = &v
		}
		o.BlockTags = splitCSV(blockTags)
		o.Expired = expired

		format := outputFormat()
		cfg := loadConfig()
		ctx := context.Background()
		scanRes := runScan(ctx, cfg)

		store := openHistory()
		if store != nil {
			defer store.Close()
		}

		var diff *diffscan.Result
		if since != "" {
			g, err := git.NewGit(ctx)
			if err != nil {
				fail(err)
			}
			differ := &diffscan.Differ{Git: g}
			if store != nil {
				differ.Store = store
			}
			diff, err = differ.DiffAgainstRef(ctx, flagRoot, since, cfg, scanRes.Records)
			if err != nil {
				fail(err)
			}
			printWarnings(diff.Warnings)
		}

		res := check.Run(scanRes.Records, diff, cfg, o, marker.Today())
		recordSnapshot(ctx, store, scanRes.Records)

		switch format {
		case output.FormatText:
			output.TextCheck(os.Stdout, res)
		case output.FormatJSON:
			if err := output.JSON(os.Stdout, res); err != nil {
				fail(err)
			}
		case output.FormatGitHub:
			output.GitHubCheck(os.Stdout, res)
		case output.FormatSARIF:
			if err := output.SARIFCheck(os.Stdout, res); err != nil {
				fail(err)
			}
		case output.FormatMarkdown:
			output.MarkdownCheck(os.Stdout, res)
		}

		if !res.Passed {
			os.Exit(1)
		}
	},
}

func init() {
	checkCmd.Flags().Int("max", 0, "Fail when the total marker count exceeds N")
	checkCmd.Flags().Int("max-new", 0, "Fail when markers added since --since exceed N")
	checkCmd.Flags().String("block-tags", "", "Fail when any of these tags appear (comma-separated)")
	checkCmd.Flags().String("since", "", "Base git ref for the max-new rule")
	checkCmd.Flags().Bool("expired", false, "Fail on expired deadlines")
	rootCmd.AddCommand(checkCmd)
}

// recordSnapshot appends the scan's headline counts to the history trend
// table. Best-effort: losing a snapshot only costs report trend data.
func recordSnapshot(ctx context.Context, store *history.Store, records []marker.Record) {
	if store == nil {
		return
	}
	st := stats.Compute(records, nil)
	snap := history.Snapshot{
		Total:  st.TotalItems,
		Files:  st.TotalFiles,
		Urgent: st.Priorities.Urgent,
		High:   st.Priorities.High,
		Normal: st.Priorities.Normal,
	}
	if err := store.AddSnapshot(ctx, snap); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to record history snapshot: %v\n", err)
	}
}
