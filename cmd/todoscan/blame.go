package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/todoscan/todoscan/internal/blame"
	"github.com/todoscan/todoscan/internal/config"
	"github.com/todoscan/todoscan/internal/git"
	"github.com/todoscan/todoscan/internal/output"
)

var blameCmd = &cobra.Command{
	Use:   "blame",
	Short: "Attribute markers to git authors and ages",
	Long: `Run git blame over every marker line and report who introduced each
marker and how long ago. Markers older than the stale threshold are
flagged; uncommitted lines show as author "uncommitted" with age 0.

The threshold resolves from --stale-days, then blame.stale_threshold in
.todoscan.yaml, then 365 days.

Examples:
  todoscan blame                      # Everything, grouped by file
  todoscan blame --sort age           # Oldest first
  todoscan blame --min-age 180d       # Half a year or older
  todoscan blame --author alice --tag FIXME`,
	Run: func(cmd *cobra.Command, args []string) {
		sortKey, _ := cmd.Flags().GetString("sort")
		author, _ := cmd.Flags().GetString("author")
		minAge, _ := cmd.Flags().GetString("min-age")
		staleDays, _ := cmd.Flags().GetString("stale-days")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		pathGlob, _ := cmd.Flags().GetString("path")

		format := outputFormat()
		cfg := loadConfig()
		ctx := context.Background()
		scanRes := runScan(ctx, cfg)

		g, err := git.NewGit(ctx)
		if err != nil {
			fail(err)
		}

		res, err := blame.Compute(ctx, g, flagRoot, scanRes.Records, blame.Options{
			ThresholdDays: staleThreshold(staleDays, cfg),
		})
		if err != nil {
			fail(err)
		}

		filters := blame.Filters{Tags: tags, Author: author, PathGlob: pathGlob}
		if minAge != "" {
			days, err := blame.ParseDurationDays(minAge)
			if err != nil {
				fail(err)
			}
			filters.MinAgeDays = days
		}
		if err := res.Apply(filters); err != nil {
			fail(err)
		}
		if err := res.Sort(sortKey); err != nil {
			fail(err)
		}

		switch format {
		case output.FormatText:
			output.TextBlame(os.Stdout, res)
		case output.FormatJSON:
			if err := output.JSON(os.Stdout, res); err != nil {
				fail(err)
			}
		case output.FormatGitHub:
			output.GitHubBlame(os.Stdout, res)
		case output.FormatSARIF:
			if err := output.SARIFBlame(os.Stdout, res); err != nil {
				fail(err)
			}
		case output.FormatMarkdown:
			output.MarkdownBlame(os.Stdout, res)
		}
	},
}

func init() {
	blameCmd.Flags().String("sort", "file", "Sort order: file, age, author, or tag")
	blameCmd.Flags().String("author", "", "Only markers blamed on authors containing this substring")
	blameCmd.Flags().String("min-age", "", "Only markers at least this old (e.g. 90d)")
	blameCmd.Flags().String("stale-days", "", "Age at which a marker counts as stale (e.g. 180d)")
	blameCmd.Flags().StringSlice("tag", nil, "Only markers with these tags (repeatable)")
	blameCmd.Flags().String("path", "", "Only files matching this glob")
	rootCmd.AddCommand(blameCmd)
}

// staleThreshold resolves the stale-age chain: flag, then config, then
// zero, which lets the blame package apply its builtin default.
func staleThreshold(flagVal string, cfg config.Config) int {
	val := flagVal
	fromConfig := false
	if val == "" {
		val = cfg.Blame.StaleThreshold
		fromConfig = true
	}
	if val == "" {
		return 0
	}
	days, err := blame.ParseDurationDays(val)
	if err != nil {
		if fromConfig {
			err = fmt.Errorf("invalid blame.stale_threshold in config: %w", err)
		}
		fail(err)
	}
	return days
}
