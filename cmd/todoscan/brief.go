package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/todoscan/todoscan/internal/diffscan"
	"github.com/todoscan/todoscan/internal/output"
	"github.com/todoscan/todoscan/internal/stats"
)

var briefCmd = &cobra.Command{
	Use:   "brief",
	Short: "One-paragraph status summary",
	Long: `Print a compact summary of the tree: headline counts, the single most
pressing marker (highest priority, most severe tag), and with --since a
one-line trend against a git ref.

Examples:
  todoscan brief
  todoscan brief --since main`,
	Run: func(cmd *cobra.Command, args []string) {
		since, _ := cmd.Flags().GetString("since")

		format := outputFormat()
		switch format {
		case output.FormatText, output.FormatJSON:
		default:
			fail(unsupportedFormat("brief", format))
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

		b := stats.ComputeBrief(scanRes.Records, diff)

		switch format {
		case output.FormatText:
			output.TextBrief(os.Stdout, b)
		case output.FormatJSON:
			if err := output.JSON(os.Stdout, b); err != nil {
				fail(err)
			}
		}
	},
}

func init() {
	briefCmd.Flags().String("since", "", "Git ref to compute the trend line against")
	rootCmd.AddCommand(briefCmd)
}
