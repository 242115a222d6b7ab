package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/todoscan/todoscan/internal/marker"
	"github.com/todoscan/todoscan/internal/output"
	"github.com/todoscan/todoscan/internal/snippet"
)

var contextCmd = &cobra.Command{
	Use:   "context <file:line>",
	Short: "Show the source around one marker",
	Long: `Print the source lines surrounding a marker location, plus any other
markers from the same file that fall inside the window.

The location is root-relative, as printed by list. The line does not have
to carry a marker; any location works.

Examples:
  todoscan context src/parser.go:142
  todoscan context src/parser.go:142 --lines 10`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		lines, _ := cmd.Flags().GetInt("lines")

		format := outputFormat()
		switch format {
		case output.FormatText, output.FormatJSON:
		default:
			fail(unsupportedFormat("context", format))
		}

		file, line, err := snippet.ParseLocation(args[0])
		if err != nil {
			fail(err)
		}

		cfg := loadConfig()
		scanRes := runScan(context.Background(), cfg)

		var inFile []marker.Record
		for _, r := range scanRes.Records {
			if r.File == file {
				inFile = append(inFile, r)
			}
		}

		rich, err := snippet.BuildRich(flagRoot, file, line, lines, inFile)
		if err != nil {
			fail(err)
		}

		switch format {
		case output.FormatText:
			output.TextContext(os.Stdout, rich)
		case output.FormatJSON:
			if err := output.JSON(os.Stdout, rich); err != nil {
				fail(err)
			}
		}
	},
}

func init() {
	contextCmd.Flags().Int("lines", 5, "Source lines to show on each side")
	rootCmd.AddCommand(contextCmd)
}
