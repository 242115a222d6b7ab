package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/todoscan/todoscan/internal/output"
	"github.com/todoscan/todoscan/internal/scan"
	"github.com/todoscan/todoscan/internal/snippet"
)

var searchCmd = &cobra.Command{
	Use:     "search <query>",
	Aliases: []string{"s"},
	Short:   "Search marker messages and issue refs",
	Long: `Find markers whose message or issue reference contains the query.
Matching is a case-insensitive substring by default; --exact makes it
case-sensitive. The list filters and grouping apply to the matches.

Examples:
  todoscan search "retry"
  todoscan search "#142"                 # Everything tied to an issue
  todoscan search TLS --exact --tag TODO
  todoscan search timeout -C 2           # With two context lines`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		query := args[0]
		exact, _ := cmd.Flags().GetBool("exact")
		sortKey, _ := cmd.Flags().GetString("sort")
		groupBy, _ := cmd.Flags().GetString("group-by")
		contextN, _ := cmd.Flags().GetInt("context")

		switch groupBy {
		case "file", "tag", "priority", "author", "dir":
		default:
			fail(fmt.Errorf("unknown group-by key %q (want file, tag, priority, author, or dir)", groupBy))
		}

		format := outputFormat()
		cfg := loadConfig()
		scanRes := runScan(context.Background(), cfg)

		filters, err := filtersFromFlags(cmd)
		if err != nil {
			fail(err)
		}
		records, err := scan.Apply(scanRes.Records, filters)
		if err != nil {
			fail(err)
		}
		records, _ = visibleRecords(records, false)

		res := scan.Search(records, query, exact)
		if err := scan.SortRecords(res.Records, sortKey); err != nil {
			fail(err)
		}

		var windows map[string]snippet.Window
		if contextN > 0 {
			windows = snippet.CollectMap(flagRoot, res.Records, contextN)
		}

		switch format {
		case output.FormatText:
			output.TextSearch(os.Stdout, &res, output.ListView{GroupBy: groupBy, Context: windows})
		case output.FormatJSON:
			if err := output.JSON(os.Stdout, res); err != nil {
				fail(err)
			}
		case output.FormatGitHub:
			output.GitHubSearch(os.Stdout, &res)
		case output.FormatSARIF:
			if err := output.SARIFList(os.Stdout, res.Records); err != nil {
				fail(err)
			}
		case output.FormatMarkdown:
			output.MarkdownSearch(os.Stdout, &res)
		}
	},
}

func init() {
	addFilterFlags(searchCmd, false)
	searchCmd.Flags().Bool("exact", false, "Case-sensitive matching")
	searchCmd.Flags().String("sort", "file", "Sort order: file, tag, or priority")
	searchCmd.Flags().String("group-by", "file", "Group output by: file, tag, priority, author, or dir")
	searchCmd.Flags().IntP("context", "C", 0, "Source lines to show around each match")
	rootCmd.AddCommand(searchCmd)
}
