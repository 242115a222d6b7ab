package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/todoscan/todoscan/internal/marker"
	"github.com/todoscan/todoscan/internal/output"
	"github.com/todoscan/todoscan/internal/scan"
	"github.com/todoscan/todoscan/internal/snippet"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List marker comments in the tree",
	Long: `Scan the tree and list every marker comment, with optional filtering,
sorting, and grouping.

Suppressed markers (todoscan:ignore) are hidden by default; --show-ignored
includes them. --context prints source lines around each marker, and
--detail full is shorthand for a three-line context.

Examples:
  todoscan list                          # Everything, grouped by file
  todoscan list --tag FIXME --tag BUG    # Only FIXMEs and BUGs
  todoscan list --priority urgent        # Only !! markers
  todoscan list --group-by author        # Who owes what
  todoscan list --path 'src/**' -C 2     # With two context lines
  todoscan list --sort tag --limit 20    # Twenty most severe`,
	Run: func(cmd *cobra.Command, args []string) {
		sortKey, _ := cmd.Flags().GetString("sort")
		groupBy, _ := cmd.Flags().GetString("group-by")
		limit, _ := cmd.Flags().GetInt("limit")
		contextN, _ := cmd.Flags().GetInt("context")
		detail, _ := cmd.Flags().GetString("detail")
		showIgnored, _ := cmd.Flags().GetBool("show-ignored")

		switch groupBy {
		case "file", "tag", "priority", "author", "dir":
		default:
			fail(fmt.Errorf("unknown group-by key %q (want file, tag, priority, author, or dir)", groupBy))
		}
		switch detail {
		case "compact":
		case "full":
			// Full detail means showing surrounding source; keep an
			// explicit --context if one was given.
			if contextN == 0 {
				contextN = 3
			}
		default:
			fail(fmt.Errorf("unknown detail level %q (want compact or full)", detail))
		}

		format := outputFormat()
		cfg := loadConfig()
		res := runScan(context.Background(), cfg)

		filters, err := filtersFromFlags(cmd)
		if err != nil {
			fail(err)
		}
		records, err := scan.Apply(res.Records, filters)
		if err != nil {
			fail(err)
		}
		if err := scan.SortRecords(records, sortKey); err != nil {
			fail(err)
		}

		records, ignored := visibleRecords(records, showIgnored)
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}

		var windows map[string]snippet.Window
		if contextN > 0 {
			windows = snippet.CollectMap(flagRoot, records, contextN)
		}

		switch format {
		case output.FormatText:
			output.TextList(os.Stdout, records, output.ListView{
				GroupBy:      groupBy,
				Context:      windows,
				IgnoredCount: ignored,
			})
		case output.FormatJSON:
			payload := listPayload{
				Items:   records,
				Total:   len(records),
				Files:   distinctFiles(records),
				Ignored: ignored,
			}
			if err := output.JSON(os.Stdout, payload); err != nil {
				fail(err)
			}
		case output.FormatGitHub:
			output.GitHubList(os.Stdout, records)
		case output.FormatSARIF:
			if err := output.SARIFList(os.Stdout, records); err != nil {
				fail(err)
			}
		case output.FormatMarkdown:
			output.MarkdownList(os.Stdout, records)
		}
	},
}

// listPayload is the json-format shape of the list command.
type listPayload struct {
	Items   []marker.Record `json:"items"`
	Total   int             `json:"total"`
	Files   int             `json:"files"`
	Ignored int             `json:"ignored,omitempty"`
}

func init() {
	addFilterFlags(listCmd, true)
	listCmd.Flags().String("sort", "file", "Sort order: file, tag, or priority")
	listCmd.Flags().String("group-by", "file", "Group output by: file, tag, priority, author, or dir")
	listCmd.Flags().Int("limit", 0, "Show at most N markers (0 = all)")
	listCmd.Flags().IntP("context", "C", 0, "Source lines to show around each marker")
	listCmd.Flags().String("detail", "compact", "Detail level: compact or full")
	listCmd.Flags().Bool("show-ignored", false, "Include suppressed markers")
	rootCmd.AddCommand(listCmd)
}
