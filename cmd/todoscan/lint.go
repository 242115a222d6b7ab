package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/todoscan/todoscan/internal/lint"
	"github.com/todoscan/todoscan/internal/output"
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check marker comments for style problems",
	Long: `Apply style rules to every marker comment and exit 1 on violations.

Metadata rules inspect the extracted record: no_bare_tags flags empty
messages, max_message_length caps them, require_author and
require_issue_ref demand attribution for the listed tags. Raw-text rules
inspect how the marker was written: uppercase_tag and require_colon.

Rules default from .todoscan.yaml's lint section; flags turn rules on for
one run (tag-list flags replace the configured lists).

Examples:
  todoscan lint                            # Configured rules
  todoscan lint --max-message-length 72
  todoscan lint --require-author FIXME,BUG`,
	Run: func(cmd *cobra.Command, args []string) {
		noBare, _ := cmd.Flags().GetBool("no-bare-tags")
		requireAuthor, _ := cmd.Flags().GetString("require-author")
		requireIssueRef, _ := cmd.Flags().GetString("require-issue-ref")
		uppercase, _ := cmd.Flags().GetBool("uppercase-tag")
		requireColon, _ := cmd.Flags().GetBool("require-colon")

		o := lint.Overrides{
			NoBareTags:      noBare,
			RequireAuthor:   splitCSV(requireAuthor),
			RequireIssueRef: splitCSV(requireIssueRef),
			UppercaseTag:    uppercase,
			RequireColon:    requireColon,
		}
		if cmd.Flags().Changed("max-message-length") {
			v, _ := cmd.Flags().GetInt("max-message-length")
			o.MaxMessageLength = &v
		}

		format := outputFormat()
		cfg := loadConfig()
		scanRes := runScan(context.Background(), cfg)

		res, err := lint.Run(scanRes.Records, cfg, o)
		if err != nil {
			fail(err)
		}

		switch format {
		case output.FormatText:
			output.TextLint(os.Stdout, res)
		case output.FormatJSON:
			if err := output.JSON(os.Stdout, res); err != nil {
				fail(err)
			}
		case output.FormatGitHub:
			output.GitHubLint(os.Stdout, res)
		case output.FormatSARIF:
			if err := output.SARIFLint(os.Stdout, res); err != nil {
				fail(err)
			}
		case output.FormatMarkdown:
			output.MarkdownLint(os.Stdout, res)
		}

		if !res.Passed {
			os.Exit(1)
		}
	},
}

func init() {
	lintCmd.Flags().Bool("no-bare-tags", false, "Flag markers with no message")
	lintCmd.Flags().Int("max-message-length", 0, "Flag messages longer than N characters")
	lintCmd.Flags().String("require-author", "", "Tags that must carry an (author) (comma-separated)")
	lintCmd.Flags().String("require-issue-ref", "", "Tags that must reference an issue (comma-separated)")
	lintCmd.Flags().Bool("uppercase-tag", false, "Flag tags not written in uppercase")
	lintCmd.Flags().Bool("require-colon", false, "Flag tags not followed by a colon")
	rootCmd.AddCommand(lintCmd)
}
