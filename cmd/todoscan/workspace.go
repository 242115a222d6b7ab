package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/todoscan/todoscan/internal/config"
	"github.com/todoscan/todoscan/internal/output"
	"github.com/todoscan/todoscan/internal/workspace"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Per-package marker tracking for monorepos",
	Long: `Commands that operate per workspace package instead of over the whole
tree. Packages come from the first manifest that declares a workspace
(Cargo.toml, package.json, pnpm-workspace.yaml, workspace.json, go.work)
or from the workspace.packages map in .todoscan.yaml.`,
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List packages with their marker counts",
	Long: `Enumerate the workspace packages, scan each one, and show its marker
count against any configured per-package budget.

Examples:
  todoscan workspace list
  todoscan workspace list --format json`,
	Run: func(cmd *cobra.Command, args []string) {
		format := outputFormat()
		switch format {
		case output.FormatText, output.FormatJSON, output.FormatMarkdown:
		default:
			fail(unsupportedFormat("workspace list", format))
		}

		cfg := loadConfig()
		ws := detectWorkspace(cfg)

		summary, err := workspace.Summarize(context.Background(), flagRoot, ws, cfg, flagNoCache)
		if err != nil {
			fail(err)
		}

		switch format {
		case output.FormatText:
			output.TextWorkspace(os.Stdout, summary)
		case output.FormatJSON:
			if err := output.JSON(os.Stdout, summary); err != nil {
				fail(err)
			}
		case output.FormatMarkdown:
			output.MarkdownWorkspace(os.Stdout, summary)
		}
	},
}

var workspaceCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Gate every package against its budget",
	Long: `Scan each workspace package and apply its per-package rules from
workspace.packages in .todoscan.yaml: max caps the package's marker
count, block_tags forbids tags inside it. Exits 1 on violations.

Examples:
  todoscan workspace check
  todoscan workspace check --format github-actions`,
	Run: func(cmd *cobra.Command, args []string) {
		format := outputFormat()
		cfg := loadConfig()
		ws := detectWorkspace(cfg)

		res, err := workspace.RunChecks(context.Background(), flagRoot, ws, cfg, flagNoCache)
		if err != nil {
			fail(err)
		}

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
	workspaceCmd.AddCommand(workspaceListCmd)
	workspaceCmd.AddCommand(workspaceCheckCmd)
	rootCmd.AddCommand(workspaceCmd)
}

// detectWorkspace resolves the package layout, treating "no workspace
// here" as an operational error: these commands have nothing to act on.
func detectWorkspace(cfg config.Config) *workspace.Workspace {
	ws, err := workspace.Detect(flagRoot, cfg)
	if err != nil {
		fail(err)
	}
	if ws == nil || len(ws.Packages) == 0 {
		fail(fmt.Errorf("no workspace detected in %s (no manifest and no workspace.packages in config)", flagRoot))
	}
	return ws
}
