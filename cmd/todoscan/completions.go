package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var completionsCmd = &cobra.Command{
	Use:       "completions <shell>",
	Short:     "Generate shell completion scripts",
	Long: `Write a completion script for the given shell to stdout.

Examples:
  todoscan completions bash > /etc/bash_completion.d/todoscan
  todoscan completions zsh > "${fpath[1]}/_todoscan"
  todoscan completions fish > ~/.config/fish/completions/todoscan.fish`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Run: func(cmd *cobra.Command, args []string) {
		var err error
		switch args[0] {
		case "bash":
			err = rootCmd.GenBashCompletionV2(os.Stdout, true)
		case "zsh":
			err = rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			err = rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			err = rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			err = fmt.Errorf("unknown shell %q (want bash, zsh, fish, or powershell)", args[0])
		}
		if err != nil {
			fail(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionsCmd)
}
