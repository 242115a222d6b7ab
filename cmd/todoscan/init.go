package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/todoscan/todoscan/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .todoscan.yaml config interactively",
	Long: `Walk through the common settings and write a .todoscan.yaml in the
root directory. Every prompt has a sensible default; -y skips the
prompts entirely and writes the defaults. Ctrl+C aborts without writing.

Examples:
  todoscan init
  todoscan init -y`,
	Run: func(cmd *cobra.Command, args []string) {
		yes, _ := cmd.Flags().GetBool("yes")

		path := filepath.Join(flagRoot, config.FileName)
		_, statErr := os.Stat(path)
		exists := statErr == nil

		cfg := config.Default()

		if !yes {
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				InterruptPrompt: "^C",
			})
			if err != nil {
				fail(err)
			}
			defer rl.Close()

			if exists && !askYesNo(rl, fmt.Sprintf("%s exists, overwrite? [y/N] ", path)) {
				fmt.Println("Nothing written.")
				return
			}

			if tags := ask(rl, fmt.Sprintf("Tags to scan for [%s]: ", strings.Join(cfg.Tags, ", "))); tags != "" {
				cfg.Tags = splitCSV(tags)
			}
			if dirs := ask(rl, "Directories to exclude (comma-separated) [none]: "); dirs != "" {
				cfg.ExcludeDirs = append(cfg.ExcludeDirs, splitCSV(dirs)...)
			}
			if budget := ask(rl, "Marker budget for todoscan check [no limit]: "); budget != "" {
				n, err := strconv.Atoi(budget)
				if err != nil || n < 0 {
					fail(fmt.Errorf("invalid budget %q: want a non-negative number", budget))
				}
				cfg.Check.Max = &n
			}
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			fail(fmt.Errorf("failed to serialize config: %w", err))
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			fail(fmt.Errorf("failed to write config: %w", err))
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Wrote %s\n", green("✓"), path)
	},
}

func init() {
	initCmd.Flags().BoolP("yes", "y", false, "Accept every default without prompting")
	rootCmd.AddCommand(initCmd)
}

// ask reads one line, trimmed. Ctrl+C and Ctrl+D abort the wizard with
// nothing written.
func ask(rl *readline.Instance, prompt string) string {
	rl.SetPrompt(prompt)
	line, err := rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt || err == io.EOF {
			fmt.Println("Aborted; nothing written.")
			os.Exit(0)
		}
		fail(err)
	}
	return strings.TrimSpace(line)
}

func askYesNo(rl *readline.Instance, prompt string) bool {
	answer := strings.ToLower(ask(rl, prompt))
	return answer == "y" || answer == "yes"
}
