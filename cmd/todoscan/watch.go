package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/todoscan/todoscan/internal/output"
	"github.com/todoscan/todoscan/internal/stats"
	"github.com/todoscan/todoscan/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Re-scan on file changes and report marker deltas",
	Long: `Watch the tree and report marker changes as files are saved. Only
touched files are re-read; events are debounced so editor save-storms
collapse into one update.

Each event shows the markers added and removed in the changed file and
the running total. Press Ctrl+C to stop.

Examples:
  todoscan watch
  todoscan watch --tag FIXME         # Only show FIXME changes
  todoscan watch --debounce 1000     # Calmer updates
  todoscan watch --format json       # One JSON object per event`,
	Run: func(cmd *cobra.Command, args []string) {
		debounceMS, _ := cmd.Flags().GetInt("debounce")
		tags, _ := cmd.Flags().GetStringSlice("tag")

		format := outputFormat()
		switch format {
		case output.FormatText, output.FormatJSON:
		default:
			fail(unsupportedFormat("watch", format))
		}

		cfg := loadConfig()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		opts := watch.Options{
			Root:     flagRoot,
			Config:   cfg,
			NoCache:  flagNoCache,
			Debounce: time.Duration(debounceMS) * time.Millisecond,
			Tags:     tags,
			OnError: func(err error) {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			},
		}
		if format == output.FormatText {
			opts.OnStart = func(total int, counts []stats.TagCount) {
				output.TextWatchStart(os.Stdout, flagRoot, total, counts)
			}
			opts.OnEvent = func(ev watch.Event) {
				output.TextWatchEvent(os.Stdout, ev)
			}
		} else {
			opts.OnEvent = func(ev watch.Event) {
				if err := output.JSON(os.Stdout, ev); err != nil {
					fmt.Fprintf(os.Stderr, "warning: %v\n", err)
				}
			}
		}

		if err := watch.Run(ctx, opts); err != nil {
			fail(err)
		}
	},
}

func init() {
	watchCmd.Flags().Int("debounce", 300, "Milliseconds to wait after a change before re-scanning")
	watchCmd.Flags().StringSlice("tag", nil, "Only show changes to these tags (repeatable)")
	rootCmd.AddCommand(watchCmd)
}
