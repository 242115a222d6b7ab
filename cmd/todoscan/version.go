package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/todoscan/todoscan/internal/output"
	"github.com/todoscan/todoscan/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the todoscan version",
	Run: func(cmd *cobra.Command, args []string) {
		if outputFormat() == output.FormatJSON {
			payload := struct {
				Version string `json:"version"`
			}{version.Version}
			if err := output.JSON(os.Stdout, payload); err != nil {
				fail(err)
			}
			return
		}
		fmt.Printf("todoscan %s\n", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
