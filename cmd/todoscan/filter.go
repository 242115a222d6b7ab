package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/todoscan/todoscan/internal/marker"
	"github.com/todoscan/todoscan/internal/scan"
)

// addFilterFlags registers the record-filter flags shared by list and
// search. Priority filtering only exists on list.
func addFilterFlags(cmd *cobra.Command, withPriority bool) {
	cmd.Flags().StringSlice("tag", nil, "Only markers with these tags (repeatable)")
	cmd.Flags().String("author", "", "Only markers attributed to this author")
	cmd.Flags().String("path", "", "Only files matching this glob (*, ** and ?)")
	if withPriority {
		cmd.Flags().StringSlice("priority", nil, "Only markers at these priorities: normal, high, urgent (repeatable)")
	}
}

// filtersFromFlags reads the shared filter flags back into scan.Filters.
func filtersFromFlags(cmd *cobra.Command) (scan.Filters, error) {
	tags, _ := cmd.Flags().GetStringSlice("tag")
	author, _ := cmd.Flags().GetString("author")
	pathGlob, _ := cmd.Flags().GetString("path")

	f := scan.Filters{Tags: tags, Author: author, PathGlob: pathGlob}

	if cmd.Flags().Lookup("priority") != nil {
		raw, _ := cmd.Flags().GetStringSlice("priority")
		for _, s := range raw {
			p, err := marker.ParsePriority(s)
			if err != nil {
				return scan.Filters{}, err
			}
			f.Priorities = append(f.Priorities, p)
		}
	}
	return f, nil
}

// visibleRecords drops suppressed markers unless showIgnored is set,
// reporting how many were hidden.
func visibleRecords(records []marker.Record, showIgnored bool) ([]marker.Record, int) {
	if showIgnored {
		return records, 0
	}
	visible := make([]marker.Record, 0, len(records))
	for _, r := range records {
		if !r.Suppressed {
			visible = append(visible, r)
		}
	}
	return visible, len(records) - len(visible)
}

func distinctFiles(records []marker.Record) int {
	files := make(map[string]bool, len(records))
	for _, r := range records {
		files[r.File] = true
	}
	return len(files)
}

// splitCSV turns a "FIXME,BUG" flag value into its parts, trimming
// whitespace and dropping empties.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
