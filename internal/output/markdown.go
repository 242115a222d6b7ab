package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/todoscan/todoscan/internal/blame"
	"github.com/todoscan/todoscan/internal/check"
	"github.com/todoscan/todoscan/internal/diffscan"
	"github.com/todoscan/todoscan/internal/lint"
	"github.com/todoscan/todoscan/internal/marker"
	"github.com/todoscan/todoscan/internal/report"
	"github.com/todoscan/todoscan/internal/scan"
	"github.com/todoscan/todoscan/internal/stats"
	"github.com/todoscan/todoscan/internal/workspace"
)

// cellEscaper neutralizes the characters that would break a table cell
// or smuggle in markdown markup.
var cellEscaper = strings.NewReplacer(
	"|", "\\|",
	"\n", " ",
	"\r", "",
	"[", "\\[",
	"]", "\\]",
	"`", "\\`",
)

func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}

func mdHeader(w io.Writer, cols ...string) {
	fmt.Fprintf(w, "| %s |\n", strings.Join(cols, " | "))
	divider := make([]string, len(cols))
	for i := range divider {
		divider[i] = "---"
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(divider, " | "))
}

func mdRow(w io.Writer, cells ...string) {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = escapeCell(c)
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(escaped, " | "))
}

func deadlineCell(r marker.Record) string {
	if r.Deadline == nil {
		return ""
	}
	return r.Deadline.String()
}

func recordRow(w io.Writer, r marker.Record) {
	mdRow(w, r.File, strconv.Itoa(r.Line), string(r.Tag), priorityBangs(r.Priority),
		r.Message, r.Author, r.IssueRef, deadlineCell(r))
}

// MarkdownList writes the record table with an item-count footer.
func MarkdownList(w io.Writer, records []marker.Record) {
	mdHeader(w, "File", "Line", "Tag", "Priority", "Message", "Author", "Issue", "Deadline")
	for _, r := range records {
		recordRow(w, r)
	}
	fmt.Fprintf(w, "\n**%d items found**\n", len(records))
}

// MarkdownSearch writes the record table with a match footer.
func MarkdownSearch(w io.Writer, res *scan.SearchResult) {
	mdHeader(w, "File", "Line", "Tag", "Priority", "Message", "Author", "Issue", "Deadline")
	for _, r := range res.Records {
		recordRow(w, r)
	}
	fmt.Fprintf(w, "\n**%d matches across %d files** (query: %q)\n", res.MatchCount, res.FileCount, res.Query)
}

// MarkdownDiff writes the status table with the count footer.
func MarkdownDiff(w io.Writer, res *diffscan.Result) {
	mdHeader(w, "Status", "File", "Line", "Tag", "Message")
	for _, e := range res.Entries {
		status := "~"
		switch e.Status {
		case diffscan.StatusAdded:
			status = "+"
		case diffscan.StatusRemoved:
			status = "-"
		}
		mdRow(w, status, e.Record.File, strconv.Itoa(e.Record.Line), string(e.Record.Tag), e.Record.Message)
	}
	fmt.Fprintf(w, "\n**+%d -%d ~%d** (base: `%s`)\n", res.AddedCount, res.RemovedCount, res.ModifiedCount, res.BaseRef)
}

// MarkdownBlame writes the attribution table with the aging footer.
func MarkdownBlame(w io.Writer, res *blame.Result) {
	mdHeader(w, "File", "Line", "Tag", "Message", "Author", "Date", "Age (days)", "Stale")
	for _, e := range res.Entries {
		stale := ""
		if e.Stale {
			stale = "Yes"
		}
		mdRow(w, e.Record.File, strconv.Itoa(e.Record.Line), string(e.Record.Tag), e.Record.Message,
			e.Blame.Author, e.Blame.Date, strconv.Itoa(e.Blame.AgeDays), stale)
	}
	fmt.Fprintf(w, "\n**%d items, avg age %d days, %d stale** (threshold: %d days)\n",
		res.Total, res.AvgAgeDays, res.StaleCount, res.StaleThresholdDays)
}

// MarkdownCheck writes a PASS or FAIL section with one bullet per
// violation.
func MarkdownCheck(w io.Writer, res *check.Result) {
	if res.Passed {
		fmt.Fprintf(w, "## PASS\n\nAll checks passed (%d items total).\n", res.Total)
		return
	}
	fmt.Fprintf(w, "## FAIL\n\n")
	for _, v := range res.Violations {
		fmt.Fprintf(w, "- **%s**: %s\n", escapeCell(string(v.Rule)), escapeCell(v.Message))
	}
}

// MarkdownLint writes a PASS section, or a FAIL section with the
// violation table and totals footer.
func MarkdownLint(w io.Writer, res *lint.Result) {
	if res.Passed {
		fmt.Fprintf(w, "## PASS\n\nAll lint checks passed (%d items total).\n", res.Total)
		return
	}
	fmt.Fprintf(w, "## FAIL\n\n")
	mdHeader(w, "File", "Line", "Rule", "Message", "Suggestion")
	for _, v := range res.Violations {
		mdRow(w, v.File, strconv.Itoa(v.Line), string(v.Rule), v.Message, v.Suggestion)
	}
	fmt.Fprintf(w, "\n**%d violations in %d items**\n", res.ViolationCount, res.Total)
}

// MarkdownStats writes the sectioned summary tables. The report command
// embeds this under its own headings.
func MarkdownStats(w io.Writer, res *stats.Result) {
	fmt.Fprintf(w, "**%d items in %d files**\n", res.TotalItems, res.TotalFiles)

	if len(res.TagCounts) > 0 {
		fmt.Fprintf(w, "\n### Tags\n\n")
		mdHeader(w, "Tag", "Count")
		for _, tc := range res.TagCounts {
			mdRow(w, string(tc.Tag), strconv.Itoa(tc.Count))
		}
	}

	fmt.Fprintf(w, "\n### Priorities\n\n")
	mdHeader(w, "Priority", "Count")
	mdRow(w, "urgent", strconv.Itoa(res.Priorities.Urgent))
	mdRow(w, "high", strconv.Itoa(res.Priorities.High))
	mdRow(w, "normal", strconv.Itoa(res.Priorities.Normal))

	if len(res.Authors) > 0 {
		fmt.Fprintf(w, "\n### Authors\n\n")
		mdHeader(w, "Author", "Count")
		for _, ac := range res.Authors {
			mdRow(w, ac.Author, strconv.Itoa(ac.Count))
		}
	}

	if len(res.Hotspots) > 0 {
		fmt.Fprintf(w, "\n### Hotspot files\n\n")
		mdHeader(w, "File", "Count")
		for _, fc := range res.Hotspots {
			mdRow(w, fc.File, strconv.Itoa(fc.Count))
		}
	}

	if res.Trend != nil {
		fmt.Fprintf(w, "\n### Trend\n\n**+%d -%d ~%d** (base: `%s`)\n",
			res.Trend.Added, res.Trend.Removed, res.Trend.Modified, res.Trend.BaseRef)
	}
}

// MarkdownReport writes the full technical-debt report: headline
// metrics, the statistics tables, the age distribution, the snapshot
// trend, and every open item.
func MarkdownReport(w io.Writer, res *report.Result) {
	fmt.Fprintf(w, "# Technical Debt Report\n\nGenerated: %s\n", res.GeneratedAt)

	fmt.Fprintf(w, "\n## Summary\n\n")
	mdHeader(w, "Metric", "Value")
	mdRow(w, "Total items", strconv.Itoa(res.Summary.TotalItems))
	mdRow(w, "Files with items", strconv.Itoa(res.Summary.TotalFiles))
	mdRow(w, "Files scanned", strconv.Itoa(res.Summary.FilesScanned))
	mdRow(w, "Urgent", strconv.Itoa(res.Summary.UrgentCount))
	mdRow(w, "High", strconv.Itoa(res.Summary.HighCount))
	mdRow(w, "Stale", strconv.Itoa(res.Summary.StaleCount))
	mdRow(w, "Avg age (days)", strconv.Itoa(res.Summary.AvgAgeDays))

	fmt.Fprintf(w, "\n## Statistics\n\n")
	MarkdownStats(w, &stats.Result{
		TotalItems: res.Summary.TotalItems,
		TotalFiles: res.Summary.TotalFiles,
		TagCounts:  res.TagCounts,
		Priorities: res.Priorities,
		Authors:    res.Authors,
		Hotspots:   res.Hotspots,
	})

	fmt.Fprintf(w, "\n## Age distribution\n\n")
	mdHeader(w, "Age", "Count")
	for _, b := range res.AgeBuckets {
		mdRow(w, b.Label, strconv.Itoa(b.Count))
	}

	fmt.Fprintf(w, "\n## History\n\n")
	if len(res.History) == 0 {
		fmt.Fprintln(w, "No snapshots recorded yet.")
	} else {
		mdHeader(w, "Date", "Total", "Files", "Urgent", "High")
		for _, sn := range res.History {
			mdRow(w, sn.TakenAt.UTC().Format("2006-01-02"), strconv.Itoa(sn.Total),
				strconv.Itoa(sn.Files), strconv.Itoa(sn.Urgent), strconv.Itoa(sn.High))
		}
	}

	fmt.Fprintf(w, "\n## Items\n\n")
	mdHeader(w, "File", "Line", "Tag", "Priority", "Message", "Author", "Issue", "Deadline")
	for _, r := range res.Items {
		recordRow(w, r)
	}
}

// MarkdownWorkspace writes the per-package table.
func MarkdownWorkspace(w io.Writer, s *workspace.Summary) {
	mdHeader(w, "Package", "Path", "Items", "Max", "Status")
	for _, p := range s.Packages {
		maxCell := ""
		if p.Max != nil {
			maxCell = strconv.Itoa(*p.Max)
		}
		mdRow(w, p.Name, p.Path, strconv.Itoa(p.Count), maxCell, string(p.Status))
	}
	fmt.Fprintf(w, "\n**%d packages, %d items** (%s)\n", s.TotalPackages, s.TotalTodos, s.Kind)
}
