package output

import (
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/todoscan/todoscan/internal/blame"
	"github.com/todoscan/todoscan/internal/check"
	"github.com/todoscan/todoscan/internal/diffscan"
	"github.com/todoscan/todoscan/internal/lint"
	"github.com/todoscan/todoscan/internal/marker"
	"github.com/todoscan/todoscan/internal/scan"
	"github.com/todoscan/todoscan/internal/snippet"
	"github.com/todoscan/todoscan/internal/stats"
	"github.com/todoscan/todoscan/internal/watch"
	"github.com/todoscan/todoscan/internal/workspace"
)

// colorTag renders a tag name in its conventional terminal color.
func colorTag(t marker.Tag) string {
	switch t {
	case marker.TagTodo:
		return color.New(color.FgYellow).Sprint(string(t))
	case marker.TagFixme, marker.TagXxx:
		return color.New(color.FgRed).Sprint(string(t))
	case marker.TagHack:
		return color.New(color.FgMagenta).Sprint(string(t))
	case marker.TagBug:
		return color.New(color.FgRed, color.Bold).Sprint(string(t))
	case marker.TagNote:
		return color.New(color.FgBlue).Sprint(string(t))
	}
	return string(t)
}

// priorityBangs is the source-syntax priority suffix: "" / "!" / "!!".
func priorityBangs(p marker.Priority) string {
	switch p {
	case marker.PriorityUrgent:
		return "!!"
	case marker.PriorityHigh:
		return "!"
	}
	return ""
}

// itemText renders the record part of a listing line, colorized:
// [TAG] message (@author) (#ref) [deadline: ...]. Expired deadlines
// show in red. Suppressed records get an "(ignored)" suffix when they
// are displayed at all.
func itemText(r marker.Record) string {
	cyan := color.New(color.FgCyan).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	var b strings.Builder
	b.WriteString("[" + colorTag(r.Tag) + priorityBangs(r.Priority) + "]")
	if r.Message != "" {
		b.WriteString(" " + r.Message)
	}
	if r.Author != "" {
		b.WriteString(" " + cyan("(@"+r.Author+")"))
	}
	if r.IssueRef != "" {
		b.WriteString(" (" + r.IssueRef + ")")
	}
	if r.Deadline != nil {
		if r.Deadline.Expired(marker.Today()) {
			b.WriteString(" " + red("[expired: "+r.Deadline.String()+"]"))
		} else {
			b.WriteString(" [deadline: " + r.Deadline.String() + "]")
		}
	}
	if r.Suppressed {
		b.WriteString(" " + faint("(ignored)"))
	}
	return b.String()
}

// plainItem is itemText without colors or attribution, for lines that get
// colored as a whole (diff, watch).
func plainItem(r marker.Record) string {
	s := "[" + string(r.Tag) + priorityBangs(r.Priority) + "]"
	if r.Message != "" {
		s += " " + r.Message
	}
	return s
}

// ListView carries the presentation options the list and search commands
// resolve from their flags.
type ListView struct {
	// GroupBy chooses the grouping: file (the default), tag, priority,
	// author, or dir.
	GroupBy string

	// Context maps "file:line" to the source window around each record.
	// Nil means no context display.
	Context map[string]snippet.Window

	// IgnoredCount is how many suppressed records were hidden before
	// rendering.
	IgnoredCount int
}

// TextList writes the grouped listing with the item-count footer.
func TextList(w io.Writer, records []marker.Record, view ListView) {
	writeGroups(w, records, view)

	files := make(map[string]bool, len(records))
	for _, r := range records {
		files[r.File] = true
	}
	fmt.Fprintf(w, "\n%d items in %d files\n", len(records), len(files))

	if view.IgnoredCount > 0 {
		faint := color.New(color.Faint).SprintFunc()
		fmt.Fprintf(w, "%s\n", faint(fmt.Sprintf("(%d ignored; use --show-ignored to include them)", view.IgnoredCount)))
	}
}

// TextSearch writes search hits in the listing layout with a match footer.
func TextSearch(w io.Writer, res *scan.SearchResult, view ListView) {
	writeGroups(w, res.Records, view)
	fmt.Fprintf(w, "\n%d matches in %d files (query: %q)\n", res.MatchCount, res.FileCount, res.Query)
}

func writeGroups(w io.Writer, records []marker.Record, view ListView) {
	bold := color.New(color.Bold).SprintFunc()
	fileHeader := color.New(color.Bold, color.Underline).SprintFunc()

	keys, groups := groupRecords(records, view.GroupBy)
	for i, key := range keys {
		if i > 0 {
			fmt.Fprintln(w)
		}

		switch view.GroupBy {
		case "tag":
			tag, _ := marker.ParseTag(key)
			fmt.Fprintf(w, "[%s]\n", colorTag(tag))
		case "priority", "author":
			fmt.Fprintf(w, "%s\n", bold(key))
		default:
			fmt.Fprintf(w, "%s\n", fileHeader(key))
		}

		for _, r := range groups[key] {
			if view.GroupBy == "" || view.GroupBy == "file" {
				fmt.Fprintf(w, "  L%d: %s\n", r.Line, itemText(r))
			} else {
				fmt.Fprintf(w, "  %s:%d %s\n", r.File, r.Line, itemText(r))
			}
			if view.Context != nil {
				if win, ok := view.Context[r.File+":"+strconv.Itoa(r.Line)]; ok {
					writeWindow(w, win, r)
				}
			}
		}
	}
}

// writeWindow prints the source lines around a record, the record's own
// line marked with ">".
func writeWindow(w io.Writer, win snippet.Window, r marker.Record) {
	if len(win.Before) == 0 && len(win.After) == 0 {
		return
	}

	faint := color.New(color.Faint).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	for _, ln := range win.Before {
		fmt.Fprintf(w, "    %s\n", faint(fmt.Sprintf("  %4d | %s", ln.Number, ln.Content)))
	}
	fmt.Fprintf(w, "    %s %4d | %s\n", yellow(">"), r.Line, strings.TrimRight(r.RawLine, " \t\r"))
	for _, ln := range win.After {
		fmt.Fprintf(w, "    %s\n", faint(fmt.Sprintf("  %4d | %s", ln.Number, ln.Content)))
	}
}

// groupRecords buckets records by the grouping key. File, dir, and author
// groups come back in lexical order; tag and priority groups most severe
// first. Records keep their incoming order inside each group.
func groupRecords(records []marker.Record, groupBy string) ([]string, map[string][]marker.Record) {
	keyOf := func(r marker.Record) string {
		switch groupBy {
		case "tag":
			return string(r.Tag)
		case "priority":
			return string(r.Priority)
		case "author":
			if r.Author == "" {
				return "unassigned"
			}
			return r.Author
		case "dir":
			return path.Dir(r.File)
		default:
			return r.File
		}
	}

	groups := make(map[string][]marker.Record)
	var keys []string
	for _, r := range records {
		k := keyOf(r)
		if _, seen := groups[k]; !seen {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], r)
	}

	switch groupBy {
	case "tag":
		sort.Slice(keys, func(i, j int) bool {
			a, _ := marker.ParseTag(keys[i])
			b, _ := marker.ParseTag(keys[j])
			if a.Rank() != b.Rank() {
				return a.Rank() > b.Rank()
			}
			return keys[i] < keys[j]
		})
	case "priority":
		sort.Slice(keys, func(i, j int) bool {
			return marker.Priority(keys[i]).Rank() > marker.Priority(keys[j]).Rank()
		})
	default:
		sort.Strings(keys)
	}

	return keys, groups
}

// TextDiff writes one +/-/~ line per diff entry, whole lines colored by
// status, then the count footer.
func TextDiff(w io.Writer, res *diffscan.Result) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	for _, e := range res.Entries {
		line := fmt.Sprintf("%s:%d %s", e.Record.File, e.Record.Line, plainItem(e.Record))
		switch e.Status {
		case diffscan.StatusAdded:
			fmt.Fprintf(w, "%s\n", green("+ "+line))
		case diffscan.StatusRemoved:
			fmt.Fprintf(w, "%s\n", red("- "+line))
		case diffscan.StatusModified:
			fmt.Fprintf(w, "%s\n", yellow("~ "+line))
		}
	}

	fmt.Fprintf(w, "\n+%d -%d ~%d (base: %s)\n", res.AddedCount, res.RemovedCount, res.ModifiedCount, res.BaseRef)
}

// TextCheck writes PASS or FAIL with one indented line per violation.
func TextCheck(w io.Writer, res *check.Result) {
	if res.Passed {
		fmt.Fprintf(w, "%s\n", color.New(color.FgGreen, color.Bold).Sprint("PASS"))
		return
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(w, "%s\n", color.New(color.FgRed, color.Bold).Sprint("FAIL"))
	for _, v := range res.Violations {
		fmt.Fprintf(w, "  %s: %s\n", yellow(string(v.Rule)), v.Message)
	}
}

// TextLint writes PASS, or FAIL with located violations and the totals
// footer.
func TextLint(w io.Writer, res *lint.Result) {
	if res.Passed {
		fmt.Fprintf(w, "%s\n", color.New(color.FgGreen, color.Bold).Sprint("PASS"))
		return
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()
	fmt.Fprintf(w, "%s\n", color.New(color.FgRed, color.Bold).Sprint("FAIL"))
	for _, v := range res.Violations {
		fmt.Fprintf(w, "  %s:%d %s: %s\n", v.File, v.Line, yellow(string(v.Rule)), v.Message)
		if v.Suggestion != "" {
			fmt.Fprintf(w, "    %s\n", faint("suggestion: "+v.Suggestion))
		}
	}
	fmt.Fprintf(w, "\n%d violations in %d items\n", res.ViolationCount, res.Total)
}

// TextStats writes the sectioned summary: totals, tags, priorities,
// authors, hotspot files, and the trend when one was computed.
func TextStats(w io.Writer, res *stats.Result) {
	bold := color.New(color.Bold).SprintFunc()
	header := color.New(color.FgCyan, color.Bold).SprintFunc()

	fmt.Fprintf(w, "%s\n", bold(fmt.Sprintf("%d items in %d files", res.TotalItems, res.TotalFiles)))

	if len(res.TagCounts) > 0 {
		fmt.Fprintf(w, "\n%s\n", header("Tags:"))
		width := 0
		for _, tc := range res.TagCounts {
			width = max(width, len(tc.Tag))
		}
		for _, tc := range res.TagCounts {
			fmt.Fprintf(w, "  %-*s %d\n", width, string(tc.Tag), tc.Count)
		}
	}

	fmt.Fprintf(w, "\n%s\n", header("Priorities:"))
	fmt.Fprintf(w, "  %-6s %d\n", "urgent", res.Priorities.Urgent)
	fmt.Fprintf(w, "  %-6s %d\n", "high", res.Priorities.High)
	fmt.Fprintf(w, "  %-6s %d\n", "normal", res.Priorities.Normal)

	if len(res.Authors) > 0 {
		fmt.Fprintf(w, "\n%s\n", header("Authors:"))
		width := 0
		for _, ac := range res.Authors {
			width = max(width, len(ac.Author))
		}
		for _, ac := range res.Authors {
			fmt.Fprintf(w, "  %-*s %d\n", width, ac.Author, ac.Count)
		}
	}

	if len(res.Hotspots) > 0 {
		fmt.Fprintf(w, "\n%s\n", header("Hotspot files:"))
		width := 0
		for _, fc := range res.Hotspots {
			width = max(width, len(fc.File))
		}
		for _, fc := range res.Hotspots {
			fmt.Fprintf(w, "  %-*s %d\n", width, fc.File, fc.Count)
		}
	}

	if res.Trend != nil {
		fmt.Fprintf(w, "\n%s %s\n", header(fmt.Sprintf("Trend (base: %s):", res.Trend.BaseRef)), trendText(res.Trend))
	}
}

// TextBrief writes the compact summary: one totals line, the most
// pressing item if any, and the trend if one was computed.
func TextBrief(w io.Writer, b *stats.Brief) {
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(w, "%s\n", bold(fmt.Sprintf("%d items in %d files (%d urgent, %d high)",
		b.TotalItems, b.TotalFiles, b.Priorities.Urgent, b.Priorities.High)))
	if b.TopUrgent != nil {
		r := *b.TopUrgent
		fmt.Fprintf(w, "most pressing: %s:%d %s\n", r.File, r.Line, itemText(r))
	}
	if b.Trend != nil {
		fmt.Fprintf(w, "since %s: %s\n", b.Trend.BaseRef, trendText(b.Trend))
	}
}

func trendText(t *stats.Trend) string {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	return fmt.Sprintf("%s %s %s",
		green(fmt.Sprintf("+%d", t.Added)),
		red(fmt.Sprintf("-%d", t.Removed)),
		yellow(fmt.Sprintf("~%d", t.Modified)))
}

// TextContext writes the standalone context view: the source window with
// the marker line pointed out, then any related markers in the window.
func TextContext(w io.Writer, rich *snippet.Rich) {
	bold := color.New(color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	header := color.New(color.FgCyan, color.Bold).SprintFunc()

	fmt.Fprintf(w, "%s\n\n", bold(fmt.Sprintf("%s:%d", rich.File, rich.Line)))

	width := numWidth(rich.Line)
	if n := len(rich.After); n > 0 {
		width = max(width, numWidth(rich.After[n-1].Number))
	}

	for _, ln := range rich.Before {
		fmt.Fprintf(w, "  %*d | %s\n", width, ln.Number, ln.Content)
	}
	fmt.Fprintf(w, "%s %*d | %s\n", yellow(">"), width, rich.Line, rich.TodoLine)
	for _, ln := range rich.After {
		fmt.Fprintf(w, "  %*d | %s\n", width, ln.Number, ln.Content)
	}

	if len(rich.Related) > 0 {
		fmt.Fprintf(w, "\n%s\n", header("Related:"))
		for _, rt := range rich.Related {
			fmt.Fprintf(w, "  L%d: [%s] %s\n", rt.Line, colorTag(rt.Tag), rt.Message)
		}
	}
}

func numWidth(n int) int {
	return len(strconv.Itoa(n))
}

// TextBlame writes one attributed line per entry, in the order the
// entries were sorted, then the aging footer.
func TextBlame(w io.Writer, res *blame.Result) {
	red := color.New(color.FgRed).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	for _, e := range res.Entries {
		r := e.Record
		who := faint("uncommitted")
		if e.Blame.Commit != "" {
			who = fmt.Sprintf("%s %s (%d days ago)", e.Blame.Author, e.Blame.Date, e.Blame.AgeDays)
		}
		stale := ""
		if e.Stale {
			stale = " " + red("[stale]")
		}
		fmt.Fprintf(w, "%s:%d [%s%s] %s  %s%s\n", r.File, r.Line, colorTag(r.Tag), priorityBangs(r.Priority), r.Message, who, stale)
	}

	fmt.Fprintf(w, "\n%d items, avg age %d days, %d stale (threshold: %d days)\n",
		res.Total, res.AvgAgeDays, res.StaleCount, res.StaleThresholdDays)
}

// TextWorkspace writes the per-package count table.
func TextWorkspace(w io.Writer, s *workspace.Summary) {
	bold := color.New(color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(w, "%s\n\n", bold(fmt.Sprintf("%s workspace: %d packages, %d items", s.Kind, s.TotalPackages, s.TotalTodos)))

	width := 0
	for _, p := range s.Packages {
		width = max(width, len(p.Name))
	}
	for _, p := range s.Packages {
		counts := strconv.Itoa(p.Count)
		if p.Max != nil {
			counts += "/" + strconv.Itoa(*p.Max)
		}
		over := ""
		if p.Status == workspace.StatusOver {
			over = "  " + red("over budget")
		}
		fmt.Fprintf(w, "  %-*s  %s%s\n", width, p.Name, counts, over)
	}
}

// TextWatchStart writes the banner the watch loop prints once the
// initial scan is done.
func TextWatchStart(w io.Writer, root string, total int, counts []stats.TagCount) {
	bold := color.New(color.Bold).SprintFunc()

	summary := fmt.Sprintf("%d items", total)
	if len(counts) > 0 {
		parts := make([]string, len(counts))
		for i, tc := range counts {
			parts[i] = fmt.Sprintf("%s %d", tc.Tag, tc.Count)
		}
		summary += ": " + strings.Join(parts, ", ")
	}
	fmt.Fprintf(w, "%s\n", bold(fmt.Sprintf("Watching %s (%s)", root, summary)))
	fmt.Fprintln(w, "Press Ctrl+C to stop.")
}

// TextWatchEvent writes one change notification: a header line with the
// file and running totals, then a diff-style line per changed marker.
func TextWatchEvent(w io.Writer, ev watch.Event) {
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	ts := ev.Timestamp
	if len(ts) >= 19 {
		ts = ts[11:19]
	}
	fmt.Fprintf(w, "%s %s %s %s (total %d, %+d)\n",
		faint(ts), bold(ev.File),
		green(fmt.Sprintf("+%d", len(ev.Added))),
		red(fmt.Sprintf("-%d", len(ev.Removed))),
		ev.Total, ev.TotalDelta)

	for _, r := range ev.Added {
		fmt.Fprintf(w, "%s\n", green(fmt.Sprintf("  + L%d %s", r.Line, plainItem(r))))
	}
	for _, r := range ev.Removed {
		fmt.Fprintf(w, "%s\n", red(fmt.Sprintf("  - L%d %s", r.Line, plainItem(r))))
	}
}
