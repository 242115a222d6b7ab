package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/todoscan/todoscan/internal/blame"
	"github.com/todoscan/todoscan/internal/check"
	"github.com/todoscan/todoscan/internal/diffscan"
	"github.com/todoscan/todoscan/internal/lint"
	"github.com/todoscan/todoscan/internal/marker"
	"github.com/todoscan/todoscan/internal/scan"
)

// Workflow-command escaping per the GitHub Actions runner: data and
// property values have distinct escape sets.

func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	return s
}

func escapeProperty(s string) string {
	s = escapeData(s)
	s = strings.ReplaceAll(s, ":", "%3A")
	s = strings.ReplaceAll(s, ",", "%2C")
	return s
}

func annotation(level, file string, line int, title, message string) string {
	return fmt.Sprintf("::%s file=%s,line=%d,title=%s::%s",
		level, escapeProperty(file), line, escapeProperty(title), escapeData(message))
}

func recordMessage(r marker.Record) string {
	msg := plainItem(r)
	if r.Deadline != nil {
		msg += fmt.Sprintf(" (deadline: %s)", r.Deadline)
	}
	return msg
}

// GitHubList writes one annotation per record plus a summary notice.
func GitHubList(w io.Writer, records []marker.Record) {
	for _, r := range records {
		level := marker.SeverityOf(r).GitHubLevel()
		fmt.Fprintf(w, "%s\n", annotation(level, r.File, r.Line, string(r.Tag), recordMessage(r)))
	}
	fmt.Fprintf(w, "::notice::todoscan: %d items found\n", len(records))
}

// GitHubSearch writes annotations for the matched records plus a
// summary notice carrying the query.
func GitHubSearch(w io.Writer, res *scan.SearchResult) {
	for _, r := range res.Records {
		level := marker.SeverityOf(r).GitHubLevel()
		fmt.Fprintf(w, "%s\n", annotation(level, r.File, r.Line, string(r.Tag), recordMessage(r)))
	}
	fmt.Fprintf(w, "::notice::todoscan search: %d matches (query: %q)\n", res.MatchCount, res.Query)
}

// GitHubDiff annotates added entries at their own severity; removals and
// modifications are informational and never fail an annotation budget.
func GitHubDiff(w io.Writer, res *diffscan.Result) {
	for _, e := range res.Entries {
		r := e.Record
		switch e.Status {
		case diffscan.StatusAdded:
			level := marker.SeverityOf(r).GitHubLevel()
			fmt.Fprintf(w, "%s\n", annotation(level, r.File, r.Line, string(r.Tag), recordMessage(r)))
		case diffscan.StatusRemoved:
			fmt.Fprintf(w, "%s\n", annotation("notice", r.File, r.Line, "Removed "+string(r.Tag), recordMessage(r)))
		case diffscan.StatusModified:
			fmt.Fprintf(w, "%s\n", annotation("warning", r.File, r.Line, "Modified "+string(r.Tag), recordMessage(r)))
		}
	}
	fmt.Fprintf(w, "::notice::todoscan diff: +%d -%d ~%d\n", res.AddedCount, res.RemovedCount, res.ModifiedCount)
}

// GitHubBlame annotates each entry with its attribution; stale entries
// surface as warnings regardless of tag severity.
func GitHubBlame(w io.Writer, res *blame.Result) {
	for _, e := range res.Entries {
		r := e.Record
		msg := plainItem(r)
		if e.Blame.Commit != "" {
			msg += fmt.Sprintf(" @%s %s (%d days ago)", e.Blame.Author, e.Blame.Date, e.Blame.AgeDays)
		} else {
			msg += " @" + blame.UncommittedAuthor
		}

		level := marker.SeverityOf(r).GitHubLevel()
		title := string(r.Tag)
		if e.Stale {
			level = "warning"
			title = "Stale " + string(r.Tag)
		}
		fmt.Fprintf(w, "%s\n", annotation(level, r.File, r.Line, title, msg))
	}
	fmt.Fprintf(w, "::notice::todoscan blame: %d items, %d stale\n", res.Total, res.StaleCount)
}

// GitHubCheck writes a single notice on pass, or one error per violation
// plus a failing summary.
func GitHubCheck(w io.Writer, res *check.Result) {
	if res.Passed {
		fmt.Fprintf(w, "::notice::todoscan check: PASS\n")
		return
	}
	for _, v := range res.Violations {
		if v.File != "" {
			fmt.Fprintf(w, "%s\n", annotation("error", v.File, v.Line, string(v.Rule), v.Message))
		} else {
			fmt.Fprintf(w, "::error title=%s::%s\n", escapeProperty(string(v.Rule)), escapeData(v.Message))
		}
	}
	fmt.Fprintf(w, "::error::todoscan check: FAIL\n")
}

// GitHubLint writes a single notice on pass, or one located error per
// violation plus a failing summary.
func GitHubLint(w io.Writer, res *lint.Result) {
	if res.Passed {
		fmt.Fprintf(w, "::notice::todoscan lint: PASS\n")
		return
	}
	for _, v := range res.Violations {
		msg := v.Message
		if v.Suggestion != "" {
			msg += fmt.Sprintf(" (suggestion: %s)", v.Suggestion)
		}
		fmt.Fprintf(w, "%s\n", annotation("error", v.File, v.Line, string(v.Rule), msg))
	}
	fmt.Fprintf(w, "::error::todoscan lint: FAIL\n")
}
