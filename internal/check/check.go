// Package check evaluates CI gate rules over a scan: tag blocklists, a
// total marker budget, a new-marker budget against a diff, and expired
// deadlines. Suppressed markers are acknowledged debt and never trip a
// gate; they are excluded before any rule runs.
package check

import (
	"fmt"
	"sort"
	"strings"

	"github.com/todoscan/todoscan/internal/config"
	"github.com/todoscan/todoscan/internal/diffscan"
	"github.com/todoscan/todoscan/internal/marker"
)

// Rule identifies one gate rule.
type Rule string

const (
	RuleBlockTags Rule = "block-tags"
	RuleMax       Rule = "max"
	RuleMaxNew    Rule = "max-new"
	RuleExpired   Rule = "expired"

	// Per-package rules, evaluated by RunPackage for workspace checks.
	RuleWorkspaceMax      Rule = "workspace/max"
	RuleWorkspaceBlockTag Rule = "workspace/block-tag"
)

// Violation is one failed rule occurrence. File and Line are zero for
// scan-wide rules like max.
type Violation struct {
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// Overrides carries CLI-level rule settings. Set values win over the
// config; block tags merge with the config list instead of replacing it.
type Overrides struct {
	Max       *int
	BlockTags []string
	MaxNew    *int
	Expired   bool
}

// Result is one gate evaluation.
type Result struct {
	Passed     bool        `json:"passed"`
	Total      int         `json:"total"`
	Violations []Violation `json:"violations"`
}

// Run evaluates every gate rule and collects all violations rather than
// stopping at the first, so one run reports everything that needs fixing.
// diff may be nil, in which case the max-new rule is skipped. The new-
// marker count is taken from the diff's added entries, not its counter,
// so a newly added but suppressed marker does not count against the
// budget.
func Run(records []marker.Record, diff *diffscan.Result, cfg config.Config, o Overrides, today marker.Deadline) *Result {
	items := unsuppressed(records)

	var violations []Violation

	blocked := blockedTagSet(o.BlockTags, cfg.Check.BlockTags)
	for _, r := range items {
		if blocked[strings.ToUpper(string(r.Tag))] {
			violations = append(violations, Violation{
				Rule:    RuleBlockTags,
				Message: fmt.Sprintf("Blocked tag %s found in %s:%d", r.Tag, r.File, r.Line),
				File:    r.File,
				Line:    r.Line,
			})
		}
	}

	if max := firstOf(o.Max, cfg.Check.Max); max != nil && len(items) > *max {
		violations = append(violations, Violation{
			Rule:    RuleMax,
			Message: fmt.Sprintf("Total TODOs (%d) exceeds max (%d)", len(items), *max),
		})
	}

	if maxNew := firstOf(o.MaxNew, cfg.Check.MaxNew); maxNew != nil && diff != nil {
		added := 0
		for _, e := range diff.Entries {
			if e.Status == diffscan.StatusAdded && !e.Record.Suppressed {
				added++
			}
		}
		if added > *maxNew {
			violations = append(violations, Violation{
				Rule:    RuleMaxNew,
				Message: fmt.Sprintf("New TODOs (%d) exceeds max_new (%d)", added, *maxNew),
			})
		}
	}

	if o.Expired || cfg.Check.Expired {
		for _, r := range items {
			if r.Deadline != nil && r.Deadline.Expired(today) {
				violations = append(violations, Violation{
					Rule:    RuleExpired,
					Message: fmt.Sprintf("Expired deadline %s in %s:%d", r.Deadline, r.File, r.Line),
					File:    r.File,
					Line:    r.Line,
				})
			}
		}
	}

	sortViolations(violations)
	return &Result{
		Passed:     len(violations) == 0,
		Total:      len(items),
		Violations: violations,
	}
}

// RunPackage evaluates the per-package workspace rules over one
// package's scan.
func RunPackage(pkg string, records []marker.Record, rules config.PackageRules) []Violation {
	items := unsuppressed(records)

	var violations []Violation
	if rules.Max != nil && len(items) > *rules.Max {
		violations = append(violations, Violation{
			Rule:    RuleWorkspaceMax,
			Message: fmt.Sprintf("package %q has %d TODOs (max: %d)", pkg, len(items), *rules.Max),
		})
	}
	if len(rules.BlockTags) > 0 {
		blocked := blockedTagSet(rules.BlockTags, nil)
		for _, r := range items {
			if blocked[strings.ToUpper(string(r.Tag))] {
				violations = append(violations, Violation{
					Rule:    RuleWorkspaceBlockTag,
					Message: fmt.Sprintf("package %q: forbidden tag %s at %s:%d", pkg, r.Tag, r.File, r.Line),
					File:    r.File,
					Line:    r.Line,
				})
			}
		}
	}

	sortViolations(violations)
	return violations
}

func unsuppressed(records []marker.Record) []marker.Record {
	var items []marker.Record
	for _, r := range records {
		if !r.Suppressed {
			items = append(items, r)
		}
	}
	return items
}

func blockedTagSet(override, fromConfig []string) map[string]bool {
	blocked := make(map[string]bool, len(override)+len(fromConfig))
	for _, t := range override {
		blocked[strings.ToUpper(t)] = true
	}
	for _, t := range fromConfig {
		blocked[strings.ToUpper(t)] = true
	}
	return blocked
}

func firstOf(override, fallback *int) *int {
	if override != nil {
		return override
	}
	return fallback
}

// sortViolations orders by (file, line), which floats scan-wide rules
// with no location to the top, then by rule and message for stability.
func sortViolations(violations []Violation) {
	sort.Slice(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Message < b.Message
	})
}
