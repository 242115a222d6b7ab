// Package lint applies style rules to marker comments. Metadata rules
// inspect the extracted record; raw-text rules inspect the captured
// source line, so no file is re-read. Suppressed markers are skipped:
// a marker the author explicitly silenced is not restyled.
package lint

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/todoscan/todoscan/internal/config"
	"github.com/todoscan/todoscan/internal/marker"
)

// Rule identifies one lint rule. Names match the config keys.
type Rule string

const (
	RuleNoBareTags       Rule = "no_bare_tags"
	RuleMaxMessageLength Rule = "max_message_length"
	RuleRequireAuthor    Rule = "require_author"
	RuleRequireIssueRef  Rule = "require_issue_ref"
	RuleUppercaseTag     Rule = "uppercase_tag"
	RuleRequireColon     Rule = "require_colon"
)

// Violation is one style finding with a concrete fix suggestion.
type Violation struct {
	Rule       Rule   `json:"rule"`
	Message    string `json:"message"`
	File       string `json:"file"`
	Line       int    `json:"line"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Overrides carries CLI-level rule settings. Boolean flags turn a rule
// on in addition to the config; the tag lists replace the config lists
// when non-empty.
type Overrides struct {
	NoBareTags       bool
	MaxMessageLength *int
	RequireAuthor    []string
	RequireIssueRef  []string
	UppercaseTag     bool
	RequireColon     bool
}

// Result is one lint evaluation.
type Result struct {
	Passed         bool        `json:"passed"`
	Total          int         `json:"total_items"`
	ViolationCount int         `json:"violation_count"`
	Violations     []Violation `json:"violations"`
}

type resolved struct {
	noBareTags       bool
	maxMessageLength *int
	requireAuthor    []string
	requireIssueRef  []string
	uppercaseTag     bool
	requireColon     bool
}

func resolve(cfg config.Config, o Overrides) resolved {
	r := resolved{
		noBareTags:       o.NoBareTags || cfg.Lint.NoBareTags,
		maxMessageLength: o.MaxMessageLength,
		requireAuthor:    o.RequireAuthor,
		requireIssueRef:  o.RequireIssueRef,
		uppercaseTag:     o.UppercaseTag || cfg.Lint.UppercaseTag,
		requireColon:     o.RequireColon || cfg.Lint.RequireColon,
	}
	if r.maxMessageLength == nil {
		r.maxMessageLength = cfg.Lint.MaxMessageLength
	}
	if len(r.requireAuthor) == 0 {
		r.requireAuthor = cfg.Lint.RequireAuthor
	}
	if len(r.requireIssueRef) == 0 {
		r.requireIssueRef = cfg.Lint.RequireIssueRef
	}
	return r
}

// Run lints every unsuppressed record and collects all violations,
// sorted by (file, line).
func Run(records []marker.Record, cfg config.Config, o Overrides) (*Result, error) {
	res := resolve(cfg, o)

	var rawRe *regexp.Regexp
	if res.uppercaseTag || res.requireColon {
		var err error
		rawRe, err = rawTagPattern(cfg.TagsOrDefault())
		if err != nil {
			return nil, fmt.Errorf("failed to build lint pattern: %w", err)
		}
	}

	var violations []Violation
	total := 0
	for _, r := range records {
		if r.Suppressed {
			continue
		}
		total++
		violations = append(violations, metadataViolations(r, res)...)
		if rawRe != nil && r.RawLine != "" {
			violations = append(violations, rawLineViolations(r, res, rawRe)...)
		}
	}

	sort.SliceStable(violations, func(i, j int) bool {
		if violations[i].File != violations[j].File {
			return violations[i].File < violations[j].File
		}
		return violations[i].Line < violations[j].Line
	})

	return &Result{
		Passed:         len(violations) == 0,
		Total:          total,
		ViolationCount: len(violations),
		Violations:     violations,
	}, nil
}

func metadataViolations(r marker.Record, res resolved) []Violation {
	var out []Violation

	if res.noBareTags && strings.TrimSpace(r.Message) == "" {
		out = append(out, Violation{
			Rule:       RuleNoBareTags,
			Message:    fmt.Sprintf("Empty %s message", r.Tag),
			File:       r.File,
			Line:       r.Line,
			Suggestion: fmt.Sprintf("%s: <description>", r.Tag),
		})
	}

	if res.maxMessageLength != nil && len(r.Message) > *res.maxMessageLength {
		out = append(out, Violation{
			Rule:       RuleMaxMessageLength,
			Message:    fmt.Sprintf("Message length (%d) exceeds maximum (%d)", len(r.Message), *res.maxMessageLength),
			File:       r.File,
			Line:       r.Line,
			Suggestion: "Shorten the message or raise max_message_length",
		})
	}

	if tagListed(res.requireAuthor, r.Tag) && r.Author == "" {
		out = append(out, Violation{
			Rule:       RuleRequireAuthor,
			Message:    fmt.Sprintf("Missing author for %s comment", r.Tag),
			File:       r.File,
			Line:       r.Line,
			Suggestion: fmt.Sprintf("%s(author): <message>", r.Tag),
		})
	}

	if tagListed(res.requireIssueRef, r.Tag) && r.IssueRef == "" {
		out = append(out, Violation{
			Rule:       RuleRequireIssueRef,
			Message:    fmt.Sprintf("Missing issue reference for %s comment", r.Tag),
			File:       r.File,
			Line:       r.Line,
			Suggestion: "Add an issue reference (#123 or JIRA-456)",
		})
	}

	return out
}

// rawLineViolations checks how the marker was written in source. Only
// the first tag occurrence inside a comment is examined; later mentions
// of a tag word in the same line are prose.
func rawLineViolations(r marker.Record, res resolved, rawRe *regexp.Regexp) []Violation {
	var out []Violation

	for _, m := range rawRe.FindAllStringSubmatchIndex(r.RawLine, -1) {
		tagStart, tagEnd := m[2], m[3]
		if !marker.InComment(r.RawLine, tagStart) {
			continue
		}

		rawTag := r.RawLine[tagStart:tagEnd]
		expected := string(r.Tag)
		if res.uppercaseTag && rawTag != expected {
			out = append(out, Violation{
				Rule:       RuleUppercaseTag,
				Message:    fmt.Sprintf("Tag %q should be uppercase %q", rawTag, expected),
				File:       r.File,
				Line:       r.Line,
				Suggestion: fmt.Sprintf("Change %q to %q", rawTag, expected),
			})
		}

		if res.requireColon && m[4] == -1 {
			out = append(out, Violation{
				Rule:       RuleRequireColon,
				Message:    fmt.Sprintf("Missing colon after %s tag", r.Tag),
				File:       r.File,
				Line:       r.Line,
				Suggestion: fmt.Sprintf("%s: <message>", r.Tag),
			})
		}
		break
	}

	return out
}

// rawTagPattern matches a written tag with its optional paren group and
// captures whether a colon follows.
func rawTagPattern(tags []string) (*regexp.Regexp, error) {
	escaped := make([]string, len(tags))
	for i, t := range tags {
		escaped[i] = regexp.QuoteMeta(t)
	}
	return regexp.Compile(fmt.Sprintf(`(?i)\b(%s)(?:\([^)]*\))?(:)?`, strings.Join(escaped, "|")))
}

func tagListed(list []string, tag marker.Tag) bool {
	for _, t := range list {
		if strings.EqualFold(t, string(tag)) {
			return true
		}
	}
	return false
}
