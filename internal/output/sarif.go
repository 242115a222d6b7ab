package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"

	"github.com/todoscan/todoscan/internal/blame"
	"github.com/todoscan/todoscan/internal/check"
	"github.com/todoscan/todoscan/internal/diffscan"
	"github.com/todoscan/todoscan/internal/lint"
	"github.com/todoscan/todoscan/internal/marker"
	"github.com/todoscan/todoscan/internal/version"
)

const sarifSchema = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json"

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool        `json:"tool"`
	AutomationDetails *sarifAutomation `json:"automationDetails,omitempty"`
	Results           []sarifResult    `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifAutomation struct {
	GUID string `json:"guid"`
}

type sarifRule struct {
	ID               string    `json:"id"`
	ShortDescription sarifText `json:"shortDescription"`
}

type sarifText struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID     string          `json:"ruleId"`
	Level      string          `json:"level"`
	Message    sarifText       `json:"message"`
	Locations  []sarifLocation `json:"locations,omitempty"`
	Properties map[string]any  `json:"properties,omitempty"`
	Fixes      []sarifFix      `json:"fixes,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           sarifRegion   `json:"region"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

type sarifFix struct {
	Description sarifText `json:"description"`
}

// sarifEnvelope wraps rules and results in a single-run 2.1.0 log. Each
// run gets a fresh automation GUID so uploads stay distinguishable.
func sarifEnvelope(rules []sarifRule, results []sarifResult) sarifLog {
	if rules == nil {
		rules = []sarifRule{}
	}
	if results == nil {
		results = []sarifResult{}
	}
	return sarifLog{
		Schema:  sarifSchema,
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool:              sarifTool{Driver: sarifDriver{Name: "todoscan", Version: version.Version, Rules: rules}},
			AutomationDetails: &sarifAutomation{GUID: uuid.NewString()},
			Results:           results,
		}},
	}
}

// tagRules builds one rule per distinct tag, sorted by name.
func tagRules(tags map[marker.Tag]bool) []sarifRule {
	names := make([]string, 0, len(tags))
	for t := range tags {
		names = append(names, string(t))
	}
	sort.Strings(names)

	rules := make([]sarifRule, 0, len(names))
	for _, n := range names {
		rules = append(rules, sarifRule{
			ID:               "todoscan/" + n,
			ShortDescription: sarifText{Text: n + " comment"},
		})
	}
	return rules
}

func recordLocation(file string, line int) []sarifLocation {
	return []sarifLocation{{PhysicalLocation: sarifPhysical{
		ArtifactLocation: sarifArtifact{URI: file},
		Region:           sarifRegion{StartLine: line},
	}}}
}

func recordResult(r marker.Record) sarifResult {
	res := sarifResult{
		RuleID:    "todoscan/" + string(r.Tag),
		Level:     marker.SeverityOf(r).SARIFLevel(),
		Message:   sarifText{Text: plainItem(r)},
		Locations: recordLocation(r.File, r.Line),
	}
	if r.Deadline != nil {
		res.Properties = map[string]any{"deadline": r.Deadline.String()}
	}
	return res
}

// SARIFList writes records as a SARIF log with one rule per tag. Search
// output shares this shape.
func SARIFList(w io.Writer, records []marker.Record) error {
	tags := make(map[marker.Tag]bool)
	results := make([]sarifResult, 0, len(records))
	for _, r := range records {
		tags[r.Tag] = true
		results = append(results, recordResult(r))
	}
	return JSON(w, sarifEnvelope(tagRules(tags), results))
}

// SARIFDiff writes diff entries with a diffStatus property. Removed
// entries downgrade to note and modified ones to warning, since neither
// is an outstanding finding at its own severity.
func SARIFDiff(w io.Writer, res *diffscan.Result) error {
	tags := make(map[marker.Tag]bool)
	results := make([]sarifResult, 0, len(res.Entries))
	for _, e := range res.Entries {
		tags[e.Record.Tag] = true
		sr := recordResult(e.Record)
		switch e.Status {
		case diffscan.StatusRemoved:
			sr.Level = "note"
		case diffscan.StatusModified:
			sr.Level = "warning"
		}
		if sr.Properties == nil {
			sr.Properties = map[string]any{}
		}
		sr.Properties["diffStatus"] = string(e.Status)
		results = append(results, sr)
	}
	return JSON(w, sarifEnvelope(tagRules(tags), results))
}

// SARIFBlame writes each entry with its attribution under a blame
// property.
func SARIFBlame(w io.Writer, res *blame.Result) error {
	tags := make(map[marker.Tag]bool)
	results := make([]sarifResult, 0, len(res.Entries))
	for _, e := range res.Entries {
		tags[e.Record.Tag] = true
		sr := recordResult(e.Record)
		if sr.Properties == nil {
			sr.Properties = map[string]any{}
		}
		sr.Properties["blame"] = map[string]any{
			"author":  e.Blame.Author,
			"email":   e.Blame.Email,
			"date":    e.Blame.Date,
			"ageDays": e.Blame.AgeDays,
			"commit":  e.Blame.Commit,
			"stale":   e.Stale,
		}
		results = append(results, sr)
	}
	return JSON(w, sarifEnvelope(tagRules(tags), results))
}

// SARIFCheck writes one error result per violation, or a single passing
// summary result when the gate held.
func SARIFCheck(w io.Writer, res *check.Result) error {
	if res.Passed {
		rule := sarifRule{ID: "todoscan/check/summary", ShortDescription: sarifText{Text: "Check summary"}}
		result := sarifResult{
			RuleID:  rule.ID,
			Level:   "note",
			Message: sarifText{Text: fmt.Sprintf("All checks passed (%d items total)", res.Total)},
		}
		return JSON(w, sarifEnvelope([]sarifRule{rule}, []sarifResult{result}))
	}

	seen := make(map[check.Rule]bool)
	results := make([]sarifResult, 0, len(res.Violations))
	for _, v := range res.Violations {
		seen[v.Rule] = true
		sr := sarifResult{
			RuleID:  "todoscan/check/" + string(v.Rule),
			Level:   "error",
			Message: sarifText{Text: v.Message},
		}
		if v.File != "" {
			sr.Locations = recordLocation(v.File, v.Line)
		}
		results = append(results, sr)
	}

	names := make([]string, 0, len(seen))
	for r := range seen {
		names = append(names, string(r))
	}
	sort.Strings(names)
	rules := make([]sarifRule, 0, len(names))
	for _, n := range names {
		rules = append(rules, sarifRule{
			ID:               "todoscan/check/" + n,
			ShortDescription: sarifText{Text: n + " check rule"},
		})
	}

	return JSON(w, sarifEnvelope(rules, results))
}

// SARIFLint writes one error result per violation, carrying suggestions
// as fixes, or a single passing summary result.
func SARIFLint(w io.Writer, res *lint.Result) error {
	if res.Passed {
		rule := sarifRule{ID: "todoscan/lint/summary", ShortDescription: sarifText{Text: "Lint summary"}}
		result := sarifResult{
			RuleID:  rule.ID,
			Level:   "note",
			Message: sarifText{Text: fmt.Sprintf("All lint checks passed (%d items)", res.Total)},
		}
		return JSON(w, sarifEnvelope([]sarifRule{rule}, []sarifResult{result}))
	}

	seen := make(map[lint.Rule]bool)
	results := make([]sarifResult, 0, len(res.Violations))
	for _, v := range res.Violations {
		seen[v.Rule] = true
		sr := sarifResult{
			RuleID:    "todoscan/lint/" + string(v.Rule),
			Level:     "error",
			Message:   sarifText{Text: v.Message},
			Locations: recordLocation(v.File, v.Line),
		}
		if v.Suggestion != "" {
			sr.Fixes = []sarifFix{{Description: sarifText{Text: v.Suggestion}}}
		}
		results = append(results, sr)
	}

	names := make([]string, 0, len(seen))
	for r := range seen {
		names = append(names, string(r))
	}
	sort.Strings(names)
	rules := make([]sarifRule, 0, len(names))
	for _, n := range names {
		rules = append(rules, sarifRule{
			ID:               "todoscan/lint/" + n,
			ShortDescription: sarifText{Text: n + " lint rule"},
		})
	}

	return JSON(w, sarifEnvelope(rules, results))
}
