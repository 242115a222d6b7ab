package marker

import (
	"fmt"
	"strings"
)

// Priority is derived from the bang markers after a tag: none, "!", "!!".
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank orders priorities for sorting. Higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 2
	case PriorityHigh:
		return 1
	}
	return 0
}

func (p Priority) String() string {
	return string(p)
}

// ParsePriority accepts the user-facing priority names.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(s) {
	case "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "urgent":
		return PriorityUrgent, nil
	}
	return "", fmt.Errorf("unknown priority: %q (want normal, high, or urgent)", s)
}

// Record is one recognized marker comment.
//
// Suppressed records are still produced; whether to show them is a policy
// decision made by consumers, not by the extraction pipeline. Bare records
// (empty message) are likewise surfaced rather than dropped so lint can
// decide what to do with them.
type Record struct {
	File       string    `json:"file"`
	Line       int       `json:"line"`
	Tag        Tag       `json:"tag"`
	Message    string    `json:"message"`
	Author     string    `json:"author,omitempty"`
	IssueRef   string    `json:"issue_ref,omitempty"`
	Priority   Priority  `json:"priority"`
	Deadline   *Deadline `json:"deadline,omitempty"`
	Suppressed bool      `json:"suppressed,omitempty"`
	Bare       bool      `json:"bare,omitempty"`
	RawLine    string    `json:"raw_line,omitempty"`
}

// MatchKey is the correlation key used when diffing two scans. It excludes
// the line number so unrelated edits above a marker do not break the match,
// and it excludes author, priority, issue ref and deadline so edits to
// those fields classify as modifications of the same marker.
func (r Record) MatchKey() string {
	normalized := strings.ToLower(strings.TrimSpace(r.Message))
	return r.File + ":" + string(r.Tag) + ":" + normalized
}

// FieldsEqual reports whether two records agree on every field the match
// key ignores except the line number. A pair that differs only by line is
// the same marker after drift, not a modification.
func (r Record) FieldsEqual(other Record) bool {
	if r.Author != other.Author || r.IssueRef != other.IssueRef ||
		r.Priority != other.Priority || r.Suppressed != other.Suppressed ||
		r.Bare != other.Bare {
		return false
	}
	if (r.Deadline == nil) != (other.Deadline == nil) {
		return false
	}
	if r.Deadline != nil && *r.Deadline != *other.Deadline {
		return false
	}
	return true
}
