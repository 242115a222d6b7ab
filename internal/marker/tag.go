package marker

import (
	"fmt"
	"strings"
)

// Tag identifies the kind of a marker comment. Tags are stored in their
// normalized uppercase form regardless of how they were written in source.
type Tag string

const (
	TagTodo  Tag = "TODO"
	TagFixme Tag = "FIXME"
	TagHack  Tag = "HACK"
	TagXxx   Tag = "XXX"
	TagBug   Tag = "BUG"
	TagNote  Tag = "NOTE"
)

// BuiltinTags lists the recognized tags in their default scan order.
func BuiltinTags() []string {
	return []string{"TODO", "FIXME", "HACK", "XXX", "BUG", "NOTE"}
}

// ParseTag normalizes a raw tag string to its canonical Tag value.
// Unknown tags are rejected; the scan set is closed even when the
// configured tag list contains extra entries.
func ParseTag(s string) (Tag, error) {
	switch strings.ToUpper(s) {
	case "TODO":
		return TagTodo, nil
	case "FIXME":
		return TagFixme, nil
	case "HACK":
		return TagHack, nil
	case "XXX":
		return TagXxx, nil
	case "BUG":
		return TagBug, nil
	case "NOTE":
		return TagNote, nil
	}
	return "", fmt.Errorf("unknown tag: %q", s)
}

// Rank orders tags by how alarming they are. Higher is worse.
func (t Tag) Rank() int {
	switch t {
	case TagNote:
		return 0
	case TagTodo:
		return 1
	case TagHack:
		return 2
	case TagXxx:
		return 3
	case TagFixme:
		return 4
	case TagBug:
		return 5
	}
	return 0
}

// IsValid reports whether t is one of the recognized tags.
func (t Tag) IsValid() bool {
	switch t {
	case TagTodo, TagFixme, TagHack, TagXxx, TagBug, TagNote:
		return true
	}
	return false
}

func (t Tag) String() string {
	return string(t)
}

// Severity is the CI-facing level derived from a record's tag and priority.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNotice  Severity = "notice"
)

// SeverityOf maps a record to its reporting severity. Urgent priority
// always escalates to error regardless of tag.
func SeverityOf(r Record) Severity {
	if r.Priority == PriorityUrgent {
		return SeverityError
	}
	switch r.Tag {
	case TagBug, TagFixme:
		return SeverityError
	case TagNote:
		return SeverityNotice
	}
	return SeverityWarning
}

// GitHubLevel returns the workflow-command level for this severity.
func (s Severity) GitHubLevel() string {
	return string(s)
}

// SARIFLevel returns the SARIF result level for this severity. SARIF has
// no "notice" level; it uses "note".
func (s Severity) SARIFLevel() string {
	if s == SeverityNotice {
		return "note"
	}
	return string(s)
}
