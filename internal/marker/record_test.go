package marker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	tag, err := ParseTag("fixme")
	require.NoError(t, err)
	assert.Equal(t, TagFixme, tag)

	tag, err = ParseTag("TODO")
	require.NoError(t, err)
	assert.Equal(t, TagTodo, tag)

	_, err = ParseTag("WIP")
	assert.Error(t, err, "the tag set is closed")
}

func TestTagRankOrdering(t *testing.T) {
	// NOTE is the mildest tag, BUG the most alarming.
	assert.Less(t, TagNote.Rank(), TagTodo.Rank())
	assert.Less(t, TagTodo.Rank(), TagHack.Rank())
	assert.Less(t, TagHack.Rank(), TagXxx.Rank())
	assert.Less(t, TagXxx.Rank(), TagFixme.Rank())
	assert.Less(t, TagFixme.Rank(), TagBug.Rank())
}

func TestSeverityMapping(t *testing.T) {
	assert.Equal(t, SeverityError, SeverityOf(Record{Tag: TagBug, Priority: PriorityNormal}))
	assert.Equal(t, SeverityError, SeverityOf(Record{Tag: TagFixme, Priority: PriorityNormal}))
	assert.Equal(t, SeverityWarning, SeverityOf(Record{Tag: TagTodo, Priority: PriorityNormal}))
	assert.Equal(t, SeverityWarning, SeverityOf(Record{Tag: TagHack, Priority: PriorityNormal}))
	assert.Equal(t, SeverityWarning, SeverityOf(Record{Tag: TagXxx, Priority: PriorityNormal}))
	assert.Equal(t, SeverityNotice, SeverityOf(Record{Tag: TagNote, Priority: PriorityNormal}))

	// Urgent priority escalates any tag to error.
	assert.Equal(t, SeverityError, SeverityOf(Record{Tag: TagNote, Priority: PriorityUrgent}))

	assert.Equal(t, "notice", SeverityNotice.GitHubLevel())
	assert.Equal(t, "note", SeverityNotice.SARIFLevel())
	assert.Equal(t, "error", SeverityError.SARIFLevel())
}

func TestMatchKeyNormalizesMessage(t *testing.T) {
	a := Record{File: "a.go", Line: 10, Tag: TagTodo, Message: "Fix The Parser"}
	b := Record{File: "a.go", Line: 99, Tag: TagTodo, Message: "  fix the parser  "}

	assert.Equal(t, a.MatchKey(), b.MatchKey(), "key ignores case, whitespace, and line")

	c := Record{File: "b.go", Line: 10, Tag: TagTodo, Message: "Fix The Parser"}
	assert.NotEqual(t, a.MatchKey(), c.MatchKey(), "key includes the file path")

	d := Record{File: "a.go", Line: 10, Tag: TagFixme, Message: "Fix The Parser"}
	assert.NotEqual(t, a.MatchKey(), d.MatchKey(), "key includes the tag")
}

func TestFieldsEqual(t *testing.T) {
	base := Record{File: "a.go", Line: 5, Tag: TagTodo, Message: "x", Author: "alice", Priority: PriorityNormal}

	same := base
	same.Line = 42
	assert.True(t, base.FieldsEqual(same), "line drift alone is not a modification")

	author := base
	author.Author = "bob"
	assert.False(t, base.FieldsEqual(author))

	prio := base
	prio.Priority = PriorityUrgent
	assert.False(t, base.FieldsEqual(prio))

	ref := base
	ref.IssueRef = "#12"
	assert.False(t, base.FieldsEqual(ref))

	sup := base
	sup.Suppressed = true
	assert.False(t, base.FieldsEqual(sup), "a suppression toggle counts as a modification")

	dl := base
	d := Deadline{Year: 2025, Month: 6, Day: 1}
	dl.Deadline = &d
	assert.False(t, base.FieldsEqual(dl))

	dlBoth := base
	dlBoth.Deadline = &Deadline{Year: 2025, Month: 6, Day: 1}
	dlSame := base
	dlSame.Deadline = &Deadline{Year: 2025, Month: 6, Day: 1}
	assert.True(t, dlBoth.FieldsEqual(dlSame), "equal deadlines compare by value, not pointer")
}

func TestRecordJSONShape(t *testing.T) {
	d := Deadline{Year: 2025, Month: 3, Day: 31}
	rec := Record{
		File:     "pkg/parser.go",
		Line:     12,
		Tag:      TagFixme,
		Message:  "broken",
		Author:   "alice",
		IssueRef: "#42",
		Priority: PriorityHigh,
		Deadline: &d,
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "FIXME", m["tag"])
	assert.Equal(t, "high", m["priority"])
	assert.Equal(t, "2025-03-31", m["deadline"], "deadline serializes as its resolved date string")
	assert.NotContains(t, m, "suppressed", "false suppression is omitted")
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("URGENT")
	require.NoError(t, err)
	assert.Equal(t, PriorityUrgent, p)

	_, err = ParsePriority("critical")
	assert.Error(t, err)
}
