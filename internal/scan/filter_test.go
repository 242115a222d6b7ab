package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todoscan/todoscan/internal/marker"
)

func makeRecord(file string, line int, tag marker.Tag, message string) marker.Record {
	return marker.Record{
		File:     file,
		Line:     line,
		Tag:      tag,
		Message:  message,
		Priority: marker.PriorityNormal,
	}
}

func TestApplyTagFilter(t *testing.T) {
	records := []marker.Record{
		makeRecord("a.go", 1, marker.TagTodo, "one"),
		makeRecord("b.go", 1, marker.TagFixme, "two"),
		makeRecord("c.go", 1, marker.TagHack, "three"),
	}

	out, err := Apply(records, Filters{Tags: []string{"todo", "HACK"}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, marker.TagTodo, out[0].Tag)
	assert.Equal(t, marker.TagHack, out[1].Tag)
}

func TestApplyUnknownTagsMatchNothing(t *testing.T) {
	records := []marker.Record{makeRecord("a.go", 1, marker.TagTodo, "one")}

	out, err := Apply(records, Filters{Tags: []string{"BOGUS"}})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestApplyPriorityFilter(t *testing.T) {
	high := makeRecord("b.go", 1, marker.TagTodo, "two")
	high.Priority = marker.PriorityHigh
	urgent := makeRecord("c.go", 1, marker.TagTodo, "three")
	urgent.Priority = marker.PriorityUrgent
	records := []marker.Record{makeRecord("a.go", 1, marker.TagTodo, "one"), high, urgent}

	out, err := Apply(records, Filters{Priorities: []marker.Priority{marker.PriorityHigh}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "b.go", out[0].File)
}

func TestApplyAuthorFilter(t *testing.T) {
	alice := makeRecord("a.go", 1, marker.TagTodo, "one")
	alice.Author = "alice"
	bob := makeRecord("b.go", 1, marker.TagTodo, "two")
	bob.Author = "bob"
	anon := makeRecord("c.go", 1, marker.TagTodo, "three")
	records := []marker.Record{alice, bob, anon}

	out, err := Apply(records, Filters{Author: "alice"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "alice", out[0].Author)
}

func TestApplyPathGlob(t *testing.T) {
	records := []marker.Record{
		makeRecord("src/main.go", 1, marker.TagTodo, "one"),
		makeRecord("src/lib.go", 1, marker.TagTodo, "two"),
		makeRecord("tests/main_test.go", 1, marker.TagTodo, "three"),
		makeRecord("src/nested/deep.go", 1, marker.TagTodo, "four"),
	}

	out, err := Apply(records, Filters{PathGlob: "src/*.go"})
	require.NoError(t, err)
	require.Len(t, out, 2)

	out, err = Apply(records, Filters{PathGlob: "src/**"})
	require.NoError(t, err)
	require.Len(t, out, 3)
}

func TestApplyCombinedFilters(t *testing.T) {
	match := makeRecord("src/main.go", 1, marker.TagTodo, "one")
	match.Author = "alice"
	match.Priority = marker.PriorityHigh

	wrongTag := makeRecord("src/lib.go", 1, marker.TagFixme, "two")
	wrongTag.Author = "alice"
	wrongTag.Priority = marker.PriorityHigh

	wrongAuthor := makeRecord("src/util.go", 1, marker.TagTodo, "three")
	wrongAuthor.Author = "bob"
	wrongAuthor.Priority = marker.PriorityHigh

	wrongPath := makeRecord("tests/x.go", 1, marker.TagTodo, "four")
	wrongPath.Author = "alice"
	wrongPath.Priority = marker.PriorityHigh

	out, err := Apply(
		[]marker.Record{match, wrongTag, wrongAuthor, wrongPath},
		Filters{
			Tags:       []string{"TODO"},
			Author:     "alice",
			PathGlob:   "src/**",
			Priorities: []marker.Priority{marker.PriorityHigh},
		},
	)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "src/main.go", out[0].File)
}

func TestApplyEmptyFiltersKeepEverything(t *testing.T) {
	records := []marker.Record{
		makeRecord("a.go", 1, marker.TagTodo, "one"),
		makeRecord("b.go", 1, marker.TagFixme, "two"),
	}

	out, err := Apply(records, Filters{})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestSortRecordsByFile(t *testing.T) {
	records := []marker.Record{
		makeRecord("b.go", 5, marker.TagTodo, "x"),
		makeRecord("a.go", 9, marker.TagTodo, "y"),
		makeRecord("a.go", 2, marker.TagTodo, "z"),
	}

	require.NoError(t, SortRecords(records, "file"))
	assert.Equal(t, "a.go", records[0].File)
	assert.Equal(t, 2, records[0].Line)
	assert.Equal(t, 9, records[1].Line)
	assert.Equal(t, "b.go", records[2].File)
}

func TestSortRecordsByTagSeverity(t *testing.T) {
	records := []marker.Record{
		makeRecord("a.go", 1, marker.TagNote, "low"),
		makeRecord("b.go", 1, marker.TagBug, "highest"),
		makeRecord("c.go", 1, marker.TagTodo, "mid"),
	}

	require.NoError(t, SortRecords(records, "tag"))
	assert.Equal(t, marker.TagBug, records[0].Tag)
	assert.Equal(t, marker.TagTodo, records[1].Tag)
	assert.Equal(t, marker.TagNote, records[2].Tag)
}

func TestSortRecordsByPriority(t *testing.T) {
	urgent := makeRecord("c.go", 1, marker.TagTodo, "now")
	urgent.Priority = marker.PriorityUrgent
	high := makeRecord("b.go", 1, marker.TagTodo, "soon")
	high.Priority = marker.PriorityHigh
	records := []marker.Record{makeRecord("a.go", 1, marker.TagTodo, "later"), urgent, high}

	require.NoError(t, SortRecords(records, "priority"))
	assert.Equal(t, marker.PriorityUrgent, records[0].Priority)
	assert.Equal(t, marker.PriorityHigh, records[1].Priority)
	assert.Equal(t, marker.PriorityNormal, records[2].Priority)
}

func TestSortRecordsUnknownKey(t *testing.T) {
	assert.Error(t, SortRecords(nil, "age"))
}

func TestSortRecordsDefaultKeyIsFile(t *testing.T) {
	records := []marker.Record{
		makeRecord("b.go", 1, marker.TagTodo, "x"),
		makeRecord("a.go", 1, marker.TagTodo, "y"),
	}
	require.NoError(t, SortRecords(records, ""))
	assert.Equal(t, "a.go", records[0].File)
}
