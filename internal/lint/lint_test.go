package lint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todoscan/todoscan/internal/config"
	"github.com/todoscan/todoscan/internal/marker"
)

func rec(file string, line int, tag, message, raw string) marker.Record {
	return marker.Record{
		File:     file,
		Line:     line,
		Tag:      marker.Tag(tag),
		Message:  message,
		Priority: marker.PriorityNormal,
		RawLine:  raw,
	}
}

func intPtr(n int) *int { return &n }

// quietConfig turns off the rules that default on, so tests can exercise
// one rule at a time.
func quietConfig() config.Config {
	cfg := config.Default()
	cfg.Lint.NoBareTags = false
	cfg.Lint.UppercaseTag = false
	cfg.Lint.RequireColon = false
	return cfg
}

func runLint(t *testing.T, records []marker.Record, cfg config.Config, o Overrides) *Result {
	t.Helper()

	res, err := Run(records, cfg, o)
	require.NoError(t, err)
	return res
}

func TestNoBareTagsDetectsEmptyMessage(t *testing.T) {
	records := []marker.Record{rec("a.go", 1, "TODO", "", "")}

	res := runLint(t, records, config.Default(), Overrides{})

	require.False(t, res.Passed)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, RuleNoBareTags, res.Violations[0].Rule)
}

func TestNoBareTagsFlagsWhitespaceOnlyMessage(t *testing.T) {
	records := []marker.Record{rec("a.go", 1, "TODO", "   ", "")}

	res := runLint(t, records, config.Default(), Overrides{})

	require.False(t, res.Passed)
	assert.Equal(t, RuleNoBareTags, res.Violations[0].Rule)
}

func TestNoBareTagsAllowsRealMessage(t *testing.T) {
	records := []marker.Record{rec("a.go", 1, "TODO", "real message", "")}

	res := runLint(t, records, config.Default(), Overrides{})

	assert.True(t, res.Passed)
}

func TestNoBareTagsSuggestionNamesTag(t *testing.T) {
	records := []marker.Record{rec("a.go", 1, "FIXME", "", "")}

	res := runLint(t, records, config.Default(), Overrides{})

	require.Len(t, res.Violations, 1)
	assert.Contains(t, res.Violations[0].Suggestion, "FIXME")
	assert.Contains(t, res.Violations[0].Suggestion, "<description>")
}

func TestMaxMessageLength(t *testing.T) {
	records := []marker.Record{rec("a.go", 1, "TODO", "this is a long message", "")}

	res := runLint(t, records, quietConfig(), Overrides{MaxMessageLength: intPtr(10)})

	require.False(t, res.Passed)
	assert.Equal(t, RuleMaxMessageLength, res.Violations[0].Rule)
	assert.Contains(t, res.Violations[0].Message, "22")
	assert.Contains(t, res.Violations[0].Message, "10")
}

func TestMaxMessageLengthBoundaryPasses(t *testing.T) {
	records := []marker.Record{rec("a.go", 1, "TODO", strings.Repeat("x", 10), "")}

	res := runLint(t, records, quietConfig(), Overrides{MaxMessageLength: intPtr(10)})

	assert.True(t, res.Passed, "length equal to the maximum is allowed")
}

func TestRequireAuthorMissing(t *testing.T) {
	records := []marker.Record{rec("a.go", 1, "TODO", "no author", "")}

	res := runLint(t, records, quietConfig(), Overrides{RequireAuthor: []string{"TODO"}})

	require.False(t, res.Passed)
	assert.Equal(t, RuleRequireAuthor, res.Violations[0].Rule)
}

func TestRequireAuthorPresent(t *testing.T) {
	r := rec("a.go", 1, "TODO", "has author", "")
	r.Author = "alice"

	res := runLint(t, []marker.Record{r}, quietConfig(), Overrides{RequireAuthor: []string{"TODO"}})

	assert.True(t, res.Passed)
}

func TestRequireAuthorIgnoresUnlistedTags(t *testing.T) {
	records := []marker.Record{rec("a.go", 1, "NOTE", "just a note", "")}

	res := runLint(t, records, quietConfig(), Overrides{RequireAuthor: []string{"TODO"}})

	assert.True(t, res.Passed)
}

func TestRequireAuthorMatchesTagCaseInsensitively(t *testing.T) {
	records := []marker.Record{rec("a.go", 1, "TODO", "no author", "")}

	res := runLint(t, records, quietConfig(), Overrides{RequireAuthor: []string{"todo"}})

	require.False(t, res.Passed)
	assert.Equal(t, RuleRequireAuthor, res.Violations[0].Rule)
}

func TestRequireIssueRef(t *testing.T) {
	records := []marker.Record{rec("a.go", 1, "FIXME", "no ref", "")}

	res := runLint(t, records, quietConfig(), Overrides{RequireIssueRef: []string{"FIXME"}})

	require.False(t, res.Passed)
	assert.Equal(t, RuleRequireIssueRef, res.Violations[0].Rule)

	withRef := rec("a.go", 1, "FIXME", "see #42", "")
	withRef.IssueRef = "#42"
	res = runLint(t, []marker.Record{withRef}, quietConfig(), Overrides{RequireIssueRef: []string{"FIXME"}})
	assert.True(t, res.Passed)
}

func TestUppercaseTagFlagsLowercaseWriting(t *testing.T) {
	records := []marker.Record{rec("a.go", 3, "TODO", "fix this", "// todo: fix this")}
	cfg := quietConfig()
	cfg.Lint.UppercaseTag = true

	res := runLint(t, records, cfg, Overrides{})

	require.False(t, res.Passed)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, RuleUppercaseTag, res.Violations[0].Rule)
	assert.Contains(t, res.Violations[0].Message, `"todo"`)
	assert.Contains(t, res.Violations[0].Message, `"TODO"`)
}

func TestUppercaseTagPassesForUppercase(t *testing.T) {
	records := []marker.Record{rec("a.go", 3, "TODO", "fix this", "// TODO: fix this")}
	cfg := quietConfig()
	cfg.Lint.UppercaseTag = true

	res := runLint(t, records, cfg, Overrides{})

	assert.True(t, res.Passed)
}

func TestRequireColonMissing(t *testing.T) {
	records := []marker.Record{rec("a.go", 3, "TODO", "fix this", "// TODO fix this")}
	cfg := quietConfig()
	cfg.Lint.RequireColon = true

	res := runLint(t, records, cfg, Overrides{})

	require.False(t, res.Passed)
	assert.Equal(t, RuleRequireColon, res.Violations[0].Rule)
}

func TestRequireColonPresent(t *testing.T) {
	records := []marker.Record{rec("a.go", 3, "TODO", "fix this", "// TODO: fix this")}
	cfg := quietConfig()
	cfg.Lint.RequireColon = true

	res := runLint(t, records, cfg, Overrides{})

	assert.True(t, res.Passed)
}

func TestRawRulesSkipTagOutsideComment(t *testing.T) {
	raw := `s := "todo is just data here"`
	records := []marker.Record{rec("a.go", 3, "TODO", "real marker", raw)}
	cfg := quietConfig()
	cfg.Lint.UppercaseTag = true
	cfg.Lint.RequireColon = true

	res := runLint(t, records, cfg, Overrides{})

	assert.True(t, res.Passed, "a tag word in a string literal is not a marker")
}

func TestRawRulesCheckOnlyFirstInCommentMatch(t *testing.T) {
	records := []marker.Record{rec("a.go", 3, "TODO", "fix the todo handler", "// todo: fix the todo handler")}
	cfg := quietConfig()
	cfg.Lint.UppercaseTag = true

	res := runLint(t, records, cfg, Overrides{})

	require.Len(t, res.Violations, 1, "the prose mention after the tag is not checked")
}

func TestRawRulesSkippedWithoutRawLine(t *testing.T) {
	records := []marker.Record{rec("a.go", 3, "TODO", "fix this", "")}

	res := runLint(t, records, config.Default(), Overrides{})

	assert.True(t, res.Passed)
}

func TestOverrideEnablesRuleDisabledInConfig(t *testing.T) {
	records := []marker.Record{rec("a.go", 1, "TODO", "", "")}

	res := runLint(t, records, quietConfig(), Overrides{NoBareTags: true})

	require.False(t, res.Passed)
	assert.Equal(t, RuleNoBareTags, res.Violations[0].Rule)
}

func TestConfigListsUsedWhenOverrideEmpty(t *testing.T) {
	cfg := quietConfig()
	cfg.Lint.RequireAuthor = []string{"TODO"}
	records := []marker.Record{rec("a.go", 1, "TODO", "no author", "")}

	res := runLint(t, records, cfg, Overrides{})

	require.False(t, res.Passed)
	assert.Equal(t, RuleRequireAuthor, res.Violations[0].Rule)
}

func TestOverrideListReplacesConfigList(t *testing.T) {
	cfg := quietConfig()
	cfg.Lint.RequireAuthor = []string{"TODO"}
	records := []marker.Record{
		rec("a.go", 1, "TODO", "no author needed now", ""),
		rec("b.go", 2, "FIXME", "author needed here", ""),
	}

	res := runLint(t, records, cfg, Overrides{RequireAuthor: []string{"FIXME"}})

	require.Len(t, res.Violations, 1)
	assert.Equal(t, "b.go", res.Violations[0].File)
}

func TestMultipleViolationsOnOneRecord(t *testing.T) {
	records := []marker.Record{rec("a.go", 1, "TODO", "", "")}
	cfg := quietConfig()
	cfg.Lint.NoBareTags = true

	res := runLint(t, records, cfg, Overrides{RequireAuthor: []string{"TODO"}})

	assert.False(t, res.Passed)
	assert.Equal(t, 2, res.ViolationCount)
}

func TestViolationsSortedByFileThenLine(t *testing.T) {
	records := []marker.Record{
		rec("b.go", 5, "TODO", "", ""),
		rec("a.go", 10, "TODO", "", ""),
		rec("a.go", 2, "TODO", "", ""),
	}

	res := runLint(t, records, config.Default(), Overrides{})

	require.Len(t, res.Violations, 3)
	assert.Equal(t, "a.go", res.Violations[0].File)
	assert.Equal(t, 2, res.Violations[0].Line)
	assert.Equal(t, "a.go", res.Violations[1].File)
	assert.Equal(t, 10, res.Violations[1].Line)
	assert.Equal(t, "b.go", res.Violations[2].File)
}

func TestSuppressedRecordsAreSkipped(t *testing.T) {
	r := rec("a.go", 1, "TODO", "", "// todo")
	r.Suppressed = true

	res := runLint(t, []marker.Record{r}, config.Default(), Overrides{})

	assert.True(t, res.Passed)
	assert.Equal(t, 0, res.Total)
}

func TestEmptyScanPasses(t *testing.T) {
	res := runLint(t, nil, config.Default(), Overrides{})

	assert.True(t, res.Passed)
	assert.Equal(t, 0, res.Total)
	assert.Equal(t, 0, res.ViolationCount)
}
