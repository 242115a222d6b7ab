package diffscan

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todoscan/todoscan/internal/config"
	"github.com/todoscan/todoscan/internal/git"
	"github.com/todoscan/todoscan/internal/marker"
	"github.com/todoscan/todoscan/internal/scan"
)

func rec(file string, line int, tag, message string) marker.Record {
	return marker.Record{
		File:     file,
		Line:     line,
		Tag:      marker.Tag(tag),
		Message:  message,
		Priority: marker.PriorityNormal,
	}
}

func TestComputeEmptyScans(t *testing.T) {
	res := Compute(nil, nil, "HEAD")

	assert.Empty(t, res.Entries)
	assert.Equal(t, 0, res.AddedCount)
	assert.Equal(t, 0, res.RemovedCount)
	assert.Equal(t, 0, res.ModifiedCount)
	assert.Equal(t, "HEAD", res.BaseRef)
}

func TestComputeClassifiesAddedAndRemoved(t *testing.T) {
	base := []marker.Record{
		rec("a.go", 3, "TODO", "old task"),
		rec("a.go", 10, "FIXME", "keep"),
	}
	current := []marker.Record{
		rec("a.go", 12, "FIXME", "keep"),
		rec("a.go", 20, "TODO", "new task"),
	}

	res := Compute(base, current, "main")

	require.Len(t, res.Entries, 2)
	assert.Equal(t, 1, res.AddedCount)
	assert.Equal(t, 1, res.RemovedCount)
	assert.Equal(t, 0, res.ModifiedCount)

	// Sorted by line: the removed base marker at line 3 comes first.
	assert.Equal(t, StatusRemoved, res.Entries[0].Status)
	assert.Equal(t, "old task", res.Entries[0].Record.Message)
	assert.Equal(t, StatusAdded, res.Entries[1].Status)
	assert.Equal(t, "new task", res.Entries[1].Record.Message)
}

func TestComputeLineDriftIsNotReported(t *testing.T) {
	base := []marker.Record{rec("a.go", 5, "TODO", "refactor this")}
	current := []marker.Record{rec("a.go", 9, "TODO", "refactor this")}

	res := Compute(base, current, "HEAD")

	assert.Empty(t, res.Entries, "a marker that only moved is unchanged")
}

func TestComputeFieldEditIsModified(t *testing.T) {
	old := rec("a.go", 5, "TODO", "assign me")
	old.Author = "alice"
	now := rec("a.go", 7, "TODO", "assign me")
	now.Author = "bob"

	res := Compute([]marker.Record{old}, []marker.Record{now}, "HEAD")

	require.Len(t, res.Entries, 1)
	e := res.Entries[0]
	assert.Equal(t, StatusModified, e.Status)
	assert.Equal(t, "bob", e.Record.Author)
	require.NotNil(t, e.Old)
	assert.Equal(t, "alice", e.Old.Author)
	assert.Equal(t, 1, res.ModifiedCount)
}

func TestComputeSuppressionToggleIsModified(t *testing.T) {
	base := []marker.Record{rec("a.go", 5, "TODO", "silenced later")}
	now := rec("a.go", 5, "TODO", "silenced later")
	now.Suppressed = true

	res := Compute(base, []marker.Record{now}, "HEAD")

	require.Len(t, res.Entries, 1)
	assert.Equal(t, StatusModified, res.Entries[0].Status)
	assert.True(t, res.Entries[0].Record.Suppressed)
	require.NotNil(t, res.Entries[0].Old)
	assert.False(t, res.Entries[0].Old.Suppressed)
}

func TestComputeDuplicateMessagesPairByOccurrence(t *testing.T) {
	base := []marker.Record{
		rec("a.go", 5, "TODO", "x"),
		rec("a.go", 40, "TODO", "x"),
	}
	current := []marker.Record{
		rec("a.go", 5, "TODO", "x"),
		rec("a.go", 41, "TODO", "x"),
		rec("a.go", 60, "TODO", "x"),
	}

	res := Compute(base, current, "HEAD")

	require.Len(t, res.Entries, 1, "only the third occurrence is new")
	assert.Equal(t, StatusAdded, res.Entries[0].Status)
	assert.Equal(t, 60, res.Entries[0].Record.Line)
	assert.Equal(t, 0, res.RemovedCount)
	assert.Equal(t, 0, res.ModifiedCount)
}

func TestComputeDuplicatesPairInLineOrder(t *testing.T) {
	first := rec("a.go", 5, "TODO", "x")
	first.Author = "alice"
	second := rec("a.go", 40, "TODO", "x")
	second.Author = "bob"

	firstNow := rec("a.go", 6, "TODO", "x")
	firstNow.Author = "alice"
	secondNow := rec("a.go", 41, "TODO", "x")
	secondNow.Author = "carol"

	res := Compute(
		[]marker.Record{first, second},
		[]marker.Record{firstNow, secondNow},
		"HEAD",
	)

	require.Len(t, res.Entries, 1)
	e := res.Entries[0]
	assert.Equal(t, StatusModified, e.Status)
	assert.Equal(t, "carol", e.Record.Author)
	require.NotNil(t, e.Old)
	assert.Equal(t, "bob", e.Old.Author, "the second occurrence pairs with the second")
}

func TestComputeMatchKeyNormalizesMessage(t *testing.T) {
	base := []marker.Record{rec("a.go", 5, "TODO", "  Fix It ")}
	current := []marker.Record{rec("a.go", 5, "TODO", "fix it")}

	res := Compute(base, current, "HEAD")

	assert.Empty(t, res.Entries, "case and whitespace changes alone do not report")
}

func TestComputePartitionsEveryRecord(t *testing.T) {
	base := []marker.Record{
		rec("a.go", 1, "TODO", "stays"),
		rec("a.go", 5, "TODO", "goes away"),
		rec("b.go", 3, "FIXME", "will change"),
		rec("b.go", 9, "HACK", "also goes"),
	}
	changed := rec("b.go", 3, "FIXME", "will change")
	changed.Priority = marker.PriorityUrgent
	current := []marker.Record{
		rec("a.go", 2, "TODO", "stays"),
		changed,
		rec("c.go", 1, "BUG", "brand new"),
	}

	res := Compute(base, current, "HEAD")

	assert.Equal(t, 1, res.AddedCount)
	assert.Equal(t, 2, res.RemovedCount)
	assert.Equal(t, 1, res.ModifiedCount)

	// Both sides partition: records not in an entry are the unchanged
	// pairs, and both sides must agree on how many there are.
	unchangedCurrent := len(current) - res.AddedCount - res.ModifiedCount
	unchangedBase := len(base) - res.RemovedCount - res.ModifiedCount
	assert.Equal(t, unchangedBase, unchangedCurrent)

	for _, e := range res.Entries {
		switch e.Status {
		case StatusAdded:
			assert.Contains(t, current, e.Record)
		case StatusRemoved:
			assert.Contains(t, base, e.Record)
		case StatusModified:
			assert.Contains(t, current, e.Record)
			assert.Contains(t, base, *e.Old)
		}
	}
}

func TestComputeSortsAcrossFiles(t *testing.T) {
	base := []marker.Record{rec("z.go", 1, "TODO", "bye")}
	current := []marker.Record{
		rec("b.go", 7, "TODO", "second"),
		rec("a.go", 9, "TODO", "first"),
	}

	res := Compute(base, current, "HEAD")

	require.Len(t, res.Entries, 3)
	assert.Equal(t, "a.go", res.Entries[0].Record.File)
	assert.Equal(t, "b.go", res.Entries[1].Record.File)
	assert.Equal(t, "z.go", res.Entries[2].Record.File)
}

func TestFilterTags(t *testing.T) {
	res := Compute(
		[]marker.Record{rec("a.go", 1, "TODO", "gone")},
		[]marker.Record{rec("a.go", 2, "FIXME", "new")},
		"HEAD",
	)
	require.Len(t, res.Entries, 2)

	res.FilterTags(nil)
	assert.Len(t, res.Entries, 2, "no filter keeps everything")

	res.FilterTags([]string{"fixme"})
	require.Len(t, res.Entries, 1)
	assert.Equal(t, marker.Tag("FIXME"), res.Entries[0].Record.Tag)
	assert.Equal(t, 1, res.AddedCount)
	assert.Equal(t, 0, res.RemovedCount)

	res.FilterTags([]string{"not-a-tag"})
	assert.Empty(t, res.Entries, "a filter with no recognizable tags matches nothing")
	assert.Equal(t, 0, res.AddedCount)
}

func TestDiffAgainstRefRejectsDashRef(t *testing.T) {
	d := &Differ{}
	_, err := d.DiffAgainstRef(context.Background(), ".", "--output=/tmp/leak", config.Default(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not start with")
}

// memStore is an in-memory BaseStore recording writes.
type memStore struct {
	sha     string
	cfgKey  string
	records []marker.Record
	puts    int
}

func (m *memStore) BaseScan(ctx context.Context, sha, cfgKey string) ([]marker.Record, bool, error) {
	if m.records != nil && m.sha == sha && m.cfgKey == cfgKey {
		return m.records, true, nil
	}
	return nil, false, nil
}

func (m *memStore) PutBaseScan(ctx context.Context, sha, cfgKey string, records []marker.Record) error {
	m.sha, m.cfgKey, m.records = sha, cfgKey, records
	m.puts++
	return nil
}

// failStore is a BaseStore whose every call fails.
type failStore struct{}

func (failStore) BaseScan(ctx context.Context, sha, cfgKey string) ([]marker.Record, bool, error) {
	return nil, false, errors.New("database locked")
}

func (failStore) PutBaseScan(ctx context.Context, sha, cfgKey string, records []marker.Record) error {
	return errors.New("database locked")
}

func initTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	commands := [][]string{
		{"init"},
		{"config", "user.name", "Test User"},
		{"config", "user.email", "test@example.com"},
	}
	for _, args := range commands {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if err := cmd.Run(); err != nil {
			t.Fatalf("git %v failed: %v", args, err)
		}
	}
	return dir
}

func commitFile(t *testing.T, dir, name, content string) {
	t.Helper()

	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	for _, args := range [][]string{{"add", name}, {"commit", "-m", "add " + name}} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if err := cmd.Run(); err != nil {
			t.Fatalf("git %v failed: %v", args, err)
		}
	}
}

func scanRecords(t *testing.T, root string) []marker.Record {
	t.Helper()

	res, err := scan.Scan(context.Background(), scan.Options{
		Root:    root,
		Config:  config.Default(),
		NoCache: true,
	})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	return res.Records
}

func TestDiffAgainstRefRepo(t *testing.T) {
	ctx := context.Background()

	g, err := git.NewGit(ctx)
	if err != nil {
		t.Skipf("git not available: %v", err)
	}

	dir := initTestRepo(t)
	commitFile(t, dir, "a.go", "package a\n// TODO(alice): old task\n// FIXME: keep this\n")
	commitFile(t, dir, "b.go", "package b\n// TODO: stays put\n")

	// Rework a.go without committing and drop in an untracked file.
	err = os.WriteFile(filepath.Join(dir, "a.go"),
		[]byte("package a\n// FIXME: keep this\n// TODO(bob): brand new\n"), 0o644)
	if err != nil {
		t.Fatalf("failed to rewrite a.go: %v", err)
	}
	err = os.WriteFile(filepath.Join(dir, "c.go"),
		[]byte("package c\n// FIXME: untracked finding\n"), 0o644)
	if err != nil {
		t.Fatalf("failed to write c.go: %v", err)
	}

	store := &memStore{}
	d := &Differ{Git: g, Store: store}
	current := scanRecords(t, dir)

	res, err := d.DiffAgainstRef(ctx, dir, "HEAD", config.Default(), current)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}

	assert.Equal(t, "HEAD", res.BaseRef)
	assert.Equal(t, 2, res.AddedCount, "new marker in a.go plus the untracked file")
	assert.Equal(t, 1, res.RemovedCount)
	assert.Equal(t, 0, res.ModifiedCount)

	var addedFiles []string
	for _, e := range res.Entries {
		if e.Status == StatusAdded {
			addedFiles = append(addedFiles, e.Record.File)
		}
	}
	assert.ElementsMatch(t, []string{"a.go", "c.go"}, addedFiles)

	// The stored base scan covers the whole ref, including b.go, even
	// though only changed files took part in the comparison.
	assert.Equal(t, 1, store.puts)
	assert.Len(t, store.records, 3)

	// A second diff reuses the stored base scan.
	res2, err := d.DiffAgainstRef(ctx, dir, "HEAD", config.Default(), current)
	if err != nil {
		t.Fatalf("second diff failed: %v", err)
	}
	assert.Equal(t, 1, store.puts, "base scan came from the store")
	assert.Equal(t, res.AddedCount, res2.AddedCount)
	assert.Equal(t, res.RemovedCount, res2.RemovedCount)
}

func TestDiffAgainstRefUnknownRef(t *testing.T) {
	ctx := context.Background()

	g, err := git.NewGit(ctx)
	if err != nil {
		t.Skipf("git not available: %v", err)
	}

	dir := initTestRepo(t)
	commitFile(t, dir, "a.go", "package a\n// TODO: something\n")

	d := &Differ{Git: g}
	_, err = d.DiffAgainstRef(ctx, dir, "no-such-branch", config.Default(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to resolve ref")
}

func TestDiffAgainstRefSurvivesStoreFailure(t *testing.T) {
	ctx := context.Background()

	g, err := git.NewGit(ctx)
	if err != nil {
		t.Skipf("git not available: %v", err)
	}

	dir := initTestRepo(t)
	commitFile(t, dir, "a.go", "package a\n// TODO: tracked\n")
	err = os.WriteFile(filepath.Join(dir, "b.go"), []byte("// FIXME: new\n"), 0o644)
	if err != nil {
		t.Fatalf("failed to write b.go: %v", err)
	}

	d := &Differ{Git: g, Store: failStore{}}
	res, err := d.DiffAgainstRef(ctx, dir, "HEAD", config.Default(), scanRecords(t, dir))
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}

	assert.Equal(t, 1, res.AddedCount, "store failures do not affect the diff")
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "history store read failed")
	assert.Contains(t, res.Warnings[1], "history store write failed")
}
