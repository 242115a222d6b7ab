// Package diffscan correlates the markers of two scans and classifies
// each one as added, removed, or modified relative to a git ref. Markers
// are matched by file, tag, and normalized message, so line drift from
// unrelated edits does not break the correlation, while edits to author,
// priority, issue ref, deadline, or suppression surface as modifications
// of the same marker rather than a remove plus an add.
package diffscan

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/todoscan/todoscan/internal/config"
	"github.com/todoscan/todoscan/internal/extract"
	"github.com/todoscan/todoscan/internal/git"
	"github.com/todoscan/todoscan/internal/marker"
)

// Status classifies one correlated marker.
type Status string

const (
	StatusAdded    Status = "added"
	StatusRemoved  Status = "removed"
	StatusModified Status = "modified"
)

// rank orders statuses for display within one line.
func (s Status) rank() int {
	switch s {
	case StatusAdded:
		return 0
	case StatusModified:
		return 1
	}
	return 2
}

// Entry is one correlated outcome. Record holds the current version for
// added and modified markers and the base version for removed ones.
type Entry struct {
	Status Status        `json:"status"`
	Record marker.Record `json:"record"`

	// Old is the base version of a modified marker, nil otherwise.
	Old *marker.Record `json:"old,omitempty"`
}

// Result is one complete diff against a base ref.
type Result struct {
	Entries       []Entry `json:"entries"`
	AddedCount    int     `json:"added_count"`
	RemovedCount  int     `json:"removed_count"`
	ModifiedCount int     `json:"modified_count"`
	BaseRef       string  `json:"base_ref"`

	// Warnings carries non-fatal problems, currently only history store
	// failures. The diff itself is still complete when these are set.
	Warnings []string `json:"warnings,omitempty"`
}

// Compute correlates a base scan with a current scan. Occurrences sharing
// a match key are paired in line order, i-th with i-th: paired occurrences
// whose remaining fields agree are unchanged and unreported, differing
// pairs become modified entries, and surplus occurrences on either side
// become added or removed. Every base and current record lands in exactly
// one of those outcomes.
func Compute(base, current []marker.Record, baseRef string) *Result {
	baseGroups := groupByKey(base)
	currentGroups := groupByKey(current)

	var entries []Entry
	for key, curr := range currentGroups {
		prev := baseGroups[key]
		paired := min(len(prev), len(curr))
		for i := 0; i < paired; i++ {
			if prev[i].FieldsEqual(curr[i]) {
				continue
			}
			old := prev[i]
			entries = append(entries, Entry{Status: StatusModified, Record: curr[i], Old: &old})
		}
		for _, r := range curr[paired:] {
			entries = append(entries, Entry{Status: StatusAdded, Record: r})
		}
		for _, r := range prev[paired:] {
			entries = append(entries, Entry{Status: StatusRemoved, Record: r})
		}
	}
	for key, prev := range baseGroups {
		if _, ok := currentGroups[key]; ok {
			continue
		}
		for _, r := range prev {
			entries = append(entries, Entry{Status: StatusRemoved, Record: r})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Record.File != b.Record.File {
			return a.Record.File < b.Record.File
		}
		if a.Record.Line != b.Record.Line {
			return a.Record.Line < b.Record.Line
		}
		if a.Status != b.Status {
			return a.Status.rank() < b.Status.rank()
		}
		return a.Record.Message < b.Record.Message
	})

	res := &Result{Entries: entries, BaseRef: baseRef}
	for _, e := range entries {
		switch e.Status {
		case StatusAdded:
			res.AddedCount++
		case StatusRemoved:
			res.RemovedCount++
		case StatusModified:
			res.ModifiedCount++
		}
	}
	return res
}

// groupByKey buckets records by match key, sorted by line within each
// bucket so pairing follows top-to-bottom file order.
func groupByKey(records []marker.Record) map[string][]marker.Record {
	groups := make(map[string][]marker.Record)
	for _, r := range records {
		key := r.MatchKey()
		groups[key] = append(groups[key], r)
	}
	for _, g := range groups {
		sort.Slice(g, func(i, j int) bool { return g[i].Line < g[j].Line })
	}
	return groups
}

// FilterTags narrows the result to entries whose tag parses to one of the
// given names and recomputes the counts. An empty list leaves the result
// untouched; a list with no recognizable tags empties it.
func (r *Result) FilterTags(tags []string) {
	if len(tags) == 0 {
		return
	}
	want := make(map[marker.Tag]bool, len(tags))
	for _, s := range tags {
		if t, err := marker.ParseTag(s); err == nil {
			want[t] = true
		}
	}

	kept := r.Entries[:0]
	r.AddedCount, r.RemovedCount, r.ModifiedCount = 0, 0, 0
	for _, e := range r.Entries {
		if !want[e.Record.Tag] {
			continue
		}
		kept = append(kept, e)
		switch e.Status {
		case StatusAdded:
			r.AddedCount++
		case StatusRemoved:
			r.RemovedCount++
		case StatusModified:
			r.ModifiedCount++
		}
	}
	r.Entries = kept
}

// BaseStore caches materialized ref scans. Keys are the resolved commit
// SHA plus the config hash key, so a tag or exclusion change invalidates
// cached base scans the same way it invalidates the working-tree cache.
type BaseStore interface {
	BaseScan(ctx context.Context, sha, cfgKey string) ([]marker.Record, bool, error)
	PutBaseScan(ctx context.Context, sha, cfgKey string, records []marker.Record) error
}

// Differ computes diffs against git refs. Store is optional; without one
// every call materializes the base scan from git objects.
type Differ struct {
	Git   *git.Git
	Store BaseStore
}

// DiffAgainstRef diffs the current scan records against the tree at ref.
// The base scan comes from the store when a cached copy exists for the
// resolved commit, otherwise the ref's tracked files are materialized and
// run through the extractor, then stored. The comparison itself covers
// only files that changed between the ref and the working tree; content
// in unchanged files extracts identically on both sides and can never
// produce an entry. When git cannot report changed files, every file is
// compared.
func (d *Differ) DiffAgainstRef(ctx context.Context, root, ref string, cfg config.Config, current []marker.Record) (*Result, error) {
	if err := git.ValidateRef(ref); err != nil {
		return nil, err
	}
	sha, err := d.Git.ResolveRef(ctx, root, ref)
	if err != nil {
		return nil, err
	}
	baseFiles, err := d.Git.ListTree(ctx, root, sha)
	if err != nil {
		return nil, err
	}

	var warnings []string
	cfgKey := cfg.HashKey()
	baseRecords, cached := d.loadBase(ctx, sha, cfgKey, &warnings)
	if !cached {
		baseRecords, err = d.materializeBase(ctx, root, sha, cfg, baseFiles)
		if err != nil {
			return nil, err
		}
		d.storeBase(ctx, sha, cfgKey, baseRecords, &warnings)
	}

	scope := d.changedScope(ctx, root, sha, baseFiles, current)
	res := Compute(inScope(baseRecords, scope), inScope(current, scope), ref)
	res.Warnings = warnings
	return res, nil
}

func (d *Differ) loadBase(ctx context.Context, sha, cfgKey string, warnings *[]string) ([]marker.Record, bool) {
	if d.Store == nil {
		return nil, false
	}
	records, ok, err := d.Store.BaseScan(ctx, sha, cfgKey)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("history store read failed: %v", err))
		return nil, false
	}
	return records, ok
}

func (d *Differ) storeBase(ctx context.Context, sha, cfgKey string, records []marker.Record, warnings *[]string) {
	if d.Store == nil {
		return
	}
	if err := d.Store.PutBaseScan(ctx, sha, cfgKey, records); err != nil {
		*warnings = append(*warnings, fmt.Sprintf("history store write failed: %v", err))
	}
}

// materializeBase extracts markers from every tracked file at sha,
// honoring the same exclusion rules as a working-tree scan. Files git
// cannot show (submodule entries, broken objects) and binary or oversized
// content are skipped.
func (d *Differ) materializeBase(ctx context.Context, root, sha string, cfg config.Config, baseFiles []string) ([]marker.Record, error) {
	grammar, err := marker.NewGrammar(cfg.TagsOrDefault())
	if err != nil {
		return nil, fmt.Errorf("failed to build tag grammar: %w", err)
	}
	extractor := extract.New(grammar, 0)

	var records []marker.Record
	for _, path := range excludeBaseFiles(baseFiles, cfg) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		content, showErr := d.Git.ShowFile(ctx, root, sha, path)
		if showErr != nil {
			continue
		}
		if int64(len(content)) > extractor.MaxSize() || extract.IsBinary(content) {
			continue
		}
		records = append(records, extractor.ExtractContent(content, path)...)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].File != records[j].File {
			return records[i].File < records[j].File
		}
		return records[i].Line < records[j].Line
	})
	return records, nil
}

// excludeBaseFiles applies the config exclusion rules to a flat path list
// the way the walker applies them to a tree: a path under an excluded
// directory name is dropped, as is a path matching an exclusion pattern.
// Invalid patterns are skipped here; the working-tree scan already warns
// about them.
func excludeBaseFiles(files []string, cfg config.Config) []string {
	var patterns []*regexp.Regexp
	for _, p := range cfg.ExcludePatterns {
		if re, err := regexp.Compile(p); err == nil {
			patterns = append(patterns, re)
		}
	}

	var kept []string
nextFile:
	for _, path := range files {
		segments := strings.Split(path, "/")
		for _, seg := range segments[:len(segments)-1] {
			for _, dir := range cfg.ExcludeDirs {
				if seg == dir {
					continue nextFile
				}
			}
		}
		for _, re := range patterns {
			if re.MatchString(path) {
				continue nextFile
			}
		}
		kept = append(kept, path)
	}
	return kept
}

// changedScope returns the set of files whose markers take part in the
// comparison: files git reports as changed since sha, plus files present
// in the current scan but absent from the base tree (untracked additions,
// which git diff does not list). If the diff commands fail, for instance
// in a shallow clone, every file on either side is in scope.
func (d *Differ) changedScope(ctx context.Context, root, sha string, baseFiles []string, current []marker.Record) map[string]bool {
	inBase := make(map[string]bool, len(baseFiles))
	for _, f := range baseFiles {
		inBase[f] = true
	}

	changed, err := d.Git.ChangedFiles(ctx, root, sha)
	if err != nil {
		all := make(map[string]bool, len(baseFiles))
		for _, f := range baseFiles {
			all[f] = true
		}
		for _, r := range current {
			all[r.File] = true
		}
		return all
	}

	scope := make(map[string]bool, len(changed))
	for _, f := range changed {
		scope[f] = true
	}
	for _, r := range current {
		if !inBase[r.File] {
			scope[r.File] = true
		}
	}
	return scope
}

func inScope(records []marker.Record, scope map[string]bool) []marker.Record {
	var kept []marker.Record
	for _, r := range records {
		if scope[r.File] {
			kept = append(kept, r)
		}
	}
	return kept
}
