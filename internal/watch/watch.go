// Package watch keeps an in-memory marker index current while files
// change, emitting one event per file whose marker set actually changed.
// The index is seeded by a full tree scan; afterwards only touched files
// are re-read.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/todoscan/todoscan/internal/config"
	"github.com/todoscan/todoscan/internal/extract"
	"github.com/todoscan/todoscan/internal/ignore"
	"github.com/todoscan/todoscan/internal/marker"
	"github.com/todoscan/todoscan/internal/scan"
	"github.com/todoscan/todoscan/internal/stats"
)

// DefaultDebounce is the quiet period after the last file event before
// pending changes are reprocessed, long enough to absorb editor save
// bursts.
const DefaultDebounce = 300 * time.Millisecond

// Index holds the current marker set grouped by file. It is not safe for
// concurrent use; Run drives it from a single goroutine.
type Index struct {
	byFile    map[string][]marker.Record
	extractor *extract.Extractor
	root      string

	excludeDirs     []string
	excludePatterns []*regexp.Regexp
	matcher         *ignore.Matcher
}

// NewIndex runs the initial full scan and builds the per-file index.
func NewIndex(ctx context.Context, root string, cfg config.Config, noCache bool) (*Index, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch root %s: %w", root, err)
	}

	res, err := scan.Scan(ctx, scan.Options{Root: abs, Config: cfg, NoCache: noCache})
	if err != nil {
		return nil, err
	}

	grammar, err := marker.NewGrammar(cfg.TagsOrDefault())
	if err != nil {
		return nil, fmt.Errorf("failed to build tag grammar: %w", err)
	}

	ix := &Index{
		byFile:      make(map[string][]marker.Record),
		extractor:   extract.New(grammar, 0),
		root:        abs,
		excludeDirs: cfg.ExcludeDirs,
		matcher:     ignore.Load(abs),
	}
	for _, p := range cfg.ExcludePatterns {
		re, reErr := regexp.Compile(p)
		if reErr != nil {
			continue
		}
		ix.excludePatterns = append(ix.excludePatterns, re)
	}
	for _, r := range res.Records {
		ix.byFile[r.File] = append(ix.byFile[r.File], r)
	}
	return ix, nil
}

// Update is the outcome of reindexing one file: markers that appeared and
// markers that vanished, matched by key so line drift alone is not a
// change. Suppressed records stay out of both sides, so suppressing an
// existing marker reads as a removal and unsuppressing as an addition.
type Update struct {
	Added   []marker.Record
	Removed []marker.Record
}

// Empty reports whether the update changed nothing visible.
func (u Update) Empty() bool { return len(u.Added) == 0 && len(u.Removed) == 0 }

// UpdateFile re-reads one file and swaps its records in the index.
// Oversized and binary content indexes as empty rather than erroring, the
// same way the tree scan skips such files.
func (ix *Index) UpdateFile(rel string) (Update, error) {
	content, err := os.ReadFile(filepath.Join(ix.root, filepath.FromSlash(rel)))
	if err != nil {
		return Update{}, fmt.Errorf("cannot read %s: %w", rel, err)
	}

	old := ix.byFile[rel]
	var records []marker.Record
	if int64(len(content)) <= ix.extractor.MaxSize() && !extract.IsBinary(content) {
		records = ix.extractor.ExtractContent(content, rel)
	}

	if len(records) == 0 {
		delete(ix.byFile, rel)
	} else {
		ix.byFile[rel] = records
	}
	return diffRecords(old, records), nil
}

// RemoveFile drops a deleted file's records, reporting them as removed.
func (ix *Index) RemoveFile(rel string) Update {
	old := ix.byFile[rel]
	delete(ix.byFile, rel)
	return diffRecords(old, nil)
}

// Total counts the unsuppressed markers currently indexed.
func (ix *Index) Total() int {
	n := 0
	for _, records := range ix.byFile {
		for _, r := range records {
			if !r.Suppressed {
				n++
			}
		}
	}
	return n
}

// TagCounts aggregates the index by tag, most frequent first.
func (ix *Index) TagCounts() []stats.TagCount {
	counts := make(map[marker.Tag]int)
	for _, records := range ix.byFile {
		for _, r := range records {
			if !r.Suppressed {
				counts[r.Tag]++
			}
		}
	}

	out := make([]stats.TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, stats.TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// Excluded reports whether events for rel should be ignored, applying the
// same rules as the tree walker.
func (ix *Index) Excluded(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if part == ".git" {
			return true
		}
		for _, dir := range ix.excludeDirs {
			if part == dir {
				return true
			}
		}
	}
	for _, re := range ix.excludePatterns {
		if re.MatchString(rel) {
			return true
		}
	}
	return ix.matcher.Match(rel, false)
}

// Event describes one file's marker changes plus the index totals after
// applying them.
type Event struct {
	Timestamp  string           `json:"timestamp"`
	File       string           `json:"file"`
	Added      []marker.Record  `json:"added"`
	Removed    []marker.Record  `json:"removed"`
	TagSummary []stats.TagCount `json:"tag_summary"`
	Total      int              `json:"total"`
	TotalDelta int              `json:"total_delta"`
}

// Options configure a watch session.
type Options struct {
	Root    string
	Config  config.Config
	NoCache bool

	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration

	// Tags restricts which added/removed records events carry. Empty
	// means all tags. Unknown names are ignored.
	Tags []string

	// OnStart receives the totals of the initial scan.
	OnStart func(total int, counts []stats.TagCount)

	// OnEvent receives each change event.
	OnEvent func(Event)

	// OnError receives non-fatal watcher problems.
	OnError func(error)
}

// Run watches opts.Root until ctx is canceled. Cancellation is the normal
// way to stop and returns nil.
func Run(ctx context.Context, opts Options) error {
	ix, err := NewIndex(ctx, opts.Root, opts.Config, opts.NoCache)
	if err != nil {
		return err
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	wantTags := parseTagFilter(opts.Tags)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if _, err := watchTree(watcher, ix, ix.root); err != nil {
		return err
	}

	if opts.OnStart != nil {
		opts.OnStart(ix.Total(), ix.TagCounts())
	}

	// The debounce timer absorbs bursts within one save; the limiter caps
	// how often the pending set is flushed on top of that.
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)

	pending := make(map[string]struct{})
	var flush <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			rel := relPath(ix.root, ev.Name)
			if rel == "" || ix.Excluded(rel) {
				continue
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				if fi, statErr := os.Stat(ev.Name); statErr == nil && fi.IsDir() {
					// A freshly created tree needs watches, and its files
					// predate them, so index those files explicitly.
					files, addErr := watchTree(watcher, ix, ev.Name)
					if addErr != nil && opts.OnError != nil {
						opts.OnError(addErr)
					}
					for _, f := range files {
						pending[f] = struct{}{}
					}
					if len(pending) > 0 {
						flush = time.After(debounce)
					}
					continue
				}
			}
			pending[rel] = struct{}{}
			flush = time.After(debounce)

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if opts.OnError != nil {
				opts.OnError(werr)
			}

		case <-flush:
			flush = nil
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
			for _, rel := range drainPending(pending) {
				processFile(ix, rel, wantTags, opts.OnEvent)
			}
		}
	}
}

// watchTree registers dir and its non-excluded subdirectories with the
// watcher and returns the files it saw along the way.
func watchTree(w *fsnotify.Watcher, ix *Index, dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel := relPath(ix.root, p)
		if d.IsDir() {
			if rel != "" && ix.Excluded(rel) {
				return fs.SkipDir
			}
			if addErr := w.Add(p); addErr != nil {
				return fmt.Errorf("failed to watch %s: %w", p, addErr)
			}
			return nil
		}
		if d.Type().IsRegular() && rel != "" && !ix.Excluded(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return files, err
	}
	return files, nil
}

// processFile reindexes one path and emits an event when its visible
// marker set changed.
func processFile(ix *Index, rel string, wantTags map[marker.Tag]bool, onEvent func(Event)) {
	previous := ix.Total()

	var update Update
	abs := filepath.Join(ix.root, filepath.FromSlash(rel))
	if fi, err := os.Stat(abs); err == nil && fi.Mode().IsRegular() {
		var upErr error
		update, upErr = ix.UpdateFile(rel)
		if upErr != nil {
			return
		}
	} else {
		update = ix.RemoveFile(rel)
	}

	if len(wantTags) > 0 {
		update.Added = filterTags(update.Added, wantTags)
		update.Removed = filterTags(update.Removed, wantTags)
	}
	if update.Empty() || onEvent == nil {
		return
	}

	total := ix.Total()
	onEvent(Event{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		File:       rel,
		Added:      update.Added,
		Removed:    update.Removed,
		TagSummary: ix.TagCounts(),
		Total:      total,
		TotalDelta: total - previous,
	})
}

func diffRecords(old, cur []marker.Record) Update {
	oldKeys := make(map[string]bool, len(old))
	for _, r := range old {
		if !r.Suppressed {
			oldKeys[r.MatchKey()] = true
		}
	}
	curKeys := make(map[string]bool, len(cur))
	for _, r := range cur {
		if !r.Suppressed {
			curKeys[r.MatchKey()] = true
		}
	}

	var u Update
	for _, r := range cur {
		if !r.Suppressed && !oldKeys[r.MatchKey()] {
			u.Added = append(u.Added, r)
		}
	}
	for _, r := range old {
		if !r.Suppressed && !curKeys[r.MatchKey()] {
			u.Removed = append(u.Removed, r)
		}
	}
	return u
}

func parseTagFilter(names []string) map[marker.Tag]bool {
	want := make(map[marker.Tag]bool, len(names))
	for _, name := range names {
		tag, err := marker.ParseTag(name)
		if err != nil {
			continue
		}
		want[tag] = true
	}
	return want
}

func filterTags(records []marker.Record, want map[marker.Tag]bool) []marker.Record {
	var kept []marker.Record
	for _, r := range records {
		if want[r.Tag] {
			kept = append(kept, r)
		}
	}
	return kept
}

func drainPending(pending map[string]struct{}) []string {
	files := make([]string, 0, len(pending))
	for rel := range pending {
		files = append(files, rel)
		delete(pending, rel)
	}
	sort.Strings(files)
	return files
}

func relPath(root, abs string) string {
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}
