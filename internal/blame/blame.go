// Package blame attributes markers to the commits that introduced them and
// ages them against a staleness threshold. Attribution never fails a run:
// markers whose lines cannot be blamed (untracked files, lines not yet
// committed) surface with author "uncommitted" and age zero.
package blame

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/todoscan/todoscan/internal/git"
	"github.com/todoscan/todoscan/internal/ignore"
	"github.com/todoscan/todoscan/internal/marker"
)

// UncommittedAuthor is the attribution for lines git cannot tie to a commit.
const UncommittedAuthor = "uncommitted"

// DefaultStaleDays is the staleness threshold when neither the command line
// nor the config supplies one.
const DefaultStaleDays = 365

// Attribution is the commit-side data for one marker.
type Attribution struct {
	Author  string `json:"author"`
	Email   string `json:"email,omitempty"`
	Date    string `json:"date,omitempty"` // YYYY-MM-DD
	AgeDays int    `json:"age_days"`
	Commit  string `json:"commit,omitempty"` // 8-hex short hash
}

// Entry pairs a marker with its attribution.
type Entry struct {
	Record marker.Record `json:"record"`
	Blame  Attribution   `json:"blame"`
	Stale  bool          `json:"stale"`
}

// Result is the blame command's payload.
type Result struct {
	Entries            []Entry `json:"entries"`
	Total              int     `json:"total"`
	AvgAgeDays         int     `json:"avg_age_days"`
	StaleCount         int     `json:"stale_count"`
	StaleThresholdDays int     `json:"stale_threshold_days"`
}

// Options tune a blame computation.
type Options struct {
	// ThresholdDays is the age at which a marker counts as stale.
	// <= 0 means DefaultStaleDays.
	ThresholdDays int

	// Workers bounds the per-file blame pool. <= 0 means GOMAXPROCS.
	Workers int

	// Now anchors age computation. Zero means time.Now().
	Now time.Time
}

// Compute blames every unsuppressed record. Records are grouped by file and
// each file is blamed once, with one -L range per marker line, files in
// parallel. Entries come back sorted by (file, line).
func Compute(ctx context.Context, g *git.Git, root string, records []marker.Record, opts Options) (*Result, error) {
	threshold := opts.ThresholdDays
	if threshold <= 0 {
		threshold = DefaultStaleDays
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	byFile := make(map[string][]marker.Record)
	for _, r := range records {
		if r.Suppressed {
			continue
		}
		byFile[r.File] = append(byFile[r.File], r)
	}

	res := &Result{StaleThresholdDays: threshold}

	var mu sync.Mutex
	pool, gctx := errgroup.WithContext(ctx)
	pool.SetLimit(workers)
	for file, recs := range byFile {
		file, recs := file, recs
		pool.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			lines := make([]int, len(recs))
			for i, r := range recs {
				lines[i] = r.Line
			}

			// Untracked files fail wholesale; every marker in them is
			// uncommitted by definition.
			attribution, err := g.BlameLines(gctx, root, file, lines)
			if err != nil {
				attribution = nil
			}

			entries := make([]Entry, 0, len(recs))
			for _, r := range recs {
				a := attributionFor(attribution[r.Line], now)
				entries = append(entries, Entry{
					Record: r,
					Blame:  a,
					Stale:  a.Commit != "" && a.AgeDays >= threshold,
				})
			}

			mu.Lock()
			res.Entries = append(res.Entries, entries...)
			mu.Unlock()
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		return nil, err
	}

	sortEntries(res.Entries, "file")
	res.recount()
	return res, nil
}

// attributionFor converts raw line blame to an Attribution. A zero-hash
// commit is git's own marker for a line with no commit yet; it collapses
// into the same uncommitted shape as a missing entry.
func attributionFor(lb git.LineBlame, now time.Time) Attribution {
	if lb.Commit == "" || strings.Trim(lb.Commit, "0") == "" {
		return Attribution{Author: UncommittedAuthor}
	}

	age := int(now.Sub(time.Unix(lb.Timestamp, 0)).Hours() / 24)
	if age < 0 {
		age = 0
	}

	return Attribution{
		Author:  lb.Author,
		Email:   lb.Email,
		Date:    time.Unix(lb.Timestamp, 0).UTC().Format("2006-01-02"),
		AgeDays: age,
		Commit:  lb.Commit,
	}
}

// Filters narrow a blame result in place. Zero-valued fields are inactive.
type Filters struct {
	// Tags keeps entries whose marker tag matches any listed name.
	Tags []string

	// Author keeps entries whose git author contains this substring,
	// case-insensitively.
	Author string

	// MinAgeDays drops entries younger than this.
	MinAgeDays int

	// PathGlob keeps entries whose file path matches the glob.
	PathGlob string
}

// Apply filters entries and recomputes the summary counts.
func (r *Result) Apply(f Filters) error {
	kept := r.Entries[:0]

	var pathRe *regexp.Regexp
	if f.PathGlob != "" {
		re, err := ignore.CompileGlob(f.PathGlob)
		if err != nil {
			return fmt.Errorf("invalid glob pattern %q: %w", f.PathGlob, err)
		}
		pathRe = re
	}

	want := make(map[marker.Tag]bool, len(f.Tags))
	for _, raw := range f.Tags {
		if tag, err := marker.ParseTag(raw); err == nil {
			want[tag] = true
		}
	}

	for _, e := range r.Entries {
		if len(f.Tags) > 0 && !want[e.Record.Tag] {
			continue
		}
		if f.Author != "" && !strings.Contains(strings.ToLower(e.Blame.Author), strings.ToLower(f.Author)) {
			continue
		}
		if e.Blame.AgeDays < f.MinAgeDays {
			continue
		}
		if pathRe != nil && !pathRe.MatchString(e.Record.File) {
			continue
		}
		kept = append(kept, e)
	}

	r.Entries = kept
	r.recount()
	return nil
}

// Sort orders entries by the given key:
//
//	file    path, then line (the default)
//	age     oldest first
//	author  git author name, then file and line
//	tag     tag severity rank descending, then file and line
func (r *Result) Sort(key string) error {
	switch key {
	case "", "file", "age", "author", "tag":
		sortEntries(r.Entries, key)
		return nil
	}
	return fmt.Errorf("unknown sort key %q (want file, age, author, or tag)", key)
}

func sortEntries(entries []Entry, key string) {
	byLocation := func(i, j int) bool {
		if entries[i].Record.File != entries[j].Record.File {
			return entries[i].Record.File < entries[j].Record.File
		}
		return entries[i].Record.Line < entries[j].Record.Line
	}

	switch key {
	case "age":
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Blame.AgeDays != entries[j].Blame.AgeDays {
				return entries[i].Blame.AgeDays > entries[j].Blame.AgeDays
			}
			return byLocation(i, j)
		})
	case "author":
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Blame.Author != entries[j].Blame.Author {
				return entries[i].Blame.Author < entries[j].Blame.Author
			}
			return byLocation(i, j)
		})
	case "tag":
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Record.Tag.Rank() != entries[j].Record.Tag.Rank() {
				return entries[i].Record.Tag.Rank() > entries[j].Record.Tag.Rank()
			}
			return byLocation(i, j)
		})
	default:
		sort.SliceStable(entries, byLocation)
	}
}

func (r *Result) recount() {
	r.Total = len(r.Entries)
	r.StaleCount = 0
	sum := 0
	for _, e := range r.Entries {
		if e.Stale {
			r.StaleCount++
		}
		sum += e.Blame.AgeDays
	}
	if r.Total > 0 {
		r.AvgAgeDays = sum / r.Total
	} else {
		r.AvgAgeDays = 0
	}
}

// ParseDurationDays reads a day count with an optional "d" suffix, the form
// the stale-threshold and min-age flags take.
func ParseDurationDays(s string) (int, error) {
	trimmed := strings.TrimSpace(s)
	numeric := strings.TrimSuffix(trimmed, "d")
	n, err := strconv.Atoi(numeric)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration %q: want a day count like 90d", s)
	}
	return n, nil
}
