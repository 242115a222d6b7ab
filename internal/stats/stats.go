// Package stats aggregates scan results into the summary views behind the
// stats, brief, and report commands. Suppressed records are excluded from
// every count, matching how the gate commands treat them.
package stats

import (
	"sort"

	"github.com/todoscan/todoscan/internal/diffscan"
	"github.com/todoscan/todoscan/internal/marker"
)

// TagCount is one row of the per-tag breakdown.
type TagCount struct {
	Tag   marker.Tag `json:"tag"`
	Count int        `json:"count"`
}

// AuthorCount is one row of the per-author breakdown. Records without an
// author land in the "unassigned" bucket.
type AuthorCount struct {
	Author string `json:"author"`
	Count  int    `json:"count"`
}

// FileCount is one row of the hotspot list.
type FileCount struct {
	File  string `json:"file"`
	Count int    `json:"count"`
}

// PriorityCounts splits the total by priority.
type PriorityCounts struct {
	Normal int `json:"normal"`
	High   int `json:"high"`
	Urgent int `json:"urgent"`
}

// Trend carries the diff counts when stats were computed against a base ref.
type Trend struct {
	Added    int    `json:"added"`
	Removed  int    `json:"removed"`
	Modified int    `json:"modified"`
	BaseRef  string `json:"base_ref"`
}

// Result is the full aggregation consumed by the stats and report renderers.
type Result struct {
	TotalItems int            `json:"total_items"`
	TotalFiles int            `json:"total_files"`
	TagCounts  []TagCount     `json:"tag_counts"`
	Priorities PriorityCounts `json:"priority_counts"`
	Authors    []AuthorCount  `json:"author_counts"`
	Hotspots   []FileCount    `json:"hotspot_files"`
	Trend      *Trend         `json:"trend,omitempty"`
}

// Brief is the compact summary used by the brief command and the watch loop.
type Brief struct {
	TotalItems int            `json:"total_items"`
	TotalFiles int            `json:"total_files"`
	Priorities PriorityCounts `json:"priority_counts"`
	TopUrgent  *marker.Record `json:"top_urgent,omitempty"`
	Trend      *Trend         `json:"trend,omitempty"`
}

const hotspotLimit = 5

// Compute aggregates records into tag, priority, author, and hotspot
// breakdowns. Breakdown rows order by count descending with name ascending
// as the tie break, so output is stable across runs. diff may be nil.
func Compute(records []marker.Record, diff *diffscan.Result) *Result {
	records = unsuppressed(records)

	res := &Result{
		TotalItems: len(records),
		Priorities: countPriorities(records),
		Trend:      trendOf(diff),
	}

	fileMap := make(map[string]int)
	tagMap := make(map[marker.Tag]int)
	authorMap := make(map[string]int)
	for _, r := range records {
		fileMap[r.File]++
		tagMap[r.Tag]++
		author := r.Author
		if author == "" {
			author = "unassigned"
		}
		authorMap[author]++
	}
	res.TotalFiles = len(fileMap)

	res.TagCounts = make([]TagCount, 0, len(tagMap))
	for tag, n := range tagMap {
		res.TagCounts = append(res.TagCounts, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(res.TagCounts, func(i, j int) bool {
		if res.TagCounts[i].Count != res.TagCounts[j].Count {
			return res.TagCounts[i].Count > res.TagCounts[j].Count
		}
		return res.TagCounts[i].Tag < res.TagCounts[j].Tag
	})

	res.Authors = make([]AuthorCount, 0, len(authorMap))
	for author, n := range authorMap {
		res.Authors = append(res.Authors, AuthorCount{Author: author, Count: n})
	}
	sort.Slice(res.Authors, func(i, j int) bool {
		if res.Authors[i].Count != res.Authors[j].Count {
			return res.Authors[i].Count > res.Authors[j].Count
		}
		return res.Authors[i].Author < res.Authors[j].Author
	})

	res.Hotspots = make([]FileCount, 0, len(fileMap))
	for file, n := range fileMap {
		res.Hotspots = append(res.Hotspots, FileCount{File: file, Count: n})
	}
	sort.Slice(res.Hotspots, func(i, j int) bool {
		if res.Hotspots[i].Count != res.Hotspots[j].Count {
			return res.Hotspots[i].Count > res.Hotspots[j].Count
		}
		return res.Hotspots[i].File < res.Hotspots[j].File
	})
	if len(res.Hotspots) > hotspotLimit {
		res.Hotspots = res.Hotspots[:hotspotLimit]
	}

	return res
}

// ComputeBrief reduces records to the compact summary: totals, priority
// split, and the single most pressing non-normal marker (highest priority,
// then highest tag severity, earliest in scan order on ties). diff may be
// nil.
func ComputeBrief(records []marker.Record, diff *diffscan.Result) *Brief {
	records = unsuppressed(records)

	b := &Brief{
		TotalItems: len(records),
		Priorities: countPriorities(records),
		Trend:      trendOf(diff),
	}

	files := make(map[string]bool)
	for _, r := range records {
		files[r.File] = true
	}
	b.TotalFiles = len(files)

	for i := range records {
		r := &records[i]
		if r.Priority == marker.PriorityNormal {
			continue
		}
		if b.TopUrgent == nil || morePressing(r, b.TopUrgent) {
			top := *r
			b.TopUrgent = &top
		}
	}

	return b
}

func morePressing(a, b *marker.Record) bool {
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() > b.Priority.Rank()
	}
	return a.Tag.Rank() > b.Tag.Rank()
}

func countPriorities(records []marker.Record) PriorityCounts {
	var pc PriorityCounts
	for _, r := range records {
		switch r.Priority {
		case marker.PriorityUrgent:
			pc.Urgent++
		case marker.PriorityHigh:
			pc.High++
		default:
			pc.Normal++
		}
	}
	return pc
}

func trendOf(diff *diffscan.Result) *Trend {
	if diff == nil {
		return nil
	}
	return &Trend{
		Added:    diff.AddedCount,
		Removed:  diff.RemovedCount,
		Modified: diff.ModifiedCount,
		BaseRef:  diff.BaseRef,
	}
}

func unsuppressed(records []marker.Record) []marker.Record {
	out := make([]marker.Record, 0, len(records))
	for _, r := range records {
		if !r.Suppressed {
			out = append(out, r)
		}
	}
	return out
}
