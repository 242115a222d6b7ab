// Package report assembles the technical-debt report payload: scan
// totals, the aggregate breakdowns, a marker age distribution, and the
// recorded snapshot trend. Rendering lives with the other renderers in
// the output package.
package report

import (
	"time"

	"github.com/todoscan/todoscan/internal/blame"
	"github.com/todoscan/todoscan/internal/history"
	"github.com/todoscan/todoscan/internal/marker"
	"github.com/todoscan/todoscan/internal/scan"
	"github.com/todoscan/todoscan/internal/stats"
)

// Summary is the headline block of a report.
type Summary struct {
	TotalItems   int `json:"total_items"`
	TotalFiles   int `json:"total_files"`
	FilesScanned int `json:"files_scanned"`
	UrgentCount  int `json:"urgent_count"`
	HighCount    int `json:"high_count"`
	StaleCount   int `json:"stale_count"`
	AvgAgeDays   int `json:"avg_age_days"`
}

// AgeBucket is one row of the age distribution.
type AgeBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Result is the full report payload.
type Result struct {
	GeneratedAt string               `json:"generated_at"`
	Summary     Summary              `json:"summary"`
	TagCounts   []stats.TagCount     `json:"tag_counts"`
	Priorities  stats.PriorityCounts `json:"priority_counts"`
	Authors     []stats.AuthorCount  `json:"author_counts"`
	Hotspots    []stats.FileCount    `json:"hotspot_files"`
	History     []history.Snapshot   `json:"history"`
	AgeBuckets  []AgeBucket          `json:"age_histogram"`
	Items       []marker.Record      `json:"items"`
}

var ageBucketLabels = [...]string{
	"<1 week",
	"1-4 weeks",
	"1-3 months",
	"3-6 months",
	"6-12 months",
	">1 year",
}

func ageBucketIndex(days int) int {
	switch {
	case days < 7:
		return 0
	case days < 28:
		return 1
	case days < 90:
		return 2
	case days < 180:
		return 3
	case days < 365:
		return 4
	}
	return 5
}

// BuildAgeHistogram buckets blame entries by age. A nil blame result
// yields the all-zero histogram, so the report renders the same sections
// whether or not attribution was available.
func BuildAgeHistogram(res *blame.Result) []AgeBucket {
	var counts [len(ageBucketLabels)]int
	if res != nil {
		for _, e := range res.Entries {
			counts[ageBucketIndex(e.Blame.AgeDays)]++
		}
	}

	out := make([]AgeBucket, len(ageBucketLabels))
	for i, label := range ageBucketLabels {
		out[i] = AgeBucket{Label: label, Count: counts[i]}
	}
	return out
}

// Build assembles the report from its already-computed parts. blameRes
// may be nil when git attribution is unavailable and snaps may be empty;
// both degrade to empty sections rather than errors.
func Build(scanRes *scan.Result, blameRes *blame.Result, snaps []history.Snapshot, now time.Time) *Result {
	st := stats.Compute(scanRes.Records, nil)

	var staleCount, avgAge int
	if blameRes != nil {
		staleCount = blameRes.StaleCount
		avgAge = blameRes.AvgAgeDays
	}

	items := make([]marker.Record, 0, len(scanRes.Records))
	for _, r := range scanRes.Records {
		if !r.Suppressed {
			items = append(items, r)
		}
	}

	return &Result{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Summary: Summary{
			TotalItems:   st.TotalItems,
			TotalFiles:   st.TotalFiles,
			FilesScanned: scanRes.FilesScanned,
			UrgentCount:  st.Priorities.Urgent,
			HighCount:    st.Priorities.High,
			StaleCount:   staleCount,
			AvgAgeDays:   avgAge,
		},
		TagCounts:  st.TagCounts,
		Priorities: st.Priorities,
		Authors:    st.Authors,
		Hotspots:   st.Hotspots,
		History:    snaps,
		AgeBuckets: BuildAgeHistogram(blameRes),
		Items:      items,
	}
}
