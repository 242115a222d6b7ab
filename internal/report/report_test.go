package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todoscan/todoscan/internal/blame"
	"github.com/todoscan/todoscan/internal/history"
	"github.com/todoscan/todoscan/internal/marker"
	"github.com/todoscan/todoscan/internal/scan"
)

func blameWithAges(ages ...int) *blame.Result {
	res := &blame.Result{StaleThresholdDays: 365}
	for _, age := range ages {
		res.Entries = append(res.Entries, blame.Entry{
			Record: marker.Record{File: "a.go", Line: 1, Tag: marker.TagTodo, Message: "x"},
			Blame:  blame.Attribution{Author: "ana", AgeDays: age, Commit: "abcd1234"},
			Stale:  age >= 365,
		})
	}
	res.Total = len(res.Entries)
	return res
}

func TestBuildAgeHistogramNil(t *testing.T) {
	buckets := BuildAgeHistogram(nil)

	require.Len(t, buckets, 6)
	assert.Equal(t, "<1 week", buckets[0].Label)
	assert.Equal(t, ">1 year", buckets[5].Label)
	for _, b := range buckets {
		assert.Zero(t, b.Count)
	}
}

func TestBuildAgeHistogramSingleBucket(t *testing.T) {
	buckets := BuildAgeHistogram(blameWithAges(3))

	assert.Equal(t, 1, buckets[0].Count)
	for _, b := range buckets[1:] {
		assert.Zero(t, b.Count)
	}
}

func TestBuildAgeHistogramAllBuckets(t *testing.T) {
	buckets := BuildAgeHistogram(blameWithAges(3, 14, 60, 120, 250, 400))

	for _, b := range buckets {
		assert.Equal(t, 1, b.Count)
	}
}

func TestBuildAgeHistogramBoundaries(t *testing.T) {
	buckets := BuildAgeHistogram(blameWithAges(6, 7, 27, 28, 364, 365))

	assert.Equal(t, 1, buckets[0].Count)
	assert.Equal(t, 2, buckets[1].Count)
	assert.Equal(t, 1, buckets[2].Count)
	assert.Equal(t, 1, buckets[4].Count)
	assert.Equal(t, 1, buckets[5].Count)
}

func TestBuildSummarizesScan(t *testing.T) {
	urgent := marker.Record{File: "a.go", Line: 1, Tag: marker.TagFixme, Message: "hot", Priority: marker.PriorityUrgent}
	normal := marker.Record{File: "b.go", Line: 2, Tag: marker.TagTodo, Message: "later", Priority: marker.PriorityNormal}
	hidden := marker.Record{File: "b.go", Line: 9, Tag: marker.TagTodo, Message: "quiet", Priority: marker.PriorityNormal, Suppressed: true}

	scanRes := &scan.Result{
		Records:      []marker.Record{urgent, normal, hidden},
		FilesScanned: 40,
	}
	blameRes := blameWithAges(400)
	blameRes.StaleCount = 1
	blameRes.AvgAgeDays = 400

	snaps := []history.Snapshot{{Total: 2, Files: 2, TakenAt: time.Unix(1700000000, 0)}}

	res := Build(scanRes, blameRes, snaps, time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))

	assert.Equal(t, "2026-08-25T12:00:00Z", res.GeneratedAt)
	assert.Equal(t, 2, res.Summary.TotalItems)
	assert.Equal(t, 2, res.Summary.TotalFiles)
	assert.Equal(t, 40, res.Summary.FilesScanned)
	assert.Equal(t, 1, res.Summary.UrgentCount)
	assert.Equal(t, 0, res.Summary.HighCount)
	assert.Equal(t, 1, res.Summary.StaleCount)
	assert.Equal(t, 400, res.Summary.AvgAgeDays)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "hot", res.Items[0].Message)
	require.Len(t, res.History, 1)
	assert.Equal(t, 2, res.History[0].Total)
	require.Len(t, res.AgeBuckets, 6)
}

func TestBuildWithoutBlame(t *testing.T) {
	scanRes := &scan.Result{Records: []marker.Record{
		{File: "a.go", Line: 1, Tag: marker.TagTodo, Message: "x", Priority: marker.PriorityNormal},
	}}

	res := Build(scanRes, nil, nil, time.Now())

	assert.Zero(t, res.Summary.StaleCount)
	assert.Zero(t, res.Summary.AvgAgeDays)
	assert.Empty(t, res.History)
	for _, b := range res.AgeBuckets {
		assert.Zero(t, b.Count)
	}
}
