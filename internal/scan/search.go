package scan

import (
	"strings"

	"github.com/todoscan/todoscan/internal/marker"
)

// SearchResult is the outcome of a message/issue-ref text search.
type SearchResult struct {
	Query      string          `json:"query"`
	Exact      bool            `json:"exact"`
	Records    []marker.Record `json:"items"`
	MatchCount int             `json:"match_count"`
	FileCount  int             `json:"file_count"`
}

// Search keeps records whose message or issue reference contains query.
// Matching is case-insensitive unless exact is set.
func Search(records []marker.Record, query string, exact bool) SearchResult {
	var matched []marker.Record
	for _, r := range records {
		if matchesQuery(r, query, exact) {
			matched = append(matched, r)
		}
	}

	files := make(map[string]bool, len(matched))
	for _, r := range matched {
		files[r.File] = true
	}

	return SearchResult{
		Query:      query,
		Exact:      exact,
		Records:    matched,
		MatchCount: len(matched),
		FileCount:  len(files),
	}
}

func matchesQuery(r marker.Record, query string, exact bool) bool {
	if exact {
		return strings.Contains(r.Message, query) || strings.Contains(r.IssueRef, query)
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(r.Message), q) ||
		strings.Contains(strings.ToLower(r.IssueRef), q)
}
