package scan

import (
	"fmt"
	"sort"

	"github.com/todoscan/todoscan/internal/ignore"
	"github.com/todoscan/todoscan/internal/marker"
)

// Filters narrows a record set the way the list and search commands do.
// Zero-valued fields are inactive.
type Filters struct {
	// Tags keeps records whose tag matches any listed name,
	// case-insensitively. Names that are not valid tags drop out of the
	// filter, so an all-invalid list matches nothing.
	Tags []string

	// Priorities keeps records at any of the listed priorities.
	Priorities []marker.Priority

	// Author keeps records with exactly this author. Unattributed
	// records never match.
	Author string

	// PathGlob keeps records whose file path matches the glob
	// (*, ** and ? wildcards).
	PathGlob string
}

// Apply returns the records that pass every active filter, preserving
// input order.
func Apply(records []marker.Record, f Filters) ([]marker.Record, error) {
	out := records

	if len(f.Tags) > 0 {
		want := make(map[marker.Tag]bool, len(f.Tags))
		for _, raw := range f.Tags {
			if tag, err := marker.ParseTag(raw); err == nil {
				want[tag] = true
			}
		}
		out = retain(out, func(r marker.Record) bool { return want[r.Tag] })
	}

	if len(f.Priorities) > 0 {
		want := make(map[marker.Priority]bool, len(f.Priorities))
		for _, p := range f.Priorities {
			want[p] = true
		}
		out = retain(out, func(r marker.Record) bool { return want[r.Priority] })
	}

	if f.Author != "" {
		out = retain(out, func(r marker.Record) bool { return r.Author == f.Author })
	}

	if f.PathGlob != "" {
		re, err := ignore.CompileGlob(f.PathGlob)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", f.PathGlob, err)
		}
		out = retain(out, func(r marker.Record) bool { return re.MatchString(r.File) })
	}

	return out, nil
}

func retain(in []marker.Record, keep func(marker.Record) bool) []marker.Record {
	out := make([]marker.Record, 0, len(in))
	for _, r := range in {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// SortRecords orders records in place by the given key:
//
//	file      path, then line (the default everywhere)
//	tag       tag severity rank descending, then file and line
//	priority  urgent before high before normal, then file and line
func SortRecords(records []marker.Record, key string) error {
	switch key {
	case "", "file":
		sort.Slice(records, func(i, j int) bool {
			if records[i].File != records[j].File {
				return records[i].File < records[j].File
			}
			return records[i].Line < records[j].Line
		})
	case "tag":
		sort.Slice(records, func(i, j int) bool {
			if records[i].Tag.Rank() != records[j].Tag.Rank() {
				return records[i].Tag.Rank() > records[j].Tag.Rank()
			}
			if records[i].File != records[j].File {
				return records[i].File < records[j].File
			}
			return records[i].Line < records[j].Line
		})
	case "priority":
		sort.Slice(records, func(i, j int) bool {
			if records[i].Priority.Rank() != records[j].Priority.Rank() {
				return records[i].Priority.Rank() > records[j].Priority.Rank()
			}
			if records[i].File != records[j].File {
				return records[i].File < records[j].File
			}
			return records[i].Line < records[j].Line
		})
	default:
		return fmt.Errorf("unknown sort key %q (want file, tag, or priority)", key)
	}
	return nil
}
