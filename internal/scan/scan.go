// Package scan walks a source tree and extracts every marker comment,
// fanning file extraction out across a bounded worker pool and reusing
// cached per-file results whose fingerprints still match. Results are
// deterministic: sorted by file and line regardless of worker scheduling.
package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/todoscan/todoscan/internal/config"
	"github.com/todoscan/todoscan/internal/extract"
	"github.com/todoscan/todoscan/internal/ignore"
	"github.com/todoscan/todoscan/internal/marker"
	"github.com/todoscan/todoscan/internal/scancache"
)

// Options configure a tree scan.
type Options struct {
	// Root is the directory to scan. Must exist and be a directory.
	Root string

	// Config supplies the tag set and exclusion rules.
	Config config.Config

	// Workers bounds the extraction pool. <= 0 means GOMAXPROCS.
	Workers int

	// NoCache disables both cache reads and the write-back.
	NoCache bool

	// CacheDir overrides the per-root cache directory. Empty selects the
	// default under the user cache dir.
	CacheDir string
}

// Result is one complete scan of a tree.
type Result struct {
	// Records is every extracted marker, sorted by (file, line).
	Records []marker.Record

	// FilesScanned counts files that produced a result, from cache or
	// fresh extraction. Skipped files (oversized, binary, unreadable)
	// are not included.
	FilesScanned int

	CacheHits   int
	CacheMisses int

	// Warnings carries non-fatal per-file problems, sorted for stable
	// output.
	Warnings []string
}

// Scan walks opts.Root and extracts marker records from every candidate
// file. Fatal errors are limited to an unusable root or tag set; per-file
// failures become warnings.
func Scan(ctx context.Context, opts Options) (*Result, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scan root %s: %w", opts.Root, err)
	}
	rootInfo, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot scan %s: %w", opts.Root, err)
	}
	if !rootInfo.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", opts.Root)
	}

	grammar, err := marker.NewGrammar(opts.Config.TagsOrDefault())
	if err != nil {
		return nil, fmt.Errorf("failed to build tag grammar: %w", err)
	}
	extractor := extract.New(grammar, 0)

	res := &Result{}

	var excludePatterns []*regexp.Regexp
	for _, p := range opts.Config.ExcludePatterns {
		re, reErr := regexp.Compile(p)
		if reErr != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("ignoring invalid exclude pattern %q: %v", p, reErr))
			continue
		}
		excludePatterns = append(excludePatterns, re)
	}

	var (
		cacheDir string
		store    *scancache.Cache
		snap     *scancache.Snapshot
	)
	if !opts.NoCache {
		cacheDir = opts.CacheDir
		if cacheDir == "" {
			cacheDir, err = scancache.Dir(root)
			if err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("scan cache disabled: %v", err))
				cacheDir = ""
			}
		}
	}
	if cacheDir != "" {
		store = scancache.Load(cacheDir, opts.Config.HashKey())
		snap = store.Snapshot()
	}

	entries, walkWarnings := collectFiles(walkOptions{
		root:            root,
		excludeDirs:     opts.Config.ExcludeDirs,
		excludePatterns: excludePatterns,
		matcher:         ignore.Load(root),
	})
	res.Warnings = append(res.Warnings, walkWarnings...)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var mu sync.Mutex
	seen := make(map[string]scancache.Entry, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, fe := range entries {
		fe := fe
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			out := scanFile(extractor, snap, fe)

			mu.Lock()
			defer mu.Unlock()
			if out.warning != "" {
				res.Warnings = append(res.Warnings, out.warning)
			}
			if out.skip {
				return nil
			}
			res.Records = append(res.Records, out.records...)
			if out.hit {
				res.CacheHits++
			} else {
				res.CacheMisses++
			}
			res.FilesScanned++
			seen[fe.relPath] = out.entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if store != nil {
		store.Merge(seen)
		if err := store.Persist(cacheDir); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("failed to persist scan cache: %v", err))
		}
	}

	sort.Slice(res.Records, func(i, j int) bool {
		if res.Records[i].File != res.Records[j].File {
			return res.Records[i].File < res.Records[j].File
		}
		return res.Records[i].Line < res.Records[j].Line
	})
	sort.Strings(res.Warnings)

	return res, nil
}

// fileOutcome is the result of processing one file in a worker.
type fileOutcome struct {
	records []marker.Record
	entry   scancache.Entry
	hit     bool
	skip    bool
	warning string
}

// scanFile resolves one file against the cache snapshot: metadata match
// reuses cached records outright, a hash match refreshes the stored
// metadata, and anything else is a fresh extraction.
func scanFile(x *extract.Extractor, snap *scancache.Snapshot, fe fileEntry) fileOutcome {
	if fe.info.Size() > x.MaxSize() {
		return fileOutcome{skip: true}
	}

	var cached scancache.Entry
	var haveCached bool
	if snap != nil {
		cached, haveCached = snap.Lookup(fe.relPath)
	}

	if haveCached && cached.Fingerprint.MetadataEquals(extract.StatFingerprint(fe.info)) {
		return fileOutcome{records: cached.Records, entry: cached, hit: true}
	}

	if haveCached {
		// Metadata moved; confirm against content before re-extracting.
		content, err := os.ReadFile(fe.absPath)
		if err != nil {
			return fileOutcome{skip: true, warning: fmt.Sprintf("cannot read %s: %v", fe.relPath, err)}
		}
		if int64(len(content)) > x.MaxSize() || extract.IsBinary(content) {
			return fileOutcome{skip: true}
		}

		fp := extract.StatFingerprint(fe.info)
		fp.Hash = extract.HashContent(content)
		if fp.Hash == cached.Fingerprint.Hash {
			// Touched but unchanged. Refresh the metadata so the next
			// scan takes the fast path.
			return fileOutcome{
				records: cached.Records,
				entry:   scancache.Entry{Fingerprint: fp, Records: cached.Records},
				hit:     true,
			}
		}

		records := x.ExtractContent(content, fe.relPath)
		return fileOutcome{
			records: records,
			entry:   scancache.Entry{Fingerprint: fp, Records: records},
		}
	}

	records, fp, err := x.ExtractFile(fe.absPath, fe.relPath)
	if err != nil {
		if errors.Is(err, extract.ErrTooLarge) || errors.Is(err, extract.ErrBinary) {
			return fileOutcome{skip: true}
		}
		return fileOutcome{skip: true, warning: err.Error()}
	}
	return fileOutcome{
		records: records,
		entry:   scancache.Entry{Fingerprint: fp, Records: records},
	}
}
