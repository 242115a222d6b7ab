package scan

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"

	"github.com/todoscan/todoscan/internal/ignore"
)

// fileEntry is one scannable file discovered by the walker, with the
// metadata captured at walk time.
type fileEntry struct {
	absPath string
	relPath string
	info    fs.FileInfo
}

type walkOptions struct {
	root            string
	excludeDirs     []string
	excludePatterns []*regexp.Regexp
	matcher         *ignore.Matcher
}

// collectFiles walks the tree under root and returns the regular files
// that survive the exclusion rules, in lexical order. Unreadable entries
// produce warnings, never a failed walk. The .git directory is always
// pruned; symlinks are never followed.
func collectFiles(o walkOptions) ([]fileEntry, []string) {
	var entries []fileEntry
	var warnings []string

	_ = filepath.WalkDir(o.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %s: %v", path, err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == o.root {
			return nil
		}

		rel, relErr := filepath.Rel(o.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			for _, dir := range o.excludeDirs {
				if d.Name() == dir {
					return fs.SkipDir
				}
			}
			if o.matcher.Match(rel, true) {
				return fs.SkipDir
			}
			return nil
		}

		// Regular files only: symlinks, sockets, and devices are skipped.
		if !d.Type().IsRegular() {
			return nil
		}
		for _, re := range o.excludePatterns {
			if re.MatchString(rel) {
				return nil
			}
		}
		if o.matcher.Match(rel, false) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %s: %v", rel, infoErr))
			return nil
		}
		entries = append(entries, fileEntry{absPath: path, relPath: rel, info: info})
		return nil
	})

	return entries, warnings
}
