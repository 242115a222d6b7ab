// scripts/cleanup-stale.go - Manual stale cache cleanup tool
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Cache directories are keyed by a hash of the scan root, so a deleted
// project leaves its cache behind forever. This prunes directories whose
// newest file is older than the retention window.
func main() {
	base, err := os.UserCacheDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error locating user cache dir: %v\n", err)
		os.Exit(1)
	}
	cacheRoot := filepath.Join(base, "todoscan")

	// Allow override via environment variable
	if dir := os.Getenv("TODOSCAN_CACHE_DIR"); dir != "" {
		cacheRoot = dir
	}

	retentionDays := 90
	if v := os.Getenv("TODOSCAN_CACHE_RETENTION_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			fmt.Fprintf(os.Stderr, "Error: invalid TODOSCAN_CACHE_RETENTION_DAYS %q\n", v)
			os.Exit(1)
		}
		retentionDays = n
	}

	fmt.Printf("Pruning caches under %s (retention: %d days)...\n", cacheRoot, retentionDays)

	entries, err := os.ReadDir(cacheRoot)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("✓ No caches found")
			return
		}
		fmt.Fprintf(os.Stderr, "Error reading cache dir: %v\n", err)
		os.Exit(1)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(cacheRoot, e.Name())
		if newestModTime(dir).After(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			fmt.Fprintf(os.Stderr, "Error removing %s: %v\n", dir, err)
			continue
		}
		fmt.Printf("  removed %s\n", dir)
		removed++
	}

	if removed > 0 {
		fmt.Printf("✓ Removed %d stale cache director%s\n", removed, pluralY(removed))
	} else {
		fmt.Println("✓ No stale caches found")
	}
}

// newestModTime returns the most recent modification time of any file
// under dir. An unreadable or empty directory reads as very old, which
// makes it a pruning candidate.
func newestModTime(dir string) time.Time {
	var newest time.Time
	filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return newest
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
