// Package scancache persists per-file extraction results between scans.
// The cache is a value, not ambient state: callers load it, take an
// immutable snapshot for the parallel phase, merge fresh entries after
// the pool drains, and persist the result atomically.
package scancache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/todoscan/todoscan/internal/extract"
	"github.com/todoscan/todoscan/internal/marker"
)

// Version is the cache schema version. Any change to the entry layout or
// record fields bumps it; a version mismatch discards the whole cache
// rather than attempting partial deserialization of a stale format.
const Version = 1

const cacheFileName = "scan-cache.json"

// Entry pairs the fingerprint captured for a file with the records
// extracted from it at that point.
type Entry struct {
	Fingerprint extract.Fingerprint `json:"fingerprint"`
	Records     []marker.Record     `json:"records"`
}

// Cache is the persisted scan state for one root directory.
type Cache struct {
	Version    int              `json:"version"`
	ConfigHash string           `json:"config_hash"`
	Entries    map[string]Entry `json:"entries"`
}

// New returns an empty cache bound to a config hash.
func New(configHash string) *Cache {
	return &Cache{
		Version:    Version,
		ConfigHash: configHash,
		Entries:    make(map[string]Entry),
	}
}

// Dir returns the user-scoped cache directory for a scan root. Distinct
// roots get distinct directories keyed by a hash of the absolute path.
func Dir(root string) (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating user cache dir: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root %s: %w", root, err)
	}
	return filepath.Join(base, "todoscan", extract.HashContent([]byte(abs))), nil
}

// Load reads the cache for dir. Every failure mode is a cold cache:
// missing file, unreadable file, malformed payload, schema version
// mismatch, or a config hash that no longer matches. Load never fails.
func Load(dir, configHash string) *Cache {
	data, err := os.ReadFile(filepath.Join(dir, cacheFileName))
	if err != nil {
		return New(configHash)
	}

	var c Cache
	if err := json.Unmarshal(data, &c); err != nil {
		return New(configHash)
	}
	if c.Version != Version || c.ConfigHash != configHash {
		return New(configHash)
	}
	if c.Entries == nil {
		c.Entries = make(map[string]Entry)
	}
	return &c
}

// Persist writes the cache atomically: the payload lands in a temp file
// in the same directory and is renamed over the previous cache, so a
// half-written cache file is never visible.
func (c *Cache) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	tmp, err := os.CreateTemp(dir, cacheFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing cache file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, cacheFileName)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

// Snapshot returns a read-only view of the current entries for use during
// the parallel phase. The snapshot never changes once taken.
func (c *Cache) Snapshot() *Snapshot {
	entries := make(map[string]Entry, len(c.Entries))
	for k, v := range c.Entries {
		entries[k] = v
	}
	return &Snapshot{entries: entries}
}

// Merge replaces the cache contents with exactly the entries seen in the
// scan that just finished. Paths that no longer exist in the tree are
// pruned by construction.
func (c *Cache) Merge(seen map[string]Entry) {
	entries := make(map[string]Entry, len(seen))
	for k, v := range seen {
		entries[k] = v
	}
	c.Entries = entries
}

// Snapshot is an immutable view of cache entries.
type Snapshot struct {
	entries map[string]Entry
}

// Lookup returns the cached entry for a relative path.
func (s *Snapshot) Lookup(path string) (Entry, bool) {
	e, ok := s.entries[path]
	return e, ok
}

// Len returns the number of cached entries.
func (s *Snapshot) Len() int {
	return len(s.entries)
}
