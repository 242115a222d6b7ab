// Package config loads .todoscan.yaml settings: which tags to scan for,
// which paths to exclude, and the thresholds used by check, lint, blame,
// and workspace commands.
package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/todoscan/todoscan/internal/marker"
)

// FileName is the config file searched for upward from the scan root.
const FileName = ".todoscan.yaml"

// Config is the full .todoscan.yaml schema. Unknown keys are rejected at
// parse time so typos fail loudly instead of being silently ignored.
type Config struct {
	// Tags are the marker keywords to scan for, matched case-insensitively.
	// Default: TODO, FIXME, HACK, XXX, BUG, NOTE
	Tags []string `yaml:"tags"`

	// ExcludeDirs are directory names skipped entirely wherever they appear
	// in the tree (e.g. "node_modules"). Default: none
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// ExcludePatterns are regexes matched against the root-relative path of
	// each file; matching files are skipped. Default: none
	ExcludePatterns []string `yaml:"exclude_patterns"`

	Check     CheckConfig     `yaml:"check"`
	Blame     BlameConfig     `yaml:"blame"`
	Lint      LintConfig      `yaml:"lint"`
	Workspace WorkspaceConfig `yaml:"workspace"`
}

// CheckConfig holds the CI gate thresholds enforced by `todoscan check`.
type CheckConfig struct {
	// Max is the total marker count the tree may carry. nil = no limit.
	Max *int `yaml:"max"`

	// MaxNew caps markers added relative to a base ref. Requires --since.
	// nil = no limit.
	MaxNew *int `yaml:"max_new"`

	// BlockTags fail the check outright when present, compared
	// case-insensitively (e.g. ["FIXME"]). Default: none
	BlockTags []string `yaml:"block_tags"`

	// Expired fails the check when any marker's deadline has passed.
	// Default: false
	Expired bool `yaml:"expired"`
}

// BlameConfig configures `todoscan blame` age reporting.
type BlameConfig struct {
	// StaleThreshold is the age at which a marker counts as stale, written
	// as a day count with an optional "d" suffix (e.g. "180d").
	// Empty = the built-in 365d default.
	StaleThreshold string `yaml:"stale_threshold"`
}

// LintConfig selects the style rules enforced by `todoscan lint`.
type LintConfig struct {
	// NoBareTags flags markers with no message text. Default: true
	NoBareTags bool `yaml:"no_bare_tags"`

	// MaxMessageLength flags messages longer than this many characters.
	// nil = no limit.
	MaxMessageLength *int `yaml:"max_message_length"`

	// RequireAuthor lists tags that must carry an author attribution,
	// e.g. ["FIXME", "BUG"]. Default: none
	RequireAuthor []string `yaml:"require_author"`

	// RequireIssueRef lists tags that must reference an issue. Default: none
	RequireIssueRef []string `yaml:"require_issue_ref"`

	// UppercaseTag flags tags not written in all caps. Default: true
	UppercaseTag bool `yaml:"uppercase_tag"`

	// RequireColon flags tags not followed by a colon. Default: true
	RequireColon bool `yaml:"require_colon"`
}

// WorkspaceConfig configures per-package budgets for monorepos.
type WorkspaceConfig struct {
	// AutoDetect controls manifest-based package discovery (Cargo, npm,
	// pnpm, Nx, go.work). Only an explicit false disables it, restricting
	// detection to the manual Packages map.
	AutoDetect *bool `yaml:"auto_detect"`

	// Packages maps package names to their own budgets, keyed by the
	// name reported in `todoscan workspace` output. When no manifest
	// declares a workspace, the keys double as the package directories.
	Packages map[string]PackageRules `yaml:"packages"`
}

// PackageRules are the per-package overrides applied during workspace checks.
type PackageRules struct {
	Max       *int     `yaml:"max"`
	BlockTags []string `yaml:"block_tags"`
}

// Default returns the configuration used when no .todoscan.yaml exists:
// the six builtin tags and no exclusions or thresholds.
func Default() Config {
	tags := make([]string, 0, len(marker.BuiltinTags()))
	for _, t := range marker.BuiltinTags() {
		tags = append(tags, string(t))
	}
	return Config{
		Tags: tags,
		Lint: LintConfig{
			NoBareTags:   true,
			UppercaseTag: true,
			RequireColon: true,
		},
	}
}

// Find searches for .todoscan.yaml starting at startDir and walking up
// through parent directories. Returns the path of the first file found.
func Find(startDir string) (string, bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Load reads the config governing startDir, searching upward for
// .todoscan.yaml. A missing file is not an error: defaults apply.
func Load(startDir string) (Config, error) {
	path, ok := Find(startDir)
	if !ok {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads config from an explicit path. Unlike Load, a missing
// file is an error here: the caller asked for this file specifically.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

func parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file: defaults.
			return Default(), nil
		}
		return Config{}, err
	}
	return cfg, nil
}

// TagsOrDefault returns the configured tags, falling back to the builtin
// set when the config cleared the list (e.g. "tags: []").
func (c *Config) TagsOrDefault() []string {
	if len(c.Tags) > 0 {
		return c.Tags
	}
	return Default().Tags
}

// HashKey fingerprints the settings that change scan results: tags,
// excluded directories, and excluded patterns. Cached scans taken under
// a different key are discarded. Check/lint/blame thresholds are applied
// after scanning, so they do not participate.
func (c *Config) HashKey() string {
	h := sha256.New()
	for _, tag := range c.Tags {
		h.Write([]byte(tag))
		h.Write([]byte{0})
	}
	h.Write([]byte{1})
	for _, dir := range c.ExcludeDirs {
		h.Write([]byte(dir))
		h.Write([]byte{0})
	}
	h.Write([]byte{1})
	for _, pat := range c.ExcludePatterns {
		h.Write([]byte(pat))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// AutoDetectEnabled reports whether manifest-based workspace detection
// should run. Unset means enabled.
func (w *WorkspaceConfig) AutoDetectEnabled() bool {
	return w.AutoDetect == nil || *w.AutoDetect
}
