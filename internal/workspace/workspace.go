// Package workspace discovers monorepo package layouts and runs per-package
// scans for the workspace commands. Detection walks a fixed chain of
// manifest formats and stops at the first that yields packages; the manual
// config map is the final fallback and also supplies per-package budgets
// for whatever layout won.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/todoscan/todoscan/internal/check"
	"github.com/todoscan/todoscan/internal/config"
	"github.com/todoscan/todoscan/internal/ignore"
	"github.com/todoscan/todoscan/internal/marker"
	"github.com/todoscan/todoscan/internal/scan"
)

// Kind names the manifest format that defined the workspace.
type Kind string

const (
	KindCargo  Kind = "cargo"
	KindNpm    Kind = "npm"
	KindPnpm   Kind = "pnpm"
	KindNx     Kind = "nx"
	KindGoWork Kind = "go"
	KindManual Kind = "manual"
)

// Package is one member of a workspace. Path is root-relative with forward
// slashes, the way manifests write it.
type Package struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Workspace is a detected package layout.
type Workspace struct {
	Kind     Kind      `json:"kind"`
	Packages []Package `json:"packages"`
}

// Detect tries each manifest format in order (Cargo, npm, pnpm, Nx, go.work)
// and falls back to the manual config packages. Returns nil when nothing
// declares a workspace. A present but unparseable manifest is an error;
// detection never guesses past one.
func Detect(root string, cfg config.Config) (*Workspace, error) {
	if !cfg.Workspace.AutoDetectEnabled() {
		return detectManual(cfg), nil
	}

	detectors := []func(string) (*Workspace, error){
		detectCargo,
		detectNpm,
		detectPnpm,
		detectNx,
		detectGoWork,
	}
	for _, detect := range detectors {
		ws, err := detect(root)
		if err != nil {
			return nil, err
		}
		if ws != nil {
			return ws, nil
		}
	}

	return detectManual(cfg), nil
}

func detectCargo(root string) (*Workspace, error) {
	data, err := readManifest(root, "Cargo.toml")
	if data == nil {
		return nil, err
	}

	var manifest struct {
		Workspace struct {
			Members []string `toml:"members"`
		} `toml:"workspace"`
	}
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse Cargo.toml: %w", err)
	}

	packages := resolveMembers(root, manifest.Workspace.Members)
	if len(packages) == 0 {
		return nil, nil
	}
	sortByPath(packages)
	return &Workspace{Kind: KindCargo, Packages: packages}, nil
}

func detectNpm(root string) (*Workspace, error) {
	data, err := readManifest(root, "package.json")
	if data == nil {
		return nil, err
	}

	var manifest struct {
		Workspaces json.RawMessage `json:"workspaces"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse package.json: %w", err)
	}
	if len(manifest.Workspaces) == 0 {
		return nil, nil
	}

	// npm also allows an object form with nohoist settings; only the
	// plain array declares members.
	var patterns []string
	if err := json.Unmarshal(manifest.Workspaces, &patterns); err != nil {
		return nil, nil
	}

	packages := resolveMembers(root, patterns)
	if len(packages) == 0 {
		return nil, nil
	}
	sortByPath(packages)
	return &Workspace{Kind: KindNpm, Packages: packages}, nil
}

func detectPnpm(root string) (*Workspace, error) {
	data, err := readManifest(root, "pnpm-workspace.yaml")
	if data == nil {
		return nil, err
	}

	var manifest struct {
		Packages []string `yaml:"packages"`
	}
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse pnpm-workspace.yaml: %w", err)
	}

	packages := resolveMembers(root, manifest.Packages)
	if len(packages) == 0 {
		return nil, nil
	}
	sortByPath(packages)
	return &Workspace{Kind: KindPnpm, Packages: packages}, nil
}

func detectNx(root string) (*Workspace, error) {
	data, err := readManifest(root, "workspace.json")
	if data == nil {
		return nil, err
	}

	var manifest struct {
		Projects map[string]json.RawMessage `json:"projects"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse workspace.json: %w", err)
	}

	var packages []Package
	for name, raw := range manifest.Projects {
		// Newer Nx versions inline project config objects here; only
		// string values are paths.
		var p string
		if json.Unmarshal(raw, &p) != nil {
			continue
		}
		if isDir(filepath.Join(root, filepath.FromSlash(p))) {
			packages = append(packages, Package{Name: name, Path: p})
		}
	}
	if len(packages) == 0 {
		return nil, nil
	}
	sort.Slice(packages, func(i, j int) bool { return packages[i].Name < packages[j].Name })
	return &Workspace{Kind: KindNx, Packages: packages}, nil
}

func detectGoWork(root string) (*Workspace, error) {
	data, err := readManifest(root, "go.work")
	if data == nil {
		return nil, err
	}

	wf, err := modfile.ParseWork("go.work", data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse go.work: %w", err)
	}

	var packages []Package
	for _, use := range wf.Use {
		rel := strings.TrimPrefix(use.Path, "./")
		if rel == "" || !isDir(filepath.Join(root, filepath.FromSlash(rel))) {
			continue
		}
		packages = append(packages, Package{Name: goModuleName(root, rel), Path: rel})
	}
	if len(packages) == 0 {
		return nil, nil
	}
	sortByPath(packages)
	return &Workspace{Kind: KindGoWork, Packages: packages}, nil
}

// goModuleName names a go.work member after its module path. Members
// without a readable go.mod fall back to the directory name.
func goModuleName(root, rel string) string {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel), "go.mod"))
	if err == nil {
		if mp := modfile.ModulePath(data); mp != "" {
			return path.Base(mp)
		}
	}
	return path.Base(rel)
}

func detectManual(cfg config.Config) *Workspace {
	if len(cfg.Workspace.Packages) == 0 {
		return nil
	}

	packages := make([]Package, 0, len(cfg.Workspace.Packages))
	for name := range cfg.Workspace.Packages {
		packages = append(packages, Package{Name: name, Path: name})
	}
	sort.Slice(packages, func(i, j int) bool { return packages[i].Name < packages[j].Name })
	return &Workspace{Kind: KindManual, Packages: packages}
}

// readManifest returns nil data for a missing file and an error for any
// other read failure.
func readManifest(root, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// resolveMembers turns manifest member entries (literal paths or globs)
// into packages. Literals must exist as directories; globs expand one
// directory level under their fixed prefix, the way package managers
// interpret "packages/*".
func resolveMembers(root string, members []string) []Package {
	var packages []Package
	for _, member := range members {
		if !strings.ContainsAny(member, "*?[") {
			rel := strings.TrimPrefix(member, "./")
			if rel != "" && isDir(filepath.Join(root, filepath.FromSlash(rel))) {
				packages = append(packages, Package{Name: path.Base(rel), Path: rel})
			}
			continue
		}
		for _, rel := range expandGlob(root, member) {
			packages = append(packages, Package{Name: path.Base(rel), Path: rel})
		}
	}
	return packages
}

func expandGlob(root, pattern string) []string {
	re, err := ignore.CompileGlob(pattern)
	if err != nil {
		return nil
	}

	prefix := globPrefix(pattern)
	entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(prefix)))
	if err != nil {
		return nil
	}

	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		rel := path.Join(prefix, e.Name())
		if re.MatchString(rel) {
			out = append(out, rel)
		}
	}
	sort.Strings(out)
	return out
}

// globPrefix is the fixed directory part before the first glob segment:
// "packages/*" -> "packages", "*" -> "".
func globPrefix(pattern string) string {
	var fixed []string
	for _, part := range strings.Split(pattern, "/") {
		if strings.ContainsAny(part, "*?[") {
			break
		}
		fixed = append(fixed, part)
	}
	return strings.Join(fixed, "/")
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

func sortByPath(packages []Package) {
	sort.Slice(packages, func(i, j int) bool { return packages[i].Path < packages[j].Path })
}

// Status classifies a package against its configured budget.
type Status string

const (
	StatusOK       Status = "ok"
	StatusOver     Status = "over"
	StatusUncapped Status = "uncapped"
)

// PackageSummary is one row of the workspace list output.
type PackageSummary struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Count  int    `json:"todo_count"`
	Max    *int   `json:"max,omitempty"`
	Status Status `json:"status"`
}

// Summary is the workspace list payload.
type Summary struct {
	Kind          Kind             `json:"kind"`
	Packages      []PackageSummary `json:"packages"`
	TotalPackages int              `json:"total_packages"`
	TotalTodos    int              `json:"total_todos"`
}

// Summarize scans every package and reports its marker count against the
// configured per-package budget. Package scans run concurrently.
func Summarize(ctx context.Context, root string, ws *Workspace, cfg config.Config, noCache bool) (*Summary, error) {
	scans, err := scanPackages(ctx, root, ws, cfg, noCache)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Kind: ws.Kind, TotalPackages: len(scans)}
	for _, ps := range scans {
		count := countUnsuppressed(ps.records)
		summary.TotalTodos += count

		rules := cfg.Workspace.Packages[ps.pkg.Name]
		status := StatusUncapped
		if rules.Max != nil {
			status = StatusOK
			if count > *rules.Max {
				status = StatusOver
			}
		}

		summary.Packages = append(summary.Packages, PackageSummary{
			Name:   ps.pkg.Name,
			Path:   ps.pkg.Path,
			Count:  count,
			Max:    rules.Max,
			Status: status,
		})
	}
	return summary, nil
}

// RunChecks scans every package and applies its per-package rules,
// producing one combined gate result.
func RunChecks(ctx context.Context, root string, ws *Workspace, cfg config.Config, noCache bool) (*check.Result, error) {
	scans, err := scanPackages(ctx, root, ws, cfg, noCache)
	if err != nil {
		return nil, err
	}

	res := &check.Result{}
	for _, ps := range scans {
		res.Total += countUnsuppressed(ps.records)
		violations := check.RunPackage(ps.pkg.Name, ps.records, cfg.Workspace.Packages[ps.pkg.Name])
		res.Violations = append(res.Violations, violations...)
	}
	res.Passed = len(res.Violations) == 0
	return res, nil
}

type packageScan struct {
	pkg     Package
	records []marker.Record
}

func scanPackages(ctx context.Context, root string, ws *Workspace, cfg config.Config, noCache bool) ([]packageScan, error) {
	out := make([]packageScan, len(ws.Packages))

	pool, gctx := errgroup.WithContext(ctx)
	pool.SetLimit(runtime.GOMAXPROCS(0))
	for i, pkg := range ws.Packages {
		i, pkg := i, pkg
		pool.Go(func() error {
			res, err := scan.Scan(gctx, scan.Options{
				Root:    filepath.Join(root, filepath.FromSlash(pkg.Path)),
				Config:  cfg,
				NoCache: noCache,
			})
			if err != nil {
				return fmt.Errorf("failed to scan package %s: %w", pkg.Name, err)
			}
			out[i] = packageScan{pkg: pkg, records: res.Records}
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func countUnsuppressed(records []marker.Record) int {
	n := 0
	for _, r := range records {
		if !r.Suppressed {
			n++
		}
	}
	return n
}
