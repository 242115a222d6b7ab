package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todoscan/todoscan/internal/check"
	"github.com/todoscan/todoscan/internal/config"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func mkdir(t *testing.T, root, rel string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(rel)), 0o755))
}

func intPtr(n int) *int { return &n }

func TestDetectNothing(t *testing.T) {
	ws, err := Detect(t.TempDir(), config.Default())

	require.NoError(t, err)
	assert.Nil(t, ws)
}

func TestDetectCargoMembersSortedByPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "[workspace]\nmembers = [\"core\", \"cli\"]\n")
	mkdir(t, root, "core")
	mkdir(t, root, "cli")

	ws, err := Detect(root, config.Default())

	require.NoError(t, err)
	require.NotNil(t, ws)
	assert.Equal(t, KindCargo, ws.Kind)
	require.Len(t, ws.Packages, 2)
	assert.Equal(t, Package{Name: "cli", Path: "cli"}, ws.Packages[0])
	assert.Equal(t, Package{Name: "core", Path: "core"}, ws.Packages[1])
}

func TestDetectCargoGlobMembers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "[workspace]\nmembers = [\"crates/*\"]\n")
	mkdir(t, root, "crates/alpha")
	mkdir(t, root, "crates/beta")
	writeFile(t, root, "crates/README.md", "not a package")

	ws, err := Detect(root, config.Default())

	require.NoError(t, err)
	require.NotNil(t, ws)
	require.Len(t, ws.Packages, 2)
	assert.Equal(t, Package{Name: "alpha", Path: "crates/alpha"}, ws.Packages[0])
	assert.Equal(t, Package{Name: "beta", Path: "crates/beta"}, ws.Packages[1])
}

func TestDetectCargoWithoutWorkspaceSection(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "[package]\nname = \"solo\"\n")

	ws, err := Detect(root, config.Default())

	require.NoError(t, err)
	assert.Nil(t, ws)
}

func TestDetectCargoDropsMissingMembers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "[workspace]\nmembers = [\"core\", \"ghost\"]\n")
	mkdir(t, root, "core")

	ws, err := Detect(root, config.Default())

	require.NoError(t, err)
	require.NotNil(t, ws)
	require.Len(t, ws.Packages, 1)
	assert.Equal(t, "core", ws.Packages[0].Name)
}

func TestDetectInvalidCargoErrors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "members = [broken\n")

	_, err := Detect(root, config.Default())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cargo.toml")
}

func TestDetectNpmWorkspaces(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"name": "mono", "workspaces": ["packages/*"]}`)
	mkdir(t, root, "packages/alpha")
	mkdir(t, root, "packages/beta")

	ws, err := Detect(root, config.Default())

	require.NoError(t, err)
	require.NotNil(t, ws)
	assert.Equal(t, KindNpm, ws.Kind)
	require.Len(t, ws.Packages, 2)
	assert.Equal(t, "packages/alpha", ws.Packages[0].Path)
	assert.Equal(t, "packages/beta", ws.Packages[1].Path)
}

func TestDetectNpmObjectFormIgnored(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"workspaces": {"packages": ["pkg/*"]}}`)
	mkdir(t, root, "pkg/one")

	ws, err := Detect(root, config.Default())

	require.NoError(t, err)
	assert.Nil(t, ws)
}

func TestDetectPnpm(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pnpm-workspace.yaml", "packages:\n  - \"apps/*\"\n  - \"libs/*\"\n")
	mkdir(t, root, "apps/web")
	mkdir(t, root, "libs/ui")

	ws, err := Detect(root, config.Default())

	require.NoError(t, err)
	require.NotNil(t, ws)
	assert.Equal(t, KindPnpm, ws.Kind)
	require.Len(t, ws.Packages, 2)
	assert.Equal(t, Package{Name: "web", Path: "apps/web"}, ws.Packages[0])
	assert.Equal(t, Package{Name: "ui", Path: "libs/ui"}, ws.Packages[1])
}

func TestDetectNxSortsByNameAndSkipsNonDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "workspace.json", `{
		"version": 2,
		"projects": {
			"web": "apps/web",
			"api": "apps/api",
			"ghost": "missing/dir",
			"inline": {"root": "apps/inline"}
		}
	}`)
	mkdir(t, root, "apps/web")
	mkdir(t, root, "apps/api")

	ws, err := Detect(root, config.Default())

	require.NoError(t, err)
	require.NotNil(t, ws)
	assert.Equal(t, KindNx, ws.Kind)
	require.Len(t, ws.Packages, 2)
	assert.Equal(t, Package{Name: "api", Path: "apps/api"}, ws.Packages[0])
	assert.Equal(t, Package{Name: "web", Path: "apps/web"}, ws.Packages[1])
}

func TestDetectNxWithoutProjects(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "workspace.json", `{"version": 2}`)

	ws, err := Detect(root, config.Default())

	require.NoError(t, err)
	assert.Nil(t, ws)
}

func TestDetectGoWork(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.work", "go 1.25\n\nuse (\n\t./svc-a\n\t./svc-b\n)\n")
	writeFile(t, root, "svc-a/go.mod", "module example.com/group/alpha\n\ngo 1.25\n")
	mkdir(t, root, "svc-b")

	ws, err := Detect(root, config.Default())

	require.NoError(t, err)
	require.NotNil(t, ws)
	assert.Equal(t, KindGoWork, ws.Kind)
	require.Len(t, ws.Packages, 2)
	assert.Equal(t, Package{Name: "alpha", Path: "svc-a"}, ws.Packages[0], "name comes from the module path")
	assert.Equal(t, Package{Name: "svc-b", Path: "svc-b"}, ws.Packages[1], "missing go.mod falls back to the dir name")
}

func TestDetectGoWorkSingleUse(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.work", "go 1.25\n\nuse ./single\n")
	mkdir(t, root, "single")

	ws, err := Detect(root, config.Default())

	require.NoError(t, err)
	require.NotNil(t, ws)
	require.Len(t, ws.Packages, 1)
	assert.Equal(t, "single", ws.Packages[0].Path)
}

func TestDetectOrderPrefersCargo(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "[workspace]\nmembers = [\"rustpkg\"]\n")
	writeFile(t, root, "package.json", `{"workspaces": ["jspkg"]}`)
	mkdir(t, root, "rustpkg")
	mkdir(t, root, "jspkg")

	ws, err := Detect(root, config.Default())

	require.NoError(t, err)
	require.NotNil(t, ws)
	assert.Equal(t, KindCargo, ws.Kind)
}

func TestDetectManualWhenAutoDetectOff(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "[workspace]\nmembers = [\"core\"]\n")
	mkdir(t, root, "core")

	off := false
	cfg := config.Default()
	cfg.Workspace.AutoDetect = &off
	cfg.Workspace.Packages = map[string]config.PackageRules{"svc": {}}

	ws, err := Detect(root, cfg)

	require.NoError(t, err)
	require.NotNil(t, ws)
	assert.Equal(t, KindManual, ws.Kind)
	require.Len(t, ws.Packages, 1)
	assert.Equal(t, Package{Name: "svc", Path: "svc"}, ws.Packages[0])
}

func TestDetectManualFallback(t *testing.T) {
	cfg := config.Default()
	cfg.Workspace.Packages = map[string]config.PackageRules{"b": {}, "a": {}}

	ws, err := Detect(t.TempDir(), cfg)

	require.NoError(t, err)
	require.NotNil(t, ws)
	assert.Equal(t, KindManual, ws.Kind)
	require.Len(t, ws.Packages, 2)
	assert.Equal(t, "a", ws.Packages[0].Name)
	assert.Equal(t, "b", ws.Packages[1].Name)
}

func TestGlobPrefix(t *testing.T) {
	assert.Equal(t, "packages", globPrefix("packages/*"))
	assert.Equal(t, "a/b", globPrefix("a/b/*-suffix"))
	assert.Equal(t, "", globPrefix("*"))
}

func summarizeFixture(t *testing.T) (string, config.Config) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "[workspace]\nmembers = [\"svc-a\", \"svc-b\", \"svc-c\"]\n")
	writeFile(t, root, "svc-a/main.go", "package main\n// TODO: first\n// FIXME: second\n")
	writeFile(t, root, "svc-b/lib.go", "package lib\n// TODO: only one\n")
	mkdir(t, root, "svc-c")

	cfg := config.Default()
	cfg.Workspace.Packages = map[string]config.PackageRules{
		"svc-a": {Max: intPtr(1)},
		"svc-b": {Max: intPtr(5)},
	}
	return root, cfg
}

func TestSummarize(t *testing.T) {
	root, cfg := summarizeFixture(t)

	ws, err := Detect(root, cfg)
	require.NoError(t, err)
	require.NotNil(t, ws)

	summary, err := Summarize(context.Background(), root, ws, cfg, true)

	require.NoError(t, err)
	assert.Equal(t, KindCargo, summary.Kind)
	assert.Equal(t, 3, summary.TotalPackages)
	assert.Equal(t, 3, summary.TotalTodos)
	require.Len(t, summary.Packages, 3)

	a := summary.Packages[0]
	assert.Equal(t, "svc-a", a.Name)
	assert.Equal(t, 2, a.Count)
	assert.Equal(t, StatusOver, a.Status)

	b := summary.Packages[1]
	assert.Equal(t, 1, b.Count)
	assert.Equal(t, StatusOK, b.Status)

	c := summary.Packages[2]
	assert.Equal(t, 0, c.Count)
	assert.Nil(t, c.Max)
	assert.Equal(t, StatusUncapped, c.Status)
}

func TestSummarizeExcludesSuppressed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "[workspace]\nmembers = [\"svc\"]\n")
	writeFile(t, root, "svc/main.go", "package main\n// TODO: counted\n// TODO: hidden todo-ignore\n")

	cfg := config.Default()
	ws, err := Detect(root, cfg)
	require.NoError(t, err)

	summary, err := Summarize(context.Background(), root, ws, cfg, true)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalTodos)
	assert.Equal(t, 1, summary.Packages[0].Count)
}

func TestRunChecksReportsViolations(t *testing.T) {
	root, cfg := summarizeFixture(t)
	rules := cfg.Workspace.Packages["svc-a"]
	rules.BlockTags = []string{"FIXME"}
	cfg.Workspace.Packages["svc-a"] = rules

	ws, err := Detect(root, cfg)
	require.NoError(t, err)

	res, err := RunChecks(context.Background(), root, ws, cfg, true)

	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, 3, res.Total)

	rulesSeen := make(map[check.Rule]int)
	for _, v := range res.Violations {
		rulesSeen[v.Rule]++
	}
	assert.Equal(t, 1, rulesSeen[check.RuleWorkspaceMax], "svc-a is over its budget of 1")
	assert.Equal(t, 1, rulesSeen[check.RuleWorkspaceBlockTag], "svc-a carries a blocked FIXME")
}

func TestRunChecksPassesUnderBudget(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "[workspace]\nmembers = [\"svc\"]\n")
	writeFile(t, root, "svc/main.go", "package main\n// TODO: fine\n")

	cfg := config.Default()
	cfg.Workspace.Packages = map[string]config.PackageRules{"svc": {Max: intPtr(10)}}

	ws, err := Detect(root, cfg)
	require.NoError(t, err)

	res, err := RunChecks(context.Background(), root, ws, cfg, true)

	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Empty(t, res.Violations)
	assert.Equal(t, 1, res.Total)
}
