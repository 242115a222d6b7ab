// Package git shells out to the git CLI for the history-aware commands:
// listing and reading files at a base ref, detecting changed files, and
// per-line blame attribution.
package git

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Git runs repository operations through the git CLI.
type Git struct {
	// gitPath is the path to the git executable
	gitPath string
}

// NewGit creates a new Git instance.
// It verifies that git is available on the system.
func NewGit(ctx context.Context) (*Git, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("git not found in PATH: %w", err)
	}

	// Verify git works
	cmd := exec.CommandContext(ctx, gitPath, "version")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git command failed: %w", err)
	}

	return &Git{gitPath: gitPath}, nil
}

// ValidateRef rejects ref names that git would parse as command options.
// User-supplied refs must pass this before reaching any git invocation.
func ValidateRef(ref string) error {
	if ref == "" {
		return fmt.Errorf("empty git ref")
	}
	if strings.HasPrefix(ref, "-") {
		return fmt.Errorf("invalid git ref %q: must not start with '-'", ref)
	}
	return nil
}

// ResolveRef resolves a ref name (branch, tag, HEAD~3, ...) to the full
// commit hash it points at.
func (g *Git) ResolveRef(ctx context.Context, repoPath, ref string) (string, error) {
	if err := ValidateRef(ref); err != nil {
		return "", err
	}
	cmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath, "rev-parse", "--verify", ref+"^{commit}")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to resolve ref %q in %s: %w", ref, repoPath, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// ListTree returns the root-relative paths of every file tracked at ref.
func (g *Git) ListTree(ctx context.Context, repoPath, ref string) ([]string, error) {
	if err := ValidateRef(ref); err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath, "ls-tree", "-r", "--name-only", "--", ref)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list files at ref %s in %s: %w", ref, repoPath, err)
	}
	return nonEmptyLines(output), nil
}

// ChangedFiles returns the files that differ between ref and the current
// working tree: committed changes since ref plus unstaged edits. Untracked
// files do not appear here; callers must account for them separately.
func (g *Git) ChangedFiles(ctx context.Context, repoPath, ref string) ([]string, error) {
	if err := ValidateRef(ref); err != nil {
		return nil, err
	}

	vsRef, err := g.diffNameOnly(ctx, repoPath, ref)
	if err != nil {
		return nil, err
	}
	unstaged, err := g.diffNameOnly(ctx, repoPath, "")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var merged []string
	for _, path := range append(vsRef, unstaged...) {
		if !seen[path] {
			seen[path] = true
			merged = append(merged, path)
		}
	}
	return merged, nil
}

func (g *Git) diffNameOnly(ctx context.Context, repoPath, ref string) ([]string, error) {
	args := []string{"-C", repoPath, "diff", "--name-only"}
	if ref != "" {
		args = append(args, ref)
	}
	cmd := exec.CommandContext(ctx, g.gitPath, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff failed in %s: %w", repoPath, err)
	}
	return nonEmptyLines(output), nil
}

// ShowFile returns the content of path as committed at ref.
func (g *Git) ShowFile(ctx context.Context, repoPath, ref, path string) ([]byte, error) {
	if err := ValidateRef(ref); err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath, "show", ref+":"+path)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to show %s at ref %s in %s: %w", path, ref, repoPath, err)
	}
	return output, nil
}

// LineBlame is the commit attribution for a single line of a file.
type LineBlame struct {
	Author    string
	Email     string
	Timestamp int64
	Commit    string
}

// BlameFile runs git blame --porcelain on path and returns attribution
// keyed by line number. Fails for untracked files.
func (g *Git) BlameFile(ctx context.Context, repoPath, path string) (map[int]LineBlame, error) {
	cmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath, "blame", "--porcelain", "--", path)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git blame failed for %s in %s: %w", path, repoPath, err)
	}
	return ParsePorcelainBlame(string(output)), nil
}

// BlameLines blames only the given line numbers of path, one -L range per
// line in a single invocation, so git never walks history for the rest of
// the file. Fails for untracked files.
func (g *Git) BlameLines(ctx context.Context, repoPath, path string, lines []int) (map[int]LineBlame, error) {
	if len(lines) == 0 {
		return map[int]LineBlame{}, nil
	}

	args := []string{"-C", repoPath, "blame", "--porcelain"}
	for _, n := range lines {
		args = append(args, "-L", fmt.Sprintf("%d,%d", n, n))
	}
	args = append(args, "--", path)

	cmd := exec.CommandContext(ctx, g.gitPath, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git blame failed for %s in %s: %w", path, repoPath, err)
	}
	return ParsePorcelainBlame(string(output)), nil
}

// ParsePorcelainBlame parses `git blame --porcelain` output into a map of
// final line number to blame data. Each entry starts with a header line
// "<40-hex-hash> <orig-line> <final-line> [<num-lines>]", followed by
// attribution fields, and ends with the tab-prefixed content line.
func ParsePorcelainBlame(output string) map[int]LineBlame {
	result := make(map[int]LineBlame)

	var (
		currentLine   int // 0 means no header seen yet
		currentCommit string
		currentAuthor string
		currentEmail  string
		currentTime   int64
	)

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case isBlameHeader(line):
			parts := strings.Fields(line)
			if len(parts) >= 3 {
				currentCommit = parts[0][:8]
				if n, err := strconv.Atoi(parts[2]); err == nil {
					currentLine = n
				} else {
					currentLine = 0
				}
			}
		case strings.HasPrefix(line, "author "):
			currentAuthor = strings.TrimPrefix(line, "author ")
		case strings.HasPrefix(line, "author-mail "):
			currentEmail = strings.Trim(strings.TrimPrefix(line, "author-mail "), "<>")
		case strings.HasPrefix(line, "author-time "):
			// A malformed timestamp degrades to 0 rather than dropping the line.
			currentTime, _ = strconv.ParseInt(strings.TrimPrefix(line, "author-time "), 10, 64)
		case strings.HasPrefix(line, "\t"):
			// Content line marks the end of a blame entry.
			if currentLine > 0 {
				result[currentLine] = LineBlame{
					Author:    currentAuthor,
					Email:     currentEmail,
					Timestamp: currentTime,
					Commit:    currentCommit,
				}
				currentLine = 0
			}
		}
	}

	return result
}

func isBlameHeader(line string) bool {
	if len(line) < 40 {
		return false
	}
	for i := 0; i < 40; i++ {
		c := line[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

func nonEmptyLines(output []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
