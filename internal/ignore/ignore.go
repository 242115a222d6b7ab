// Package ignore evaluates gitignore-style exclusion rules against
// root-relative paths. The scanner feeds it the repository's top-level
// .gitignore so scan results line up with what git actually tracks.
package ignore

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// GitignoreName is the rules file read from the scan root.
const GitignoreName = ".gitignore"

type rule struct {
	pattern  string
	re       *regexp.Regexp
	negated  bool
	dirOnly  bool
	anchored bool
}

// Matcher applies ordered ignore rules with last-rule-wins semantics.
// A nil Matcher matches nothing.
type Matcher struct {
	rules []rule
}

// New parses raw ignore lines in order. Blank lines and # comments are
// skipped; malformed patterns are dropped rather than failing the scan.
func New(lines []string) *Matcher {
	m := &Matcher{rules: make([]rule, 0, len(lines))}
	for _, line := range lines {
		if r, ok := parseRule(line); ok {
			m.rules = append(m.rules, r)
		}
	}
	return m
}

// Load reads .gitignore from root. A missing or unreadable file yields an
// empty matcher: ignore rules are a convenience, never a scan failure.
func Load(root string) *Matcher {
	data, err := os.ReadFile(filepath.Join(root, GitignoreName))
	if err != nil {
		return New(nil)
	}
	return New(strings.Split(string(data), "\n"))
}

// Match reports whether relPath is excluded by the rules. isDir selects
// directory semantics: trailing-slash rules match directories and their
// contents but never a plain file of the same name.
func (m *Matcher) Match(relPath string, isDir bool) bool {
	if m == nil || len(m.rules) == 0 {
		return false
	}
	relPath = normalize(relPath)
	ignored := false
	for _, r := range m.rules {
		if r.matches(relPath, isDir) {
			ignored = !r.negated
		}
	}
	return ignored
}

func parseRule(line string) (rule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return rule{}, false
	}

	r := rule{}
	if strings.HasPrefix(line, "!") {
		r.negated = true
		line = strings.TrimPrefix(line, "!")
	}
	if strings.HasPrefix(line, "/") {
		r.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}

	line = normalize(line)
	if line == "" {
		return rule{}, false
	}

	re, err := CompileGlob(line)
	if err != nil {
		return rule{}, false
	}
	r.pattern = line
	r.re = re
	return r, true
}

// CompileGlob translates a glob pattern into an anchored regexp: `*` matches
// within a path segment, `**` across segments, `?` a single character.
// The same dialect backs ignore rules and --path filters.
func CompileGlob(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^" + globToRegex(normalize(pattern)) + "$")
}

func (r rule) matches(relPath string, isDir bool) bool {
	if r.dirOnly {
		return r.matchesDir(relPath, isDir)
	}

	if r.anchored {
		return r.re.MatchString(relPath)
	}

	parts := strings.Split(relPath, "/")
	if strings.Contains(r.pattern, "/") {
		// Multi-segment pattern: try the full path and every suffix.
		for i := 0; i < len(parts); i++ {
			if r.re.MatchString(strings.Join(parts[i:], "/")) {
				return true
			}
		}
		return false
	}

	for _, segment := range parts {
		if r.re.MatchString(segment) {
			return true
		}
	}
	return false
}

// matchesDir handles trailing-slash rules. The rule matches when some
// directory on the path matches the pattern; the final segment only
// counts if the path itself is a directory.
func (r rule) matchesDir(relPath string, isDir bool) bool {
	parts := strings.Split(relPath, "/")
	for i := range parts {
		if i == len(parts)-1 && !isDir {
			break
		}
		if r.anchored {
			if r.re.MatchString(strings.Join(parts[:i+1], "/")) {
				return true
			}
			continue
		}
		for j := 0; j <= i; j++ {
			if r.re.MatchString(strings.Join(parts[j:i+1], "/")) {
				return true
			}
		}
	}
	return false
}

func globToRegex(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]

		switch ch {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		default:
			if strings.ContainsRune(`.+()|[]{}^$\`, rune(ch)) {
				b.WriteByte('\\')
			}
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func normalize(path string) string {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")
	path = strings.TrimPrefix(path, "/")
	return path
}
