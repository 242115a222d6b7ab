package marker

import (
	"fmt"
	"regexp"
	"strings"
)

// Suppression tokens. The inline token suppresses the marker on its own
// line; the next-line token suppresses a marker on the immediately
// following line. The inline token is a prefix of the next-line token, so
// detection always checks the longer one first.
const (
	IgnoreToken         = "todo-ignore"
	IgnoreNextLineToken = "todo-ignore-next-line"
)

// commentPrefixes can introduce a comment anywhere on a line.
var commentPrefixes = []string{"//", "#", "/*", "--", "<!--", ";", "(*", "{-", "%"}

// lineStartPrefixes only count at the start of a line (after leading
// whitespace); "*" is a block-comment continuation line.
var lineStartPrefixes = []string{"*"}

var issueRefPattern = regexp.MustCompile(`(?:([A-Z]+-\d+)|#(\d+))`)

// Grammar recognizes marker comments in single lines of text. It is a
// pure classifier: one line in, at most one record out. Next-line
// suppression needs lookahead and is resolved by the extractor.
type Grammar struct {
	pattern *regexp.Regexp
}

// NewGrammar compiles the tag pattern for the given tag names. Tag names
// are matched case-insensitively on word boundaries; regex metacharacters
// in configured tags are escaped, not interpreted.
func NewGrammar(tags []string) (*Grammar, error) {
	if len(tags) == 0 {
		return nil, fmt.Errorf("no tags configured")
	}
	escaped := make([]string, len(tags))
	for i, t := range tags {
		escaped[i] = regexp.QuoteMeta(t)
	}
	expr := fmt.Sprintf(`(?i)\b(%s)\b(?:\(([^)]+)\))?:?\s*(!{1,2})?\s*(.*)$`, strings.Join(escaped, "|"))
	pattern, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compiling tag pattern: %w", err)
	}
	return &Grammar{pattern: pattern}, nil
}

// Match classifies one line. The returned record carries everything except
// file identity and line number, which the extractor fills in. Inline
// suppression is resolved here; next-line suppression is not.
func (g *Grammar) Match(line string) (Record, bool) {
	idx := g.pattern.FindStringSubmatchIndex(line)
	if idx == nil {
		return Record{}, false
	}

	tagStart, tagEnd := idx[2], idx[3]
	if !InComment(line, tagStart) {
		return Record{}, false
	}
	// A tag immediately followed by a hyphen is part of a longer token,
	// such as the todo-ignore directives themselves.
	if tagEnd < len(line) && line[tagEnd] == '-' {
		return Record{}, false
	}

	tag, err := ParseTag(line[tagStart:tagEnd])
	if err != nil {
		return Record{}, false
	}

	var author string
	var deadline *Deadline
	if idx[4] >= 0 {
		author, deadline = parseParenContent(line[idx[4]:idx[5]])
	}

	priority := PriorityNormal
	if idx[6] >= 0 {
		switch line[idx[6]:idx[7]] {
		case "!!":
			priority = PriorityUrgent
		case "!":
			priority = PriorityHigh
		}
	}

	message := ""
	if idx[8] >= 0 {
		message = strings.TrimSpace(line[idx[8]:idx[9]])
	}

	inlineIgnore := strings.Contains(line, IgnoreToken) && !strings.Contains(line, IgnoreNextLineToken)
	if inlineIgnore {
		if pos := strings.Index(message, IgnoreToken); pos >= 0 {
			message = strings.TrimSpace(message[:pos])
		}
	}

	return Record{
		Tag:        tag,
		Message:    message,
		Author:     author,
		IssueRef:   extractIssueRef(message),
		Priority:   priority,
		Deadline:   deadline,
		Suppressed: inlineIgnore,
		Bare:       message == "",
		RawLine:    line,
	}, true
}

// InComment reports whether the byte position pos on the line appears to
// be inside a comment. This is a heuristic, not a parser: any comment
// prefix occurring before pos counts, provided it sits outside a string
// literal by quote parity (an even number of '"' before the prefix).
func InComment(line string, pos int) bool {
	before := line[:pos]
	for _, prefix := range commentPrefixes {
		start := 0
		for {
			rel := strings.Index(before[start:], prefix)
			if rel < 0 {
				break
			}
			abs := start + rel
			if outsideQuotes(before, abs) {
				return true
			}
			start = abs + len(prefix)
		}
	}
	trimmed := strings.TrimLeft(before, " \t")
	for _, prefix := range lineStartPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return outsideQuotes(before, len(before)-len(trimmed))
		}
	}
	return false
}

func outsideQuotes(text string, pos int) bool {
	return strings.Count(text[:pos], `"`)%2 == 0
}

// parseParenContent splits the parenthesized segment after a tag into an
// author and a deadline. A comma separates the two, with the date allowed
// on either side; a lone token is a deadline if it parses as one and the
// author otherwise.
func parseParenContent(s string) (string, *Deadline) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}

	if left, right, ok := strings.Cut(s, ","); ok {
		left = strings.TrimSpace(left)
		right = strings.TrimSpace(right)

		if d, ok := ParseDeadline(right); ok {
			return left, &d
		}
		if d, ok := ParseDeadline(left); ok {
			return right, &d
		}
		// Neither side is a date; the whole segment is the author.
		return s, nil
	}

	if d, ok := ParseDeadline(s); ok {
		return "", &d
	}
	return s, nil
}

// extractIssueRef finds the first issue reference in a message. Both
// "#123" and "PROJ-456" styles are recognized; the numeric form keeps its
// "#" prefix in the stored value.
func extractIssueRef(message string) string {
	m := issueRefPattern.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return "#" + m[2]
}
