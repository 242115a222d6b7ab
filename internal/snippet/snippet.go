// Package snippet pulls source lines surrounding a marker for the context
// command and the list --context flag. Each file is read at most once per
// request; a file that cannot be read yields an empty window rather than
// failing the whole listing.
package snippet

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/todoscan/todoscan/internal/marker"
)

// Line is one displayed source line. Number is 1-based.
type Line struct {
	Number  int    `json:"line_number"`
	Content string `json:"content"`
}

// Window holds the lines around a marker, excluding the marker line itself.
type Window struct {
	Before []Line `json:"before"`
	After  []Line `json:"after"`
}

// RelatedTodo is another marker inside the displayed window of the same file.
type RelatedTodo struct {
	Line    int        `json:"line"`
	Tag     marker.Tag `json:"tag"`
	Message string     `json:"message"`
}

// Rich is the full payload of the standalone context command.
type Rich struct {
	File     string        `json:"file"`
	Line     int           `json:"line"`
	Before   []Line        `json:"before"`
	TodoLine string        `json:"todo_line"`
	After    []Line        `json:"after"`
	Related  []RelatedTodo `json:"related_todos"`
}

// Extract returns up to n lines before and after targetLine (1-based) from
// content. A target of zero or beyond the end of the file yields an empty
// window. Trailing whitespace is trimmed from each line; indentation stays.
func Extract(content string, targetLine, n int) Window {
	var w Window
	if targetLine <= 0 {
		return w
	}

	lines := splitLines(content)
	idx := targetLine - 1
	if idx >= len(lines) {
		return w
	}

	start := max(idx-n, 0)
	for i := start; i < idx; i++ {
		w.Before = append(w.Before, Line{Number: i + 1, Content: trimLine(lines[i])})
	}

	end := min(idx+1+n, len(lines))
	for i := idx + 1; i < end; i++ {
		w.After = append(w.After, Line{Number: i + 1, Content: trimLine(lines[i])})
	}

	return w
}

// ReadFileWindow reads root/file and extracts the window around line,
// returning the marker line's own text alongside it.
func ReadFileWindow(root, file string, line, n int) (Window, string, error) {
	content, err := os.ReadFile(filepath.Join(root, file))
	if err != nil {
		return Window{}, "", fmt.Errorf("cannot read file %s: %w", file, err)
	}

	lines := splitLines(string(content))
	own := ""
	if line >= 1 && line <= len(lines) {
		own = trimLine(lines[line-1])
	}

	return Extract(string(content), line, n), own, nil
}

// BuildRich assembles the context command's payload: the window around the
// location plus every other marker from the same file that falls inside it.
func BuildRich(root, file string, line, n int, inFile []marker.Record) (*Rich, error) {
	w, own, err := ReadFileWindow(root, file, line, n)
	if err != nil {
		return nil, err
	}

	start := max(line-n, 0)
	end := line + n
	var related []RelatedTodo
	for _, r := range inFile {
		if r.Line == line || r.Line < start || r.Line > end {
			continue
		}
		related = append(related, RelatedTodo{Line: r.Line, Tag: r.Tag, Message: r.Message})
	}

	return &Rich{
		File:     file,
		Line:     line,
		Before:   w.Before,
		TodoLine: own,
		After:    w.After,
		Related:  related,
	}, nil
}

// CollectMap extracts a window for every record, reading each distinct file
// once. Keys are "file:line". Unreadable files yield empty windows so a
// listing never fails over one deleted file.
func CollectMap(root string, records []marker.Record, n int) map[string]Window {
	contents := make(map[string]string)
	out := make(map[string]Window, len(records))

	for _, r := range records {
		content, ok := contents[r.File]
		if !ok {
			data, err := os.ReadFile(filepath.Join(root, r.File))
			if err == nil {
				content = string(data)
			}
			contents[r.File] = content
		}
		out[r.File+":"+strconv.Itoa(r.Line)] = Extract(content, r.Line, n)
	}

	return out
}

// ParseLocation splits a "FILE:LINE" argument. The split is on the last
// colon so Windows drive prefixes survive.
func ParseLocation(location string) (string, int, error) {
	i := strings.LastIndex(location, ":")
	if i < 0 {
		return "", 0, fmt.Errorf("invalid location %q: expected FILE:LINE", location)
	}

	file, lineStr := location[:i], location[i+1:]
	if file == "" {
		return "", 0, fmt.Errorf("invalid location %q: file path is empty", location)
	}

	line, err := strconv.Atoi(lineStr)
	if err != nil || line < 1 {
		return "", 0, fmt.Errorf("invalid location %q: bad line number %q", location, lineStr)
	}

	return file, line, nil
}

func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

func trimLine(s string) string {
	return strings.TrimRight(s, " \t\r")
}
