// Package output renders command results in the supported formats: human
// text with color, pretty JSON, GitHub Actions workflow commands, SARIF
// 2.1.0, and markdown tables. One file per format; every renderer writes
// to an io.Writer so commands decide where bytes go.
package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// Format selects a renderer.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatGitHub   Format = "github-actions"
	FormatSARIF    Format = "sarif"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON, FormatGitHub, FormatSARIF, FormatMarkdown:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown format %q (want text, json, github-actions, sarif, or markdown)", s)
}

// JSON writes v as indented JSON with a trailing newline. Every command's
// json format goes through here so the indentation is uniform.
func JSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
