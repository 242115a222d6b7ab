// Package extract turns file bytes into ordered marker records. It owns
// the per-file concerns the line grammar cannot see: size limits, binary
// detection, line numbering, and next-line suppression lookahead.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/todoscan/todoscan/internal/marker"
)

// DefaultMaxFileSize bounds how large a file the extractor will read.
// Oversized files are skipped with a warning rather than read in full.
const DefaultMaxFileSize = 10 * 1024 * 1024

// binarySniffLen is how much of a file's head is checked for NUL bytes.
const binarySniffLen = 8192

var (
	// ErrTooLarge marks a file skipped for exceeding the size limit.
	ErrTooLarge = errors.New("file exceeds size limit")
	// ErrBinary marks a file skipped for containing binary content.
	ErrBinary = errors.New("binary content")
)

// Extractor applies the marker grammar to files and raw content.
type Extractor struct {
	grammar *marker.Grammar
	maxSize int64
}

// New returns an extractor for the given grammar. A non-positive maxSize
// selects DefaultMaxFileSize.
func New(grammar *marker.Grammar, maxSize int64) *Extractor {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Extractor{grammar: grammar, maxSize: maxSize}
}

// ExtractFile reads one file and returns its records and fingerprint.
// Every error it returns is recoverable per-file: the caller skips the
// file, surfaces a warning, and the scan continues.
func (e *Extractor) ExtractFile(absPath, relPath string) ([]marker.Record, Fingerprint, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, Fingerprint{}, fmt.Errorf("stat %s: %w", relPath, err)
	}
	if info.Size() > e.maxSize {
		return nil, Fingerprint{}, fmt.Errorf("%s (%d bytes): %w", relPath, info.Size(), ErrTooLarge)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, Fingerprint{}, fmt.Errorf("read %s: %w", relPath, err)
	}
	if IsBinary(content) {
		return nil, Fingerprint{}, fmt.Errorf("%s: %w", relPath, ErrBinary)
	}

	return e.ExtractContent(content, relPath), NewFingerprint(info, content), nil
}

// ExtractContent applies the grammar line by line to in-memory content.
// Used directly for git-ref scans, where there is no file on disk.
func (e *Extractor) ExtractContent(content []byte, relPath string) []marker.Record {
	lines := splitLines(content)

	// Pre-scan for next-line suppression; the grammar itself only has
	// single-line visibility. A blank line between the directive and the
	// marker cancels the suppression.
	suppressedNext := make(map[int]bool)
	for i, line := range lines {
		if strings.Contains(line, marker.IgnoreNextLineToken) {
			if i+1 < len(lines) && strings.TrimSpace(lines[i+1]) != "" {
				suppressedNext[i+1] = true
			}
		}
	}

	var records []marker.Record
	for i, line := range lines {
		rec, ok := e.grammar.Match(line)
		if !ok {
			continue
		}
		rec.File = relPath
		rec.Line = i + 1
		if suppressedNext[i] {
			rec.Suppressed = true
		}
		records = append(records, rec)
	}
	return records
}

// MaxSize returns the configured file size limit.
func (e *Extractor) MaxSize() int64 {
	return e.maxSize
}

// IsBinary sniffs the head of content for NUL bytes, the same heuristic
// git uses to classify files.
func IsBinary(content []byte) bool {
	head := content
	if len(head) > binarySniffLen {
		head = head[:binarySniffLen]
	}
	return bytes.IndexByte(head, 0) >= 0
}

// splitLines splits on newlines without yielding a phantom final line for
// newline-terminated content. Trailing carriage returns are stripped so
// CRLF files report clean messages.
func splitLines(content []byte) []string {
	lines := strings.Split(string(content), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
