package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
)

// hashLen is the number of hex digits kept from the content hash. 64 bits
// of SHA-256 is plenty for change detection and keeps cache files small.
const hashLen = 16

// Fingerprint identifies a file's content state. Size and MTime form the
// cheap metadata check; Hash settles the question when metadata disagrees,
// so a touch without an edit does not force re-extraction.
type Fingerprint struct {
	Size  int64  `json:"size"`
	MTime int64  `json:"mtime"` // unix nanoseconds
	Hash  string `json:"hash"`
}

// NewFingerprint captures both the metadata and content portions.
func NewFingerprint(info fs.FileInfo, content []byte) Fingerprint {
	return Fingerprint{
		Size:  info.Size(),
		MTime: info.ModTime().UnixNano(),
		Hash:  HashContent(content),
	}
}

// StatFingerprint captures only the metadata portion; Hash stays empty.
// Used for the fast-path comparison before deciding whether to read a file.
func StatFingerprint(info fs.FileInfo) Fingerprint {
	return Fingerprint{
		Size:  info.Size(),
		MTime: info.ModTime().UnixNano(),
	}
}

// MetadataEquals reports whether size and mtime agree.
func (f Fingerprint) MetadataEquals(other Fingerprint) bool {
	return f.Size == other.Size && f.MTime == other.MTime
}

// HashContent returns the truncated hex SHA-256 of content.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:hashLen]
}
