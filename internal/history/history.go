// Package history persists per-root scan history in SQLite: materialized
// base scans keyed by commit SHA and config hash, and snapshot rows that
// record totals over time for trend reporting. Everything in the database
// is rebuildable, so schema migration is drop-and-recreate.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/todoscan/todoscan/internal/marker"
	"github.com/todoscan/todoscan/internal/scancache"
)

// schemaVersion gates the on-disk layout.
const schemaVersion = 1

const schema = `
-- One row per marker of a cached base scan. A scan's identity is the
-- resolved commit SHA plus the config hash key that shaped extraction.
CREATE TABLE IF NOT EXISTS base_scans (
    sha        TEXT NOT NULL,
    cfg_key    TEXT NOT NULL,
    path       TEXT NOT NULL,
    line       INTEGER NOT NULL,
    tag        TEXT NOT NULL,
    message    TEXT NOT NULL DEFAULT '',
    author     TEXT NOT NULL DEFAULT '',
    issue_ref  TEXT NOT NULL DEFAULT '',
    priority   TEXT NOT NULL DEFAULT 'normal',
    deadline   TEXT NOT NULL DEFAULT '',
    suppressed INTEGER NOT NULL DEFAULT 0,
    bare       INTEGER NOT NULL DEFAULT 0,
    raw_line   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_base_scans_key ON base_scans(sha, cfg_key);

-- Presence marker per cached scan, so a base scan with zero markers is
-- still a hit.
CREATE TABLE IF NOT EXISTS base_scan_meta (
    sha      TEXT NOT NULL,
    cfg_key  TEXT NOT NULL,
    taken_at INTEGER NOT NULL,
    PRIMARY KEY (sha, cfg_key)
);

-- One row per completed full scan, feeding the report trend section.
CREATE TABLE IF NOT EXISTS snapshots (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    taken_at INTEGER NOT NULL,
    total    INTEGER NOT NULL,
    files    INTEGER NOT NULL,
    urgent   INTEGER NOT NULL,
    high     INTEGER NOT NULL,
    normal   INTEGER NOT NULL
);
`

// Store is a handle to one history database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the history database location for a scan root,
// next to that root's scan cache.
func DefaultPath(root string) (string, error) {
	dir, err := scancache.Dir(root)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens or creates the history database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrate brings the database to the current schema version. On a version
// mismatch the tables are dropped and recreated: the contents are caches
// and trend rows, not user data.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	if version != schemaVersion {
		drops := []string{
			"DROP TABLE IF EXISTS base_scans",
			"DROP TABLE IF EXISTS base_scan_meta",
			"DROP TABLE IF EXISTS snapshots",
		}
		for _, stmt := range drops {
			if _, err := db.Exec(stmt); err != nil {
				return err
			}
		}
	}
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	if version != schemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return err
		}
	}
	return nil
}

// BaseScan loads the cached base scan for (sha, cfgKey). The second
// return is false when no scan is cached under that key.
func (s *Store) BaseScan(ctx context.Context, sha, cfgKey string) ([]marker.Record, bool, error) {
	var takenAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT taken_at FROM base_scan_meta WHERE sha = ? AND cfg_key = ?",
		sha, cfgKey).Scan(&takenAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read base scan: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, line, tag, message, author, issue_ref, priority, deadline, suppressed, bare, raw_line
		FROM base_scans
		WHERE sha = ? AND cfg_key = ?
		ORDER BY path, line`, sha, cfgKey)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read base scan: %w", err)
	}
	defer rows.Close()

	var records []marker.Record
	for rows.Next() {
		var r marker.Record
		var deadline string
		err := rows.Scan(&r.File, &r.Line, &r.Tag, &r.Message, &r.Author,
			&r.IssueRef, &r.Priority, &deadline, &r.Suppressed, &r.Bare, &r.RawLine)
		if err != nil {
			return nil, false, fmt.Errorf("failed to read base scan: %w", err)
		}
		if deadline != "" {
			if d, ok := marker.ParseDeadline(deadline); ok {
				r.Deadline = &d
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to read base scan: %w", err)
	}
	return records, true, nil
}

// PutBaseScan stores records as the base scan for (sha, cfgKey),
// replacing any previous scan under the same key.
func (s *Store) PutBaseScan(ctx context.Context, sha, cfgKey string, records []marker.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to store base scan: %w", err)
	}
	defer tx.Rollback()

	deletes := []string{
		"DELETE FROM base_scans WHERE sha = ? AND cfg_key = ?",
		"DELETE FROM base_scan_meta WHERE sha = ? AND cfg_key = ?",
	}
	for _, stmt := range deletes {
		if _, err := tx.ExecContext(ctx, stmt, sha, cfgKey); err != nil {
			return fmt.Errorf("failed to store base scan: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO base_scans (sha, cfg_key, path, line, tag, message, author, issue_ref, priority, deadline, suppressed, bare, raw_line)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to store base scan: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		deadline := ""
		if r.Deadline != nil {
			deadline = r.Deadline.String()
		}
		_, err := stmt.ExecContext(ctx, sha, cfgKey, r.File, r.Line, string(r.Tag),
			r.Message, r.Author, r.IssueRef, string(r.Priority), deadline,
			r.Suppressed, r.Bare, r.RawLine)
		if err != nil {
			return fmt.Errorf("failed to store base scan: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO base_scan_meta (sha, cfg_key, taken_at) VALUES (?, ?, ?)",
		sha, cfgKey, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store base scan: %w", err)
	}
	return tx.Commit()
}

// Snapshot is one recorded scan total.
type Snapshot struct {
	ID      int64     `json:"id"`
	TakenAt time.Time `json:"taken_at"`
	Total   int       `json:"total"`
	Files   int       `json:"files"`
	Urgent  int       `json:"urgent"`
	High    int       `json:"high"`
	Normal  int       `json:"normal"`
}

// AddSnapshot appends one snapshot row. A zero TakenAt means now.
func (s *Store) AddSnapshot(ctx context.Context, snap Snapshot) error {
	takenAt := snap.TakenAt
	if takenAt.IsZero() {
		takenAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (taken_at, total, files, urgent, high, normal)
		VALUES (?, ?, ?, ?, ?, ?)`,
		takenAt.Unix(), snap.Total, snap.Files, snap.Urgent, snap.High, snap.Normal)
	if err != nil {
		return fmt.Errorf("failed to record snapshot: %w", err)
	}
	return nil
}

// RecentSnapshots returns up to limit of the most recent snapshots,
// oldest first so trend rendering reads chronologically.
func (s *Store) RecentSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, taken_at, total, files, urgent, high, normal
		FROM snapshots
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var sn Snapshot
		var takenAt int64
		err := rows.Scan(&sn.ID, &takenAt, &sn.Total, &sn.Files, &sn.Urgent, &sn.High, &sn.Normal)
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshots: %w", err)
		}
		sn.TakenAt = time.Unix(takenAt, 0)
		snaps = append(snaps, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshots: %w", err)
	}

	for i, j := 0, len(snaps)-1; i < j; i, j = i+1, j-1 {
		snaps[i], snaps[j] = snaps[j], snaps[i]
	}
	return snaps, nil
}
