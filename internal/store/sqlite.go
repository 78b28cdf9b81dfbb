package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ytget/dlqueue/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS items (
	id               TEXT PRIMARY KEY,
	url              TEXT NOT NULL,
	format           TEXT NOT NULL DEFAULT '',
	quality          TEXT NOT NULL DEFAULT '',
	clip_start       INTEGER NOT NULL DEFAULT 0,
	clip_end         INTEGER NOT NULL DEFAULT 0,
	playlist         INTEGER NOT NULL DEFAULT 0,
	subtitles        INTEGER NOT NULL DEFAULT 0,
	output_dir       TEXT NOT NULL DEFAULT '',
	force_redownload INTEGER NOT NULL DEFAULT 0,
	rate_limit       INTEGER NOT NULL DEFAULT 0,
	priority         INTEGER NOT NULL DEFAULT 1,
	status           TEXT NOT NULL,
	progress         REAL NOT NULL DEFAULT 0,
	bytes_done       INTEGER NOT NULL DEFAULT 0,
	bytes_total      INTEGER NOT NULL DEFAULT 0,
	speed            INTEGER NOT NULL DEFAULT 0,
	retries          INTEGER NOT NULL DEFAULT 0,
	last_error       TEXT NOT NULL DEFAULT '',
	title            TEXT NOT NULL DEFAULT '',
	output_path      TEXT NOT NULL DEFAULT '',
	position         INTEGER NOT NULL,
	added_at         INTEGER NOT NULL,
	started_at       INTEGER,
	finished_at      INTEGER
);
`

// SQLiteStore persists the queue in a SQLite database. Save replaces the
// whole item set in one transaction so a snapshot is all-or-nothing, same
// as the file backend's rename.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the database at path and
// initializes the schema
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping state database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save replaces the stored item set with a stably-ordered snapshot
func (ss *SQLiteStore) Save(items []*model.Item) error {
	ordered := make([]*model.Item, len(items))
	copy(ordered, items)
	SortForSnapshot(ordered)

	tx, err := ss.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM items"); err != nil {
		return fmt.Errorf("failed to clear prior snapshot: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO items (
			id, url, format, quality, clip_start, clip_end, playlist,
			subtitles, output_dir, force_redownload, rate_limit, priority,
			status, progress, bytes_done, bytes_total, speed, retries,
			last_error, title, output_path, position, added_at, started_at,
			finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for pos, it := range ordered {
		_, err := stmt.Exec(
			it.ID,
			it.URL,
			it.Format,
			it.Quality,
			int64(it.ClipStart),
			int64(it.ClipEnd),
			boolToInt(it.Playlist),
			boolToInt(it.Subtitles),
			it.OutputDir,
			boolToInt(it.Force),
			it.RateLimit,
			int(it.Priority),
			string(it.Status),
			it.Progress,
			it.BytesDone,
			it.BytesTotal,
			it.Speed,
			it.Retries,
			it.LastError,
			it.Title,
			it.OutputPath,
			pos,
			it.AddedAt.UnixNano(),
			timePtrToNano(it.StartedAt),
			timePtrToNano(it.FinishedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert item %s: %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// Load reads the stored snapshot in its persisted order
func (ss *SQLiteStore) Load() ([]*model.Item, error) {
	rows, err := ss.db.Query(`
		SELECT id, url, format, quality, clip_start, clip_end, playlist,
			subtitles, output_dir, force_redownload, rate_limit, priority,
			status, progress, bytes_done, bytes_total, speed, retries,
			last_error, title, output_path, added_at, started_at, finished_at
		FROM items ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	var items []*model.Item
	for rows.Next() {
		var (
			it         model.Item
			clipStart  int64
			clipEnd    int64
			playlist   int
			subtitles  int
			force      int
			priority   int
			status     string
			addedAt    int64
			startedAt  sql.NullInt64
			finishedAt sql.NullInt64
		)

		err := rows.Scan(
			&it.ID, &it.URL, &it.Format, &it.Quality, &clipStart, &clipEnd,
			&playlist, &subtitles, &it.OutputDir, &force, &it.RateLimit,
			&priority, &status, &it.Progress, &it.BytesDone, &it.BytesTotal,
			&it.Speed, &it.Retries, &it.LastError, &it.Title, &it.OutputPath,
			&addedAt, &startedAt, &finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}

		it.ClipStart = time.Duration(clipStart)
		it.ClipEnd = time.Duration(clipEnd)
		it.Playlist = playlist != 0
		it.Subtitles = subtitles != 0
		it.Force = force != 0
		it.Priority = model.Priority(priority)
		it.Status = model.ItemStatus(status)
		it.AddedAt = time.Unix(0, addedAt)
		it.StartedAt = nanoToTimePtr(startedAt)
		it.FinishedAt = nanoToTimePtr(finishedAt)

		items = append(items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot rows: %w", err)
	}

	Normalize(items)
	return items, nil
}

// Close closes the database
func (ss *SQLiteStore) Close() error {
	return ss.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timePtrToNano(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func nanoToTimePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64)
	return &t
}
