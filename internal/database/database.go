// Package database provides SQLite storage for the source health ledger.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bryan-buckman/iantel/internal/model"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
}

// Ensure DB implements Store interface.
var _ Store = (*DB)(nil)

// New opens or creates an SQLite database at the given path.
func New(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Enable WAL mode so the viewer can read while a build writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DatabaseType returns the database backend name.
func (db *DB) DatabaseType() string {
	return "SQLite"
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		topic TEXT NOT NULL,
		label TEXT NOT NULL,
		url TEXT NOT NULL,
		last_fetched DATETIME,
		last_error TEXT DEFAULT '',
		item_count INTEGER DEFAULT 0,
		run_id TEXT DEFAULT '',
		UNIQUE(topic, url)
	);
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// --- Source Methods ---

// RecordSourceStatus stores the latest fetch outcome of a source, replacing
// the previous one.
func (db *DB) RecordSourceStatus(st model.SourceStatus) error {
	_, err := db.conn.Exec(`
		INSERT INTO sources (topic, label, url, last_fetched, last_error, item_count, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(topic, url) DO UPDATE SET
			label = excluded.label,
			last_fetched = excluded.last_fetched,
			last_error = excluded.last_error,
			item_count = excluded.item_count,
			run_id = excluded.run_id`,
		st.Topic, st.Label, st.URL, st.LastFetched.UTC(), st.LastError, st.ItemCount, st.RunID)
	return err
}

// ListSourceStatus returns every recorded source ordered by topic and label.
func (db *DB) ListSourceStatus() ([]model.SourceStatus, error) {
	rows, err := db.conn.Query("SELECT topic, label, url, last_fetched, last_error, item_count, run_id FROM sources ORDER BY topic, label")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSources(rows)
}

func scanSources(rows *sql.Rows) ([]model.SourceStatus, error) {
	var out []model.SourceStatus
	for rows.Next() {
		var st model.SourceStatus
		var lastFetched sql.NullTime
		var lastError, runID sql.NullString
		if err := rows.Scan(&st.Topic, &st.Label, &st.URL, &lastFetched, &lastError, &st.ItemCount, &runID); err != nil {
			return nil, err
		}
		if lastFetched.Valid {
			st.LastFetched = lastFetched.Time.UTC()
		}
		st.LastError = lastError.String
		st.RunID = runID.String
		out = append(out, st)
	}
	return out, rows.Err()
}

// --- Settings Methods ---

// GetSetting retrieves a setting value. A missing key yields sql.ErrNoRows.
func (db *DB) GetSetting(key string) (string, error) {
	var val string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&val)
	return val, err
}

// SetSetting saves a setting.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec("INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = ?", key, value, value)
	return err
}
