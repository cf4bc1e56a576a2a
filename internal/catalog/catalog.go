// Package catalog records the outcome of the latest migration run in SQLite
// with optional FTS5 full-text search over migrated documents. The catalog
// is a reporting artifact: every run fully replaces its contents, and
// nothing here is ever read back into the reference graph.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id                 TEXT PRIMARY KEY,
	state              TEXT NOT NULL,
	files_discovered   INTEGER NOT NULL DEFAULT 0,
	files_succeeded    INTEGER NOT NULL DEFAULT 0,
	files_failed       INTEGER NOT NULL DEFAULT 0,
	documents_parsed   INTEGER NOT NULL DEFAULT 0,
	documents_written  INTEGER NOT NULL DEFAULT 0,
	attachments_copied INTEGER NOT NULL DEFAULT 0,
	broken_references  INTEGER NOT NULL DEFAULT 0,
	cancelled          INTEGER NOT NULL DEFAULT 0,
	started_at         DATETIME NOT NULL,
	duration_ms        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS documents (
	slug        TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	source_path TEXT NOT NULL DEFAULT '',
	format      TEXT NOT NULL DEFAULT '',
	folder      TEXT NOT NULL DEFAULT '',
	checksum    TEXT NOT NULL DEFAULT '',
	tags        TEXT NOT NULL DEFAULT '[]',
	backlinks   TEXT NOT NULL DEFAULT '[]',
	body        TEXT NOT NULL DEFAULT '',
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS links (
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	UNIQUE(source, target)
);

CREATE INDEX IF NOT EXISTS idx_links_source ON links(source);
CREATE INDEX IF NOT EXISTS idx_links_target ON links(target);

CREATE TABLE IF NOT EXISTS broken_refs (
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	UNIQUE(source, target)
);

CREATE TABLE IF NOT EXISTS failures (
	run_id  TEXT NOT NULL,
	path    TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT ''
);
`

// DB wraps a sql.DB with catalog-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
