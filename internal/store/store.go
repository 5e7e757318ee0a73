// Package store provides the SQLite-backed relational store for pages,
// transforms, outputs, changes, domains, and usage logs. All coordination
// between concurrent ingestions happens through its uniqueness constraints;
// there is no application-level locking.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS domains (
	id                 TEXT PRIMARY KEY,
	org_id             TEXT NOT NULL,
	domain             TEXT NOT NULL,
	verified           INTEGER NOT NULL DEFAULT 0,
	verification_token TEXT NOT NULL,
	created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(org_id, domain)
);

CREATE INDEX IF NOT EXISTS idx_domains_domain ON domains(domain);

CREATE TABLE IF NOT EXISTS pages (
	id           TEXT PRIMARY KEY,
	org_id       TEXT NOT NULL,
	url          TEXT NOT NULL,
	title        TEXT,
	type         TEXT,
	content_hash TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(org_id, url)
);

CREATE INDEX IF NOT EXISTS idx_pages_content_hash ON pages(content_hash);

CREATE TABLE IF NOT EXISTS transforms (
	id            TEXT PRIMARY KEY,
	org_id        TEXT NOT NULL,
	page_id       TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	input_hash    TEXT NOT NULL,
	engine        TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'queued',
	error         TEXT,
	review_status TEXT NOT NULL DEFAULT 'pending',
	reviewer_id   TEXT,
	reviewed_at   DATETIME,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	completed_at  DATETIME,
	UNIQUE(page_id, input_hash)
);

CREATE INDEX IF NOT EXISTS idx_transforms_org_created ON transforms(org_id, created_at);

CREATE TABLE IF NOT EXISTS outputs (
	id           TEXT PRIMARY KEY,
	transform_id TEXT NOT NULL REFERENCES transforms(id) ON DELETE CASCADE,
	kind         TEXT NOT NULL,
	body         TEXT NOT NULL,
	confidence   TEXT,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(transform_id, kind)
);

CREATE TABLE IF NOT EXISTS changes (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	transform_id TEXT NOT NULL REFERENCES transforms(id) ON DELETE CASCADE,
	from_tag     TEXT NOT NULL,
	to_tag       TEXT NOT NULL,
	reason       TEXT NOT NULL DEFAULT '',
	confidence   TEXT
);

CREATE INDEX IF NOT EXISTS idx_changes_transform ON changes(transform_id);

CREATE TABLE IF NOT EXISTS usage_logs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	org_id       TEXT NOT NULL,
	page_id      TEXT,
	transform_id TEXT,
	event        TEXT NOT NULL,
	meta         TEXT,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// DB wraps a sql.DB with pipeline-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
// Foreign keys must stay on: Page -> Transform -> Output/Change deletion
// cascades at the store layer, never in application code.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// Racing ingestions rely on this to turn the insert race into a cache hit.
func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
