package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/accessaurus/semantify/internal/apperr"
)

// CreateOutput persists one named artifact for a transform. body is the
// JSON-encoded payload for the kind.
func (db *DB) CreateOutput(transformID, kind string, body []byte) (*Output, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(`
		INSERT INTO outputs (id, transform_id, kind, body) VALUES (?, ?, ?, ?)
	`, id, transformID, kind, string(body))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.ErrConflict
		}
		return nil, fmt.Errorf("store: insert output: %w", err)
	}
	return &Output{ID: id, TransformID: transformID, Kind: kind, Body: body}, nil
}

// GetOutput returns the artifact of the given kind for a transform.
func (db *DB) GetOutput(transformID, kind string) (*Output, error) {
	row := db.conn.QueryRow(`
		SELECT id, transform_id, kind, body, COALESCE(confidence, ''), created_at
		FROM outputs WHERE transform_id = ? AND kind = ?
	`, transformID, kind)

	var o Output
	var body string
	err := row.Scan(&o.ID, &o.TransformID, &o.Kind, &body, &o.Confidence, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get output: %w", err)
	}
	o.Body = []byte(body)
	return &o, nil
}

// InsertChanges bulk-inserts the change records for a transform.
func (db *DB) InsertChanges(transformID string, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.Prepare(`
		INSERT INTO changes (transform_id, from_tag, to_tag, reason) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare change insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range changes {
		if _, err := stmt.Exec(transformID, c.FromTag, c.ToTag, c.Reason); err != nil {
			return fmt.Errorf("store: insert change: %w", err)
		}
	}
	return tx.Commit()
}

// ListChanges returns the change records for a transform in insertion order.
func (db *DB) ListChanges(transformID string) ([]Change, error) {
	rows, err := db.conn.Query(`
		SELECT transform_id, from_tag, to_tag, reason, COALESCE(confidence, '')
		FROM changes WHERE transform_id = ? ORDER BY id
	`, transformID)
	if err != nil {
		return nil, fmt.Errorf("store: list changes: %w", err)
	}
	defer rows.Close()

	var out []Change
	for rows.Next() {
		var c Change
		if err := rows.Scan(&c.TransformID, &c.FromTag, &c.ToTag, &c.Reason, &c.Confidence); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LogUsage appends a usage event. Usage rows are advisory; failures here
// never abort the calling operation, so the error is returned for logging
// only.
func (db *DB) LogUsage(orgID, pageID, transformID, event, meta string) error {
	var pageVal, transformVal, metaVal any
	if pageID != "" {
		pageVal = pageID
	}
	if transformID != "" {
		transformVal = transformID
	}
	if meta != "" {
		metaVal = meta
	}
	_, err := db.conn.Exec(`
		INSERT INTO usage_logs (org_id, page_id, transform_id, event, meta)
		VALUES (?, ?, ?, ?, ?)
	`, orgID, pageVal, transformVal, event, metaVal)
	if err != nil {
		return fmt.Errorf("store: log usage: %w", err)
	}
	return nil
}
