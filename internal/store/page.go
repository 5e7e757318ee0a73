package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/accessaurus/semantify/internal/apperr"
)

// GetPageByURL looks up a page by its (tenant, URL) identity.
func (db *DB) GetPageByURL(orgID, url string) (*Page, error) {
	row := db.conn.QueryRow(`
		SELECT id, org_id, url, COALESCE(title, ''), COALESCE(type, ''), content_hash, created_at, updated_at
		FROM pages WHERE org_id = ? AND url = ?
	`, orgID, url)
	return scanPage(row)
}

// GetPage returns a page by id.
func (db *DB) GetPage(id string) (*Page, error) {
	row := db.conn.QueryRow(`
		SELECT id, org_id, url, COALESCE(title, ''), COALESCE(type, ''), content_hash, created_at, updated_at
		FROM pages WHERE id = ?
	`, id)
	return scanPage(row)
}

// UpsertPage reuses the existing row for (tenant, URL) or creates one.
// Racing creators are resolved by the unique index: the loser re-reads.
func (db *DB) UpsertPage(orgID, url, contentHash string) (*Page, error) {
	if p, err := db.GetPageByURL(orgID, url); err == nil {
		return p, nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	id := uuid.NewString()
	_, err := db.conn.Exec(`
		INSERT INTO pages (id, org_id, url, content_hash) VALUES (?, ?, ?, ?)
	`, id, orgID, url, contentHash)
	if err != nil {
		if isUniqueViolation(err) {
			return db.GetPageByURL(orgID, url)
		}
		return nil, fmt.Errorf("store: insert page: %w", err)
	}
	return db.GetPage(id)
}

// UpdatePageHash refreshes the page's latest content fingerprint.
func (db *DB) UpdatePageHash(id, contentHash string) error {
	_, err := db.conn.Exec(`
		UPDATE pages SET content_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, contentHash, id)
	if err != nil {
		return fmt.Errorf("store: update page hash: %w", err)
	}
	return nil
}

// DeletePage removes a page; transforms, outputs, and changes cascade at
// the store layer.
func (db *DB) DeletePage(id, orgID string) error {
	res, err := db.conn.Exec(`DELETE FROM pages WHERE id = ? AND org_id = ?`, id, orgID)
	if err != nil {
		return fmt.Errorf("store: delete page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func scanPage(row *sql.Row) (*Page, error) {
	var p Page
	err := row.Scan(&p.ID, &p.OrgID, &p.URL, &p.Title, &p.Type, &p.ContentHash, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan page: %w", err)
	}
	return &p, nil
}
