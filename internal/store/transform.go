package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/accessaurus/semantify/internal/apperr"
)

const transformColumns = `
	id, org_id, page_id, input_hash, engine, status, COALESCE(error, ''),
	review_status, COALESCE(reviewer_id, ''), reviewed_at, created_at, completed_at
`

// CreateTransform inserts a new transform row in the running state. The
// unique (page_id, input_hash) index is the sole concurrency-safety
// mechanism: racing requests for the same fingerprint get apperr.ErrConflict
// here and must re-fetch the winner's row.
func (db *DB) CreateTransform(orgID, pageID, inputHash, engine string) (*Transform, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(`
		INSERT INTO transforms (id, org_id, page_id, input_hash, engine, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, orgID, pageID, inputHash, engine, StatusRunning)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.ErrConflict
		}
		return nil, fmt.Errorf("store: insert transform: %w", err)
	}
	return db.GetTransform(id)
}

// GetTransform returns a transform by id.
func (db *DB) GetTransform(id string) (*Transform, error) {
	row := db.conn.QueryRow(`SELECT `+transformColumns+` FROM transforms WHERE id = ?`, id)
	return scanTransform(row)
}

// GetTransformByInput looks up the transform for the idempotency key
// (page id, input fingerprint).
func (db *DB) GetTransformByInput(pageID, inputHash string) (*Transform, error) {
	row := db.conn.QueryRow(`
		SELECT `+transformColumns+` FROM transforms WHERE page_id = ? AND input_hash = ?
	`, pageID, inputHash)
	return scanTransform(row)
}

// LatestTransform returns the most recent transform for a page, optionally
// restricted to a specific input fingerprint.
func (db *DB) LatestTransform(orgID, pageID, inputHash string) (*Transform, error) {
	query := `SELECT ` + transformColumns + ` FROM transforms WHERE org_id = ? AND page_id = ?`
	args := []any{orgID, pageID}
	if inputHash != "" {
		query += ` AND input_hash = ?`
		args = append(args, inputHash)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 1`

	row := db.conn.QueryRow(query, args...)
	return scanTransform(row)
}

// CompleteTransform moves a transform to a terminal execution state and
// stamps completion. errText is stored verbatim for audit on failure.
func (db *DB) CompleteTransform(id, status, errText string) error {
	var errVal any
	if errText != "" {
		errVal = errText
	}
	res, err := db.conn.Exec(`
		UPDATE transforms SET status = ?, error = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?
	`, status, errVal, id)
	if err != nil {
		return fmt.Errorf("store: complete transform: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// SetReviewStatus records a review decision with reviewer identity and
// timestamp.
func (db *DB) SetReviewStatus(id, reviewStatus, reviewerID string) error {
	res, err := db.conn.Exec(`
		UPDATE transforms SET review_status = ?, reviewer_id = ?, reviewed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, reviewStatus, reviewerID, id)
	if err != nil {
		return fmt.Errorf("store: set review status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func scanTransform(row *sql.Row) (*Transform, error) {
	var t Transform
	var reviewedAt, completedAt sql.NullTime
	err := row.Scan(&t.ID, &t.OrgID, &t.PageID, &t.InputHash, &t.Engine, &t.Status, &t.Error,
		&t.ReviewStatus, &t.ReviewerID, &reviewedAt, &t.CreatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan transform: %w", err)
	}
	if reviewedAt.Valid {
		t.ReviewedAt = &reviewedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return &t, nil
}
