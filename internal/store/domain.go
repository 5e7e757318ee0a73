package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/accessaurus/semantify/internal/apperr"
)

// CreateDomain registers a hostname for a tenant with a fresh verification
// token. The domain starts unverified.
func (db *DB) CreateDomain(orgID, domain string) (*Domain, error) {
	token := make([]byte, 16)
	if _, err := rand.Read(token); err != nil {
		return nil, fmt.Errorf("store: generate verification token: %w", err)
	}

	d := &Domain{
		ID:                uuid.NewString(),
		OrgID:             orgID,
		Domain:            domain,
		VerificationToken: hex.EncodeToString(token),
	}
	_, err := db.conn.Exec(`
		INSERT INTO domains (id, org_id, domain, verified, verification_token)
		VALUES (?, ?, ?, 0, ?)
	`, d.ID, d.OrgID, d.Domain, d.VerificationToken)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.ErrConflict
		}
		return nil, fmt.Errorf("store: insert domain: %w", err)
	}
	return d, nil
}

// GetDomain returns a domain by id, scoped to the tenant.
func (db *DB) GetDomain(id, orgID string) (*Domain, error) {
	row := db.conn.QueryRow(`
		SELECT id, org_id, domain, verified, verification_token, created_at
		FROM domains WHERE id = ? AND org_id = ?
	`, id, orgID)

	var d Domain
	err := row.Scan(&d.ID, &d.OrgID, &d.Domain, &d.Verified, &d.VerificationToken, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get domain: %w", err)
	}
	return &d, nil
}

// ListDomains returns all domains registered for a tenant.
func (db *DB) ListDomains(orgID string) ([]Domain, error) {
	rows, err := db.conn.Query(`
		SELECT id, org_id, domain, verified, verification_token, created_at
		FROM domains WHERE org_id = ? ORDER BY created_at
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("store: list domains: %w", err)
	}
	defer rows.Close()

	var out []Domain
	for rows.Next() {
		var d Domain
		if err := rows.Scan(&d.ID, &d.OrgID, &d.Domain, &d.Verified, &d.VerificationToken, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MarkDomainVerified flips the verified flag after the ownership check
// succeeds.
func (db *DB) MarkDomainVerified(id, orgID string) error {
	res, err := db.conn.Exec(`UPDATE domains SET verified = 1 WHERE id = ? AND org_id = ?`, id, orgID)
	if err != nil {
		return fmt.Errorf("store: mark domain verified: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// IsDomainVerified reports whether host is a verified domain of the tenant.
func (db *DB) IsDomainVerified(orgID, host string) (bool, error) {
	var one int
	err := db.conn.QueryRow(`
		SELECT 1 FROM domains WHERE org_id = ? AND domain = ? AND verified = 1 LIMIT 1
	`, orgID, host).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: check domain: %w", err)
	}
	return true, nil
}
