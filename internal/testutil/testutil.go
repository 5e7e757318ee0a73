// Package testutil provides shared test helpers for setting up stores and
// pipeline services.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/accessaurus/semantify/internal/engine"
	"github.com/accessaurus/semantify/internal/pipeline"
	"github.com/accessaurus/semantify/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "semantify-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// StaticVerifier is a DomainVerifier with a fixed answer.
type StaticVerifier struct {
	OK  bool
	Err error
}

// Verify implements pipeline.DomainVerifier.
func (v StaticVerifier) Verify(context.Context, string, string) (bool, error) {
	return v.OK, v.Err
}

// NewPipeline creates a pipeline service over db with the heuristic engine
// and an always-yes domain verifier.
func NewPipeline(t *testing.T, db *store.DB) *pipeline.Service {
	t.Helper()
	return pipeline.NewService(db, engine.NewHeuristic(), StaticVerifier{OK: true}, DiscardLogger())
}

// SeedVerifiedDomain registers host for org and marks it verified.
func SeedVerifiedDomain(t *testing.T, db *store.DB, orgID, host string) *store.Domain {
	t.Helper()
	d, err := db.CreateDomain(orgID, host)
	if err != nil {
		t.Fatalf("CreateDomain: %v", err)
	}
	if err := db.MarkDomainVerified(d.ID, orgID); err != nil {
		t.Fatalf("MarkDomainVerified: %v", err)
	}
	d.Verified = true
	return d
}
