// Package pipeline implements the ingestion orchestrator, the review
// workflow, and transform lookup. It coordinates fingerprinting, the
// configured rewrite engine, patch and metrics generation, and the store's
// status state machine. All concurrency control is delegated to the
// store's uniqueness constraints.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/accessaurus/semantify/internal/apperr"
	"github.com/accessaurus/semantify/internal/engine"
	"github.com/accessaurus/semantify/internal/semantic"
	"github.com/accessaurus/semantify/internal/simhash"
	"github.com/accessaurus/semantify/internal/store"
)

// SemanticHTMLBody is the typed body of a semantic_html output row.
type SemanticHTMLBody struct {
	HTML  string `json:"html"`
	Patch string `json:"patch"`
}

// IngestRequest is one markup snapshot submitted for processing. Skeleton
// and Hash are optional: the skeleton is derived and the fingerprint
// computed when absent.
type IngestRequest struct {
	OrgID    string
	PageURL  string
	HTML     string
	Skeleton string
	Hash     string
}

// Ingest statuses reported to callers.
const (
	IngestStatusOK     = "ok"
	IngestStatusCached = "cached"
)

// IngestResult identifies the transform that covers the submitted input.
type IngestResult struct {
	Status      string `json:"status"`
	TransformID string `json:"transformId"`
}

// Service is the pipeline orchestrator. Construct it with the store handle
// and the engine chosen by configuration; it holds no other state.
type Service struct {
	db       *store.DB
	eng      engine.Engine
	verifier DomainVerifier
	logger   *slog.Logger
}

// NewService creates a pipeline service.
func NewService(db *store.DB, eng engine.Engine, verifier DomainVerifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, eng: eng, verifier: verifier, logger: logger}
}

// Ingest runs the full state machine for one snapshot:
// validate -> authorize origin -> upsert page -> idempotency check ->
// insert running transform -> rewrite -> patch + metrics -> outputs ->
// terminal status. Resubmitting the same (page, fingerprint) returns the
// existing transform as a cache hit without re-execution; failed
// transforms are never auto-retried.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if req.OrgID == "" || req.PageURL == "" || req.HTML == "" {
		return nil, fmt.Errorf("pipeline: orgId, pageUrl and html are required: %w", apperr.ErrValidation)
	}

	host, err := pageHost(req.PageURL)
	if err != nil {
		return nil, fmt.Errorf("pipeline: invalid pageUrl: %w", apperr.ErrValidation)
	}

	if err := s.authorizeOrigin(req.OrgID, host); err != nil {
		return nil, err
	}

	inputHash := req.Hash
	if inputHash == "" {
		inputHash = simhash.Fingerprint(s.fingerprintBasis(req))
	}

	_ = s.db.LogUsage(req.OrgID, "", "", store.EventRequest, "")

	page, err := s.db.UpsertPage(req.OrgID, req.PageURL, inputHash)
	if err != nil {
		return nil, err
	}

	// Idempotency check: the caller sees "cached"; the stored transform
	// keeps its original status, whatever that was.
	if existing, err := s.db.GetTransformByInput(page.ID, inputHash); err == nil {
		_ = s.db.LogUsage(req.OrgID, page.ID, existing.ID, store.EventCacheHit, "")
		return &IngestResult{Status: IngestStatusCached, TransformID: existing.ID}, nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	transform, err := s.db.CreateTransform(req.OrgID, page.ID, inputHash, s.eng.Name())
	if err != nil {
		// Lost the insert race: someone else is (or has finished)
		// processing this exact input.
		if errors.Is(err, apperr.ErrConflict) {
			winner, lookupErr := s.db.GetTransformByInput(page.ID, inputHash)
			if lookupErr != nil {
				return nil, lookupErr
			}
			_ = s.db.LogUsage(req.OrgID, page.ID, winner.ID, store.EventCacheHit, "")
			return &IngestResult{Status: IngestStatusCached, TransformID: winner.ID}, nil
		}
		return nil, err
	}

	if err := s.execute(ctx, req, page, transform); err != nil {
		msg := err.Error()
		if cerr := s.db.CompleteTransform(transform.ID, store.StatusFailed, msg); cerr != nil {
			s.logger.Error("mark transform failed", slog.String("transform_id", transform.ID), slog.String("error", cerr.Error()))
		}
		_ = s.db.LogUsage(req.OrgID, page.ID, transform.ID, store.EventError, msg)
		return nil, err
	}

	if err := s.db.CompleteTransform(transform.ID, store.StatusSuccess, ""); err != nil {
		return nil, err
	}
	if err := s.db.UpdatePageHash(page.ID, inputHash); err != nil {
		s.logger.Warn("update page hash", slog.String("page_id", page.ID), slog.String("error", err.Error()))
	}
	_ = s.db.LogUsage(req.OrgID, page.ID, transform.ID, store.EventGenerated, "")

	s.logger.Info("transform complete",
		slog.String("transform_id", transform.ID),
		slog.String("engine", s.eng.Name()),
		slog.String("input_hash", inputHash))

	return &IngestResult{Status: IngestStatusOK, TransformID: transform.ID}, nil
}

// execute runs the engine and persists outputs and change records.
func (s *Service) execute(ctx context.Context, req IngestRequest, page *store.Page, transform *store.Transform) error {
	out, err := s.eng.Rewrite(ctx, engine.Input{Content: req.HTML, Skeleton: req.Skeleton})
	if err != nil {
		return err
	}

	patch, err := semantic.Patch(req.HTML, out.HTML)
	if err != nil {
		return err
	}
	metrics, err := semantic.ComputeMetrics(out.HTML)
	if err != nil {
		return err
	}

	htmlBody, err := json.Marshal(SemanticHTMLBody{HTML: out.HTML, Patch: patch})
	if err != nil {
		return fmt.Errorf("pipeline: marshal semantic_html body: %w", err)
	}
	if _, err := s.db.CreateOutput(transform.ID, store.OutputSemanticHTML, htmlBody); err != nil {
		return err
	}

	metricsBody, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("pipeline: marshal metrics body: %w", err)
	}
	if _, err := s.db.CreateOutput(transform.ID, store.OutputMetrics, metricsBody); err != nil {
		return err
	}

	changes := make([]store.Change, len(out.Changes))
	for i, c := range out.Changes {
		changes[i] = store.Change{TransformID: transform.ID, FromTag: c.From, ToTag: c.To, Reason: c.Reason}
	}
	return s.db.InsertChanges(transform.ID, changes)
}

// fingerprintBasis picks the stable hashing input: the supplied skeleton,
// or one derived from the markup. Minified so collapsible whitespace and
// comments never perturb the fingerprint. Derivation failure falls back to
// the raw markup rather than rejecting the snapshot.
func (s *Service) fingerprintBasis(req IngestRequest) string {
	if req.Skeleton != "" {
		return semantic.Minify(req.Skeleton)
	}
	skel, err := semantic.Skeleton(req.HTML)
	if err != nil {
		s.logger.Warn("skeleton derivation failed", slog.String("error", err.Error()))
		return semantic.Minify(req.HTML)
	}
	return semantic.Minify(skel)
}

// authorizeOrigin enforces the domain gate: local-development hosts are
// always allowed, everything else must match a verified domain row for the
// tenant. No page or transform state is touched on rejection.
func (s *Service) authorizeOrigin(orgID, host string) error {
	if host == "localhost" || host == "127.0.0.1" {
		return nil
	}
	ok, err := s.db.IsDomainVerified(orgID, host)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("pipeline: domain %q not verified: %w", host, apperr.ErrForbidden)
	}
	return nil
}

func pageHost(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("pipeline: no hostname in %q", pageURL)
	}
	return host, nil
}
