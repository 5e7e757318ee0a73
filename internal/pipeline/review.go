package pipeline

import (
	"context"
	"fmt"

	"github.com/accessaurus/semantify/internal/apperr"
	"github.com/accessaurus/semantify/internal/store"
)

// Approve marks a transform approved, recording the reviewer and timestamp.
// Review status is independent of the execution state machine: a failed
// transform can still be acknowledged.
func (s *Service) Approve(ctx context.Context, transformID, orgID, userID string) error {
	return s.review(ctx, transformID, orgID, userID, store.ReviewApproved)
}

// Reject marks a transform rejected, recording the reviewer and timestamp.
func (s *Service) Reject(ctx context.Context, transformID, orgID, userID string) error {
	return s.review(ctx, transformID, orgID, userID, store.ReviewRejected)
}

func (s *Service) review(_ context.Context, transformID, orgID, userID, status string) error {
	t, err := s.db.GetTransform(transformID)
	if err != nil {
		return err
	}
	if t.OrgID != orgID {
		return fmt.Errorf("pipeline: transform belongs to another tenant: %w", apperr.ErrForbidden)
	}
	if err := s.db.SetReviewStatus(transformID, status, userID); err != nil {
		return err
	}
	_ = s.db.LogUsage(orgID, t.PageID, transformID, store.EventReviewed, status)
	return nil
}

// Latest returns the semantic_html output body of the most recent transform
// for (tenant, page URL), optionally narrowed to one input fingerprint.
func (s *Service) Latest(_ context.Context, orgID, pageURL, inputHash string) ([]byte, error) {
	page, err := s.db.GetPageByURL(orgID, pageURL)
	if err != nil {
		return nil, err
	}
	t, err := s.db.LatestTransform(orgID, page.ID, inputHash)
	if err != nil {
		return nil, err
	}
	out, err := s.db.GetOutput(t.ID, store.OutputSemanticHTML)
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}
