package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/accessaurus/semantify/internal/apperr"
	"github.com/accessaurus/semantify/internal/store"
)

// RegisterDomain records a hostname for the tenant and returns the row with
// its verification token. The caller publishes the token as a DNS TXT
// record and then calls VerifyDomain.
func (s *Service) RegisterDomain(_ context.Context, orgID, domain string) (*store.Domain, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" || strings.ContainsAny(domain, "/: ") {
		return nil, fmt.Errorf("pipeline: %q is not a hostname: %w", domain, apperr.ErrValidation)
	}
	return s.db.CreateDomain(orgID, domain)
}

// Domains lists the tenant's registered domains.
func (s *Service) Domains(_ context.Context, orgID string) ([]store.Domain, error) {
	return s.db.ListDomains(orgID)
}
