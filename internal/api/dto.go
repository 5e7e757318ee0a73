package api

import (
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// IngestRequest is the body of POST /sdk/ingest. Skeleton and Hash are
// optional: the server derives a skeleton and computes the fingerprint when
// the capturing snippet omits them.
type IngestRequest struct {
	OrgID    string `json:"orgId"`
	PageURL  string `json:"pageUrl"`
	HTML     string `json:"html"`
	Skeleton string `json:"skeleton,omitempty"`
	Hash     string `json:"hash,omitempty"`
}

// Validate validates the ingest request.
func (r IngestRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OrgID, validation.Required),
		validation.Field(&r.PageURL, validation.Required),
		validation.Field(&r.HTML, validation.Required),
	)
}

// PreviewRequest is the body of POST /semantify: run the heuristic engine
// only, no persistence, no fingerprinting.
type PreviewRequest struct {
	HTML    string          `json:"html"`
	Options json.RawMessage `json:"options,omitempty"`
}

// Validate validates the preview request.
func (r PreviewRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.HTML, validation.Required),
	)
}

// CreateDomainRequest is the body of POST /domains.
type CreateDomainRequest struct {
	Domain string `json:"domain"`
}

// Validate validates the domain registration request.
func (r CreateDomainRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Domain, validation.Required),
	)
}

// VerifyDomainResponse reports the outcome of an ownership check.
type VerifyDomainResponse struct {
	Verified bool `json:"verified"`
}
