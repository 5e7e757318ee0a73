// Package apperr defines the sentinel errors shared across the pipeline.
// Handlers map these to HTTP statuses with errors.Is; any other error
// reaching a handler is treated as an internal processing failure.
package apperr

import "errors"

var (
	// ErrValidation indicates missing or malformed caller input. No rows
	// are created; the caller must fix the request and resubmit.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden indicates the caller's tenant is not authorized for the
	// target resource (unverified domain, tenant mismatch).
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates a referenced page, transform, or output is absent.
	ErrNotFound = errors.New("not found")

	// ErrUpstream indicates the generative provider was unavailable or
	// returned unusable data.
	ErrUpstream = errors.New("upstream provider failed")

	// ErrConflict indicates a uniqueness constraint fired. Ingestion treats
	// this as "someone else already processed this input".
	ErrConflict = errors.New("conflict")
)
