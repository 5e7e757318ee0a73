// Package api implements the Semantify REST API using chi.
package api

import (
	"context"
	"net/http"
)

// Identity header names. The authenticating proxy in front of this service
// resolves the session and forwards opaque user/org identifiers; the
// pipeline never interprets them.
const (
	HeaderUserID = "X-User-Id"
	HeaderOrgID  = "X-Org-Id"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller context for review and domain
// management operations.
type Identity struct {
	UserID string
	OrgID  string
}

// IdentityFrom extracts the caller identity placed by RequireIdentity.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// RequireIdentity rejects requests that lack the forwarded identity
// headers. SDK endpoints stay outside this middleware: they authorize by
// verified domain instead.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{
			UserID: r.Header.Get(HeaderUserID),
			OrgID:  r.Header.Get(HeaderOrgID),
		}
		if id.UserID == "" || id.OrgID == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}
