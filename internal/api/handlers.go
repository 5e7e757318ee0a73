package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/accessaurus/semantify/internal/pipeline"
	"github.com/accessaurus/semantify/internal/semantic"
)

// Handler holds the API route handlers.
type Handler struct {
	svc *pipeline.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *pipeline.Service) *Handler {
	return &Handler{svc: svc}
}

// Ingest handles POST /sdk/ingest: one captured snapshot in, a transform
// id (fresh or cached) out.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	result, err := h.svc.Ingest(r.Context(), pipeline.IngestRequest{
		OrgID:    req.OrgID,
		PageURL:  req.PageURL,
		HTML:     req.HTML,
		Skeleton: req.Skeleton,
		Hash:     req.Hash,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Latest handles GET /sdk/latest: returns the stored semantic_html output
// body for the most recent matching transform.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orgID := q.Get("orgId")
	pageURL := q.Get("pageUrl")
	hash := q.Get("hash")
	if orgID == "" || pageURL == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("orgId and pageUrl are required"))
		return
	}

	body, err := h.svc.Latest(r.Context(), orgID, pageURL, hash)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Preview handles POST /semantify: standalone heuristic rewrite for
// interactive use, nothing persisted.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	opts := semantic.DefaultOptions()
	if len(req.Options) > 0 {
		if err := json.Unmarshal(req.Options, &opts); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid options"))
			return
		}
	}

	result, err := semantic.Rewrite(req.HTML, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Approve handles POST /review/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.reviewAction(w, r, h.svc.Approve)
}

// Reject handles POST /review/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.reviewAction(w, r, h.svc.Reject)
}

func (h *Handler) reviewAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id, orgID, userID string) error) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
		return
	}
	transformID := chi.URLParam(r, "id")
	if transformID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("transform id is required"))
		return
	}
	if err := fn(r.Context(), transformID, id.OrgID, id.UserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateDomain handles POST /domains.
func (h *Handler) CreateDomain(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
		return
	}
	var req CreateDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	d, err := h.svc.RegisterDomain(r.Context(), id.OrgID, req.Domain)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// ListDomains handles GET /domains.
func (h *Handler) ListDomains(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
		return
	}
	domains, err := h.svc.Domains(r.Context(), id.OrgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"domains": domains})
}

// VerifyDomain handles POST /domains/{id}/verify.
func (h *Handler) VerifyDomain(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
		return
	}
	domainID := chi.URLParam(r, "id")
	verified, err := h.svc.VerifyDomain(r.Context(), domainID, id.OrgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifyDomainResponse{Verified: verified})
}
