package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/accessaurus/semantify/internal/pipeline"
)

// NewRouter creates a chi router with all API routes mounted.
//
// SDK routes carry permissive CORS: the capturing snippet runs on arbitrary
// third-party origins, so the requesting origin is reflected and
// credentials stay disabled. Review and domain routes require the
// forwarded identity headers instead.
func NewRouter(svc *pipeline.Service) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	r.Route("/sdk", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowOriginFunc:  func(_ *http.Request, _ string) bool { return true },
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           600,
		}))
		r.Post("/ingest", h.Ingest)
		r.Get("/latest", h.Latest)
		r.Get("/snippet", h.Snippet)
	})

	// Interactive preview: heuristic engine only, nothing persisted.
	r.Post("/semantify", h.Preview)

	r.Group(func(r chi.Router) {
		r.Use(RequireIdentity)

		r.Post("/review/{id}/approve", h.Approve)
		r.Post("/review/{id}/reject", h.Reject)

		r.Get("/domains", h.ListDomains)
		r.Post("/domains", h.CreateDomain)
		r.Post("/domains/{id}/verify", h.VerifyDomain)
	})

	return r
}
