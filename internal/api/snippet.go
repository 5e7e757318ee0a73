package api

import (
	_ "embed"
	"net/http"
)

// snippetJS is the embeddable capture snippet that site owners drop on
// their pages. It performs the skeleton/content split client-side and posts
// snapshots to /sdk/ingest.
//
//go:embed snippet.js
var snippetJS []byte

// Snippet handles GET /sdk/snippet, serving the capture script.
func (h *Handler) Snippet(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(snippetJS)
}
