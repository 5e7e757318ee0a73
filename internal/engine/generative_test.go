package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/accessaurus/semantify/internal/apperr"
)

func providerServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGenerative(baseURL string) *Generative {
	return NewGenerative(GenerativeConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Model:   "test-model",
	})
}

func TestGenerativeRewrite(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq chatRequest
	srv := providerServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		content, _ := json.Marshal(map[string]any{
			"html": "<header>x</header>",
			"changes": []map[string]string{
				{"from": "div", "to": "header", "reason": "banner"},
			},
		})
		json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Role: "assistant", Content: string(content)}})
	})

	g := newTestGenerative(srv.URL)
	res, err := g.Rewrite(context.Background(), Input{Content: "<div class=\"x\">x</div>", Skeleton: "<div>x</div>"})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if res.HTML != "<header>x</header>" {
		t.Errorf("HTML = %q", res.HTML)
	}
	if len(res.Changes) != 1 || res.Changes[0].To != "header" {
		t.Errorf("Changes = %+v", res.Changes)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/api/chat" {
		t.Errorf("path = %q", gotPath)
	}
	if gotReq.Model != "test-model" || gotReq.Stream {
		t.Errorf("request = %+v", gotReq)
	}
	// The provider sees the stripped skeleton, not the content markup.
	if len(gotReq.Messages) != 2 || gotReq.Messages[1].Content != "Input HTML:\n<div>x</div>" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestGenerativeMissingCredentials(t *testing.T) {
	g := NewGenerative(GenerativeConfig{BaseURL: "http://127.0.0.1:1", Model: "m"})
	_, err := g.Rewrite(context.Background(), Input{Skeleton: "<div>x</div>"})
	if !errors.Is(err, apperr.ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
}

func TestGenerativeProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}},
		{"non-json envelope", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("<html>gateway error</html>"))
		}},
		{"non-json content", func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Content: "sure, here's your HTML!"}})
		}},
		{"markdown fenced content", func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Content: "```json\n{\"html\":\"<p>x</p>\"}\n```"}})
		}},
		{"missing html field", func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Content: `{"changes":[]}`}})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := providerServer(t, tt.handler)
			g := newTestGenerative(srv.URL)
			_, err := g.Rewrite(context.Background(), Input{Skeleton: "<div>x</div>"})
			if !errors.Is(err, apperr.ErrUpstream) {
				t.Errorf("err = %v, want ErrUpstream", err)
			}
		})
	}
}

func TestGenerativeUnreachableProvider(t *testing.T) {
	g := newTestGenerative("http://127.0.0.1:1")
	_, err := g.Rewrite(context.Background(), Input{Skeleton: "<div>x</div>"})
	if !errors.Is(err, apperr.ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
}

func TestGenerativeEmptyChangesNormalized(t *testing.T) {
	srv := providerServer(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Content: `{"html":"<p>x</p>"}`}})
	})
	g := newTestGenerative(srv.URL)
	res, err := g.Rewrite(context.Background(), Input{Skeleton: "<div>x</div>"})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if res.Changes == nil {
		t.Error("Changes must be non-nil")
	}
}

func TestHeuristicEngine(t *testing.T) {
	h := NewHeuristic()
	if h.Name() != NameHeuristic {
		t.Errorf("Name = %q", h.Name())
	}
	res, err := h.Rewrite(context.Background(), Input{Content: `<div class="site-header">x</div>`})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if res.HTML != `<header class="site-header">x</header>` {
		t.Errorf("HTML = %q", res.HTML)
	}
	if len(res.Changes) != 1 {
		t.Errorf("Changes = %+v", res.Changes)
	}
}
