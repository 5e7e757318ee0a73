package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/accessaurus/semantify/internal/apperr"
	"github.com/accessaurus/semantify/internal/semantic"
)

// generativePrompt instructs the provider to honor the same contract as the
// heuristic engine: content and order preserved, strict JSON out.
const generativePrompt = `You transform noisy HTML (no classes/styles) into semantic, accessible HTML.
- Preserve content and order.
- Prefer header/nav/main/section/article/aside/footer; figure/figcaption; time[datetime].
- Anchor used as button -> button when href is missing/trivial.
- Output strict JSON only: {"html": string, "changes": [{"from": string, "to": string, "reason": string}] }.
- Do not include markdown fences.`

// GenerativeConfig configures the external rewrite provider. The provider
// speaks the Ollama-compatible chat API.
type GenerativeConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Generative is the alternate engine backed by an external generative
// provider. All failures surface as apperr.ErrUpstream so the orchestrator
// can mark the transform failed without guessing at causes.
type Generative struct {
	cfg    GenerativeConfig
	client *http.Client
}

// NewGenerative creates the generative engine. Credentials are checked at
// rewrite time, not here, so a misconfigured provider fails the transform
// rather than process startup.
func NewGenerative(cfg GenerativeConfig) *Generative {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Generative{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Name implements Engine.
func (g *Generative) Name() string { return NameGenerative }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

type providerResult struct {
	HTML    string            `json:"html"`
	Changes []semantic.Change `json:"changes"`
}

// Rewrite implements Engine by sending the skeleton markup to the provider
// and validating the returned JSON against the engine contract.
func (g *Generative) Rewrite(ctx context.Context, in Input) (*Result, error) {
	if g.cfg.APIKey == "" {
		return nil, fmt.Errorf("engine: provider credentials not configured: %w", apperr.ErrUpstream)
	}

	body, err := json.Marshal(chatRequest{
		Model:  g.cfg.Model,
		Stream: false,
		Messages: []chatMessage{
			{Role: "system", Content: generativePrompt},
			{Role: "user", Content: "Input HTML:\n" + in.Skeleton},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("engine: marshal chat request: %w", err)
	}

	url := strings.TrimSuffix(g.cfg.BaseURL, "/") + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("engine: build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine: provider call: %v: %w", err, apperr.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine: provider status %d: %w", resp.StatusCode, apperr.ErrUpstream)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("engine: read provider response: %v: %w", err, apperr.ErrUpstream)
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return nil, fmt.Errorf("engine: provider returned non-JSON envelope: %w", apperr.ErrUpstream)
	}

	var out providerResult
	if err := json.Unmarshal([]byte(chat.Message.Content), &out); err != nil {
		return nil, fmt.Errorf("engine: provider returned non-JSON content: %w", apperr.ErrUpstream)
	}
	if out.HTML == "" {
		return nil, fmt.Errorf("engine: provider response missing html: %w", apperr.ErrUpstream)
	}
	if out.Changes == nil {
		out.Changes = []semantic.Change{}
	}
	return &Result{HTML: out.HTML, Changes: out.Changes}, nil
}
