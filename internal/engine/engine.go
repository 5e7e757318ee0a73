// Package engine defines the rewrite engine contract and its two
// implementations. The orchestrator treats an Engine as opaque: any
// implementation satisfying the contract is substitutable, selected by
// configuration at construction time.
package engine

import (
	"context"

	"github.com/accessaurus/semantify/internal/semantic"
)

// Engine names as persisted on transform rows.
const (
	NameHeuristic  = "heuristic"
	NameGenerative = "generative"
)

// Input carries both halves of the skeleton/content split. Content markup
// (class/id/role preserved) drives the heuristic rewrite; skeleton markup
// is what the generative provider sees.
type Input struct {
	Content  string
	Skeleton string
}

// Result is the common output shape of both engines.
type Result struct {
	HTML    string
	Changes []semantic.Change
}

// Engine rewrites markup into a semantically meaningful alternative.
type Engine interface {
	// Name identifies the engine on persisted transform records.
	Name() string
	// Rewrite produces the alternative markup plus the claimed changes.
	Rewrite(ctx context.Context, in Input) (*Result, error)
}

// Heuristic wraps the conservative tree-rewriting passes.
type Heuristic struct {
	opts semantic.Options
}

// NewHeuristic creates the default heuristic engine.
func NewHeuristic() *Heuristic {
	return &Heuristic{opts: semantic.DefaultOptions()}
}

// Name implements Engine.
func (h *Heuristic) Name() string { return NameHeuristic }

// Rewrite implements Engine by running the heuristic passes over the
// content markup.
func (h *Heuristic) Rewrite(_ context.Context, in Input) (*Result, error) {
	res, err := semantic.Rewrite(in.Content, h.opts)
	if err != nil {
		return nil, err
	}
	return &Result{HTML: res.HTML, Changes: res.Stats.Changes}, nil
}
