// Package ai adapts the external text-completion services the game consults:
// a best-effort bingo-pattern validator and a wish/worry theme summarizer.
// Both are optional; every call has a deterministic local fallback.
package ai

import "context"

// Provider is a text-completion backend. CompleteJSON asks the model for a
// single JSON object response; both calls respect ctx deadlines.
type Provider interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
	CompleteJSON(ctx context.Context, model string, prompt string) (string, error)
}
