package domain

import "context"

// LLM is the interface for language-model collaborators. Every call site must
// tolerate Complete failing and fall back to local pattern matching.
type LLM interface {
	// Complete sends a system/user prompt pair and returns a single text
	// completion.
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
	Healthy(ctx context.Context) error
}
