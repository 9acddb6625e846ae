package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sarabot/internal/domain"
)

// ErrUnavailable is what every call on the pattern fallback returns:
// callers are expected to handle it by running their local regex cascade.
var ErrUnavailable = errors.New("llm unavailable")

// PatternFallback is the domain.LLM used when no API key is configured.
// It never performs network calls; Complete always fails so each caller's
// regex path takes over.
type PatternFallback struct{}

func NewPatternFallback() *PatternFallback { return &PatternFallback{} }

func (p *PatternFallback) Name() string { return "pattern-fallback" }

func (p *PatternFallback) Complete(ctx context.Context, system, user string) (string, error) {
	return "", ErrUnavailable
}

func (p *PatternFallback) Healthy(ctx context.Context) error {
	return ErrUnavailable
}

// Chain tries each client in order and answers from the first that
// succeeds.
type Chain struct {
	clients []domain.LLM
	logger  *slog.Logger
}

func NewChain(logger *slog.Logger, clients ...domain.LLM) *Chain {
	return &Chain{clients: clients, logger: logger}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Complete(ctx context.Context, system, user string) (string, error) {
	var lastErr error = ErrUnavailable
	for _, client := range c.clients {
		resp, err := client.Complete(ctx, system, user)
		if err == nil {
			return resp, nil
		}
		c.logger.Warn("llm client failed, trying next", "client", client.Name(), "err", err)
		lastErr = err
	}
	return "", fmt.Errorf("all llm clients failed: %w", lastErr)
}

func (c *Chain) Healthy(ctx context.Context) error {
	var lastErr error = ErrUnavailable
	for _, client := range c.clients {
		if err := client.Healthy(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return lastErr
}
