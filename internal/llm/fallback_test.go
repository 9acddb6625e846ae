package llm

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
)

type stubLLM struct {
	name  string
	reply string
	err   error
}

func (s *stubLLM) Name() string { return s.name }
func (s *stubLLM) Complete(ctx context.Context, system, user string) (string, error) {
	return s.reply, s.err
}
func (s *stubLLM) Healthy(ctx context.Context) error { return s.err }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPatternFallbackAlwaysFails(t *testing.T) {
	p := NewPatternFallback()
	if _, err := p.Complete(context.Background(), "sys", "user"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Complete err = %v", err)
	}
	if err := p.Healthy(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Healthy err = %v", err)
	}
}

func TestChainUsesFirstWorkingClient(t *testing.T) {
	broken := &stubLLM{name: "broken", err: errors.New("boom")}
	working := &stubLLM{name: "working", reply: "answer"}
	c := NewChain(testLogger(), broken, working)

	got, err := c.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatal(err)
	}
	if got != "answer" {
		t.Errorf("reply = %q", got)
	}
	if err := c.Healthy(context.Background()); err != nil {
		t.Errorf("Healthy = %v, one client is fine", err)
	}
}

func TestChainSurfacesLastError(t *testing.T) {
	c := NewChain(testLogger(), &stubLLM{name: "a", err: errors.New("boom")}, NewPatternFallback())

	_, err := c.Complete(context.Background(), "sys", "user")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want the last client's error wrapped", err)
	}
}
