package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

type stubProvider struct {
	name  string
	raw   any
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) ExtractTopics(ctx context.Context, text string) (any, error) {
	s.calls++
	return s.raw, s.err
}

func TestChain_FallsBackInOrder(t *testing.T) {
	a := &stubProvider{name: "a", err: ErrNoTopics}
	b := &stubProvider{name: "b", raw: []any{"x"}}
	c := &stubProvider{name: "c", raw: []any{"y"}}

	raw, used, err := NewChain(logger.Nop(), a, b, c).Extract(context.Background(), "text")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if used != "b" || len(raw.([]any)) != 1 {
		t.Fatalf("used=%q raw=%v", used, raw)
	}
	if c.calls != 0 {
		t.Fatalf("later providers should not be called")
	}
}

func TestChain_AllUnavailable(t *testing.T) {
	a := &stubProvider{name: "a", err: ErrUnavailable}
	b := &stubProvider{name: "b", err: ErrUnavailable}
	_, _, err := NewChain(logger.Nop(), a, b).Extract(context.Background(), "text")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestChain_MixedFailures(t *testing.T) {
	a := &stubProvider{name: "a", err: ErrUnavailable}
	b := &stubProvider{name: "b", err: ErrUnparseable}
	_, _, err := NewChain(logger.Nop(), a, b).Extract(context.Background(), "text")
	if !errors.Is(err, ErrAllFailed) || errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrAllFailed only, got %v", err)
	}
}

func TestChain_StopsOnEmptyInputAndCancel(t *testing.T) {
	a := &stubProvider{name: "a", err: ErrEmptyInput}
	b := &stubProvider{name: "b", raw: []any{}}
	if _, _, err := NewChain(logger.Nop(), a, b).Extract(context.Background(), ""); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if b.calls != 0 {
		t.Fatalf("fallback should not run for empty input")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a = &stubProvider{name: "a", err: context.Canceled}
	b = &stubProvider{name: "b", raw: []any{}}
	if _, _, err := NewChain(logger.Nop(), a, b).Extract(ctx, "text"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if b.calls != 0 {
		t.Fatalf("fallback should not run after cancellation")
	}
}

func TestRegistryChain(t *testing.T) {
	groq := &stubProvider{name: "groq"}
	openai := &stubProvider{name: "openai"}
	outline := NewOutline()

	r, err := NewRegistry(logger.Nop(), "groq", []string{"openai", "missing", "outline"}, groq, openai, outline)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	ch, err := r.Chain("")
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if ch.Name() != "groq,openai,outline" {
		t.Fatalf("default chain: %q", ch.Name())
	}

	ch, err = r.Chain("OpenAI")
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if ch.Name() != "openai,outline" || ch.Primary() != "openai" {
		t.Fatalf("explicit chain: %q", ch.Name())
	}

	if _, err := r.Chain("gemini"); !errors.Is(err, ErrUnknown) {
		t.Fatalf("expected ErrUnknown, got %v", err)
	}
	if _, err := NewRegistry(logger.Nop(), "gemini", nil, groq); !errors.Is(err, ErrUnknown) {
		t.Fatalf("expected ErrUnknown for bad default, got %v", err)
	}
	if _, err := NewRegistry(logger.Nop(), "groq", nil, groq, &stubProvider{name: "GROQ"}); err == nil {
		t.Fatalf("expected duplicate provider error")
	}
}
