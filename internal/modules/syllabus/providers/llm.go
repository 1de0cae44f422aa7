package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yungbote/blueprintx-backend/internal/platform/llm"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

// Completer is the slice of the LLM client a provider needs.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      2,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

type LLMProvider struct {
	name     string
	client   Completer
	breaker  *gobreaker.CircuitBreaker
	maxChars int
	log      *logger.Logger
}

// NewLLM wraps an OpenAI-compatible client. maxChars caps how much syllabus text
// is sent in the prompt; zero means no cap.
func NewLLM(log *logger.Logger, name string, client Completer, maxChars int, bc BreakerConfig) *LLMProvider {
	if log == nil {
		log = logger.Nop()
	}
	plog := log.With("provider", name)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= bc.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			plog.Warn("provider circuit state changed", "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// the caller giving up says nothing about the upstream
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &LLMProvider{name: name, client: client, breaker: cb, maxChars: maxChars, log: plog}
}

func (p *LLMProvider) Name() string { return p.name }

func (p *LLMProvider) State() gobreaker.State { return p.breaker.State() }

func (p *LLMProvider) ExtractTopics(ctx context.Context, text string) (any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	out, err := p.breaker.Execute(func() (interface{}, error) {
		reply, err := p.client.Complete(ctx, []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(text, p.maxChars)},
		})
		if err != nil {
			return nil, err
		}
		return ParseTopics(reply)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, p.name, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	return out, nil
}
