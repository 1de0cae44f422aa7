package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

// Chain tries providers in order and returns the first usable answer.
type Chain struct {
	providers []Provider
	log       *logger.Logger
}

func NewChain(log *logger.Logger, ps ...Provider) *Chain {
	if log == nil {
		log = logger.Nop()
	}
	out := make([]Provider, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			out = append(out, p)
		}
	}
	return &Chain{providers: out, log: log.With("component", "ProviderChain")}
}

func (c *Chain) Name() string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, ",")
}

// Primary is the name of the first provider in the chain.
func (c *Chain) Primary() string {
	if len(c.providers) == 0 {
		return ""
	}
	return c.providers[0].Name()
}

func (c *Chain) Providers() []Provider { return c.providers }

func (c *Chain) ExtractTopics(ctx context.Context, text string) (any, error) {
	raw, _, err := c.Extract(ctx, text)
	return raw, err
}

// Extract returns the raw topics and the name of the provider that produced them.
// A failure wraps ErrUnavailable when every provider was unavailable and
// ErrAllFailed otherwise.
func (c *Chain) Extract(ctx context.Context, text string) (any, string, error) {
	if len(c.providers) == 0 {
		return nil, "", fmt.Errorf("%w: empty provider chain", ErrUnknown)
	}

	var errs []error
	allUnavailable := true
	for i, p := range c.providers {
		raw, err := p.ExtractTopics(ctx, text)
		if err == nil {
			if i > 0 {
				c.log.Info("fallback provider answered", "provider", p.Name(), "attempted", i+1)
			}
			return raw, p.Name(), nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		if errors.Is(err, ErrEmptyInput) {
			return nil, "", err
		}
		if !errors.Is(err, ErrUnavailable) {
			allUnavailable = false
		}
		errs = append(errs, err)
		c.log.Warn("provider failed", "provider", p.Name(), "error", err.Error())
	}

	joined := errors.Join(errs...)
	if allUnavailable {
		return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, joined)
	}
	return nil, "", fmt.Errorf("%w: %v", ErrAllFailed, joined)
}
