package providers

import (
	"context"
	"errors"
)

var (
	// ErrNoTopics means the provider answered with JSON that has no "topics" key.
	ErrNoTopics = errors.New("provider response has no topics")
	// ErrUnparseable means no JSON object could be recovered from the response.
	ErrUnparseable = errors.New("provider response is not valid JSON")
	// ErrUnavailable is returned while a provider's circuit is open.
	ErrUnavailable = errors.New("provider temporarily unavailable")
	ErrUnknown     = errors.New("unknown provider")
	ErrAllFailed   = errors.New("all providers failed")
	ErrEmptyInput  = errors.New("no text to analyze")
)

// Provider turns syllabus text into a raw, unvalidated topic tree. The returned
// value is handed to the analyzer as-is.
type Provider interface {
	Name() string
	ExtractTopics(ctx context.Context, text string) (any, error)
}
