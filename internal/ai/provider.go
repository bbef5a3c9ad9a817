package ai

import (
	"context"

	errpkg "github.com/studiahub/studiahub/internal/errors"
)

// CompletionProvider generates chat completions for quiz and Q&A prompts.
type CompletionProvider interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
}

// Disabled is the provider used when no API key is configured. Every call
// fails with ErrProviderDisabled so callers surface a clear message instead
// of hanging jobs.
type Disabled struct{}

func (Disabled) Complete(ctx context.Context, system, user string) (string, error) {
	return "", errpkg.ErrProviderDisabled
}

func (Disabled) Name() string { return "disabled" }

// Static returns a canned response for every completion. Used in tests and
// for offline development.
type Static struct {
	Response string
	Err      error
}

func (s Static) Complete(ctx context.Context, system, user string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.Response, nil
}

func (s Static) Name() string { return "static" }
