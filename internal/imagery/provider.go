// Package imagery provides the polymorphic image capability of the pipeline:
// a fast stock-photo search and a slower generative backend that uploads its
// output to blob storage. Both satisfy the same single-call contract.
package imagery

import (
	"context"
	"errors"
)

// Common provider errors.
var (
	// ErrEmptyPrompt is returned when a task is started without an image
	// prompt.
	ErrEmptyPrompt = errors.New("imagery: image prompt cannot be empty")

	// ErrProviderFailed wraps upstream search or generation failures.
	ErrProviderFailed = errors.New("imagery: provider call failed")
)

// Result is the outcome of one image lookup. An empty URL with a nil error is
// a legitimate miss (stock search found nothing), not a failure.
type Result struct {
	URL string
}

// Provider fetches or generates one image for a prompt. Implementations must
// honor context cancellation; long-running backends are expected to bound
// themselves with their own timeout.
type Provider interface {
	FetchOrGenerate(ctx context.Context, prompt string) (Result, error)
}
