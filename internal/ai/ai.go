// Package ai wraps the upstream text and image generation providers.
package ai

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

// Provider errors.
var (
	ErrNotConfigured = errors.New("generation provider not configured")
	ErrEmptyResponse = errors.New("generation provider returned no content")
	ErrInvalidSize   = errors.New("unsupported image size")
)

// ProviderError is a non-success answer from an upstream provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// NewLimiter returns the limiter shared by all outbound provider calls.
// A non-positive rps disables limiting.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("provider rate limit: %w", err)
	}
	return nil
}
