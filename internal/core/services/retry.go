// Package services implements the core orchestrators behind the driving
// ports: ingestion, retrieval-augmented answering, conversation storage
// selection, and streaming chat.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nimbus-labs/corpus/internal/core/domain"
	"github.com/nimbus-labs/corpus/internal/logger"
)

// RetryConfig configures the backoff behaviour for provider calls.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns sensible defaults for provider API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups error substrings by category. Matched
// case-insensitively against err.Error(). Provider adapters speak plain
// HTTP and surface server text verbatim, so substring matching is the
// classification mechanism alongside the domain sentinels.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},      // rate limiting
	{"500", "502", "503", "504", "unavailable"},  // transient server errors
	{"connection reset", "timeout", "temporary"}, // network errors
}

// retryableError reports whether err is transient and worth retrying.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrRateLimited) ||
		errors.Is(err, domain.ErrEmbeddingUnavailable) ||
		errors.Is(err, domain.ErrGenerationUnavailable) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, sub := range group {
			if strings.Contains(errStr, sub) {
				return true
			}
		}
	}
	return false
}

// retrier runs provider calls with exponential backoff and an optional
// per-attempt rate limiter.
type retrier struct {
	cfg     RetryConfig
	limiter *rate.Limiter
}

// newRetrier creates a retrier. limiter may be nil.
func newRetrier(cfg RetryConfig, limiter *rate.Limiter) *retrier {
	if cfg.MaxRetries == 0 && cfg.InitialInterval == 0 {
		cfg = DefaultRetryConfig()
	}
	return &retrier{cfg: cfg, limiter: limiter}
}

// do runs fn until it succeeds, a non-retryable error occurs, retries
// are exhausted, or ctx is cancelled. Delay doubles per attempt up to
// the configured cap. The last error is wrapped at exhaustion.
func (r *retrier) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := r.cfg.InitialInterval

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("waiting for rate limiter: %w", err)
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryableError(err) {
			return fmt.Errorf("%s: %w", op, err)
		}
		if attempt == r.cfg.MaxRetries {
			break
		}

		logger.Debug("%s failed (attempt %d), retrying in %s: %v", op, attempt+1, delay, err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if delay > r.cfg.MaxInterval {
			delay = r.cfg.MaxInterval
		}
	}

	return fmt.Errorf("%s: retries exhausted: %w", op, lastErr)
}
