package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-labs/corpus/internal/core/domain"
)

func fastRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestRetryableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"rate limited sentinel", domain.ErrRateLimited, true},
		{"wrapped sentinel", fmt.Errorf("calling api: %w", domain.ErrEmbeddingUnavailable), true},
		{"generation sentinel", domain.ErrGenerationUnavailable, true},
		{"http 429 text", errors.New("429 Too Many Requests"), true},
		{"quota text", errors.New("monthly quota exceeded"), true},
		{"server 503", errors.New("upstream returned 503"), true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"timeout", errors.New("context deadline exceeded (Client.Timeout)"), true},
		{"invalid key", errors.New("invalid api key"), false},
		{"not found", domain.ErrNotFound, false},
		{"bad request", errors.New("400 bad request"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, retryableError(tt.err))
		})
	}
}

func TestRetrier_SucceedsAfterTransientFailures(t *testing.T) {
	r := newRetrier(fastRetryConfig(3), nil)

	attempts := 0
	err := r.do(context.Background(), "test op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("timeout")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetrier_NonRetryableShortCircuits(t *testing.T) {
	r := newRetrier(fastRetryConfig(3), nil)

	attempts := 0
	err := r.do(context.Background(), "embedding batch", func(context.Context) error {
		attempts++
		return errors.New("invalid api key")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Contains(t, err.Error(), "embedding batch")
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestRetrier_ExhaustionWrapsLastError(t *testing.T) {
	r := newRetrier(fastRetryConfig(2), nil)

	attempts := 0
	err := r.do(context.Background(), "test op", func(context.Context) error {
		attempts++
		return domain.ErrRateLimited
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "retries exhausted")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestRetrier_ContextCancellation(t *testing.T) {
	r := newRetrier(fastRetryConfig(5), nil)
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := r.do(ctx, "test op", func(context.Context) error {
		attempts++
		cancel()
		return errors.New("timeout")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetrier_ZeroConfigFallsBackToDefaults(t *testing.T) {
	r := newRetrier(RetryConfig{}, nil)

	assert.Equal(t, DefaultRetryConfig(), r.cfg)
}
