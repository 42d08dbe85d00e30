// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/ablation-bench/pkg/types"
)

// Backoff starts at retryBaseDelay and doubles per attempt, capped at
// retryMaxDelay: 4 s, 8 s, 16 s, 32 s, 60 s. Tests override the base to
// avoid real sleeps.
var (
	retryBaseDelay = 4 * time.Second
	retryMaxDelay  = 60 * time.Second
)

// retryBackend retries transient provider failures with exponential
// backoff. Non-transient errors and context cancellation pass straight
// through.
type retryBackend struct {
	inner       Backend
	maxAttempts int
	logger      *zap.Logger
}

// WithRetry wraps a backend with up to maxAttempts tries per call.
func WithRetry(inner Backend, maxAttempts int, logger *zap.Logger) Backend {
	if maxAttempts <= 1 {
		return inner
	}
	return &retryBackend{inner: inner, maxAttempts: maxAttempts, logger: logger}
}

func (b *retryBackend) Model() string { return b.inner.Model() }

func (b *retryBackend) Complete(ctx context.Context, req Request) (Response, error) {
	var lastErr error
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		resp, err := b.inner.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !types.IsTransient(err) {
			return Response{}, err
		}
		lastErr = err
		if attempt == b.maxAttempts {
			break
		}

		backoff := time.Duration(math.Pow(2, float64(attempt-1))) * retryBaseDelay
		if backoff > retryMaxDelay {
			backoff = retryMaxDelay
		}
		b.logger.Warn("transient provider error, backing off",
			zap.String("model", b.inner.Model()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", b.maxAttempts),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return Response{}, lastErr
}
