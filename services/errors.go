package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"docchat-backend/internal/ai"
)

// Request-scoped failure kinds. Both are recoverable: the caller gets a
// graceful degraded response, never a crash or a fabricated answer.
var (
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	ErrGenerationFailed     = errors.New("generation failed")
)

// retryTransient runs op up to maxAttempts times with exponential backoff.
// Permanent failures stop the retry loop immediately and propagate.
func retryTransient[T any](ctx context.Context, maxAttempts int, op func() (T, error)) (T, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 200 * time.Millisecond
	expo.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !ai.IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(uint(maxAttempts)))
}
