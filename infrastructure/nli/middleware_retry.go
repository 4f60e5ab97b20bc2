package nli

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// retryClassifier implements automatic retry logic with exponential backoff.
// This absorbs transient failures, in particular the Inference API's
// model-loading responses, while respecting circuit breaker and context
// constraints.
type retryClassifier struct {
	next       CoreClassifier
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// RetryMiddleware creates middleware that automatically retries failed
// requests with exponential backoff and jitter. Errors that classify as
// non-retryable, such as authentication failures, are returned immediately.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next CoreClassifier) CoreClassifier {
		return &retryClassifier{
			next:       next,
			maxRetries: maxRetries,
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
		}
	}
}

// DoClassify executes the request with automatic retry logic.
func (r *retryClassifier) DoClassify(ctx context.Context, input string, labels []string) (map[string]float64, error) {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		scores, err := r.next.DoClassify(ctx, input, labels)
		if err == nil {
			return scores, nil
		}

		lastErr = err

		if err == ErrCircuitOpen || ctx.Err() != nil || !isRetryable(err) {
			break
		}

		if attempt == r.maxRetries {
			break
		}

		delay := r.calculateDelay(attempt)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			// Continue to next attempt.
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", r.maxRetries+1, lastErr)
}

// isRetryable reports whether an error is worth another attempt. Classified
// provider errors carry their own retryability; anything unclassified is
// treated as transient.
func isRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.IsRetryable()
	}
	return true
}

func (r *retryClassifier) calculateDelay(attempt int) time.Duration {
	// Exponential backoff with jitter.
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	// #nosec G115 - attempt is bounded between 0 and 30
	multiplier := 1 << uint(attempt)
	delay := time.Duration(float64(r.baseDelay) * float64(multiplier))

	// Add jitter (±25%)
	// #nosec G404 - Using weak RNG is acceptable for jitter calculation
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.5)
	delay = delay + jitter - (delay / 4)

	if delay > r.maxDelay {
		delay = r.maxDelay
	}

	return delay
}

// Ready forwards the readiness probe unretried; warmup retry policy belongs
// to the caller's load bound.
func (r *retryClassifier) Ready(ctx context.Context) error { return r.next.Ready(ctx) }

// GetModel returns the model name from the wrapped implementation.
func (r *retryClassifier) GetModel() string { return r.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (r *retryClassifier) SetModel(m string) { r.next.SetModel(m) }
