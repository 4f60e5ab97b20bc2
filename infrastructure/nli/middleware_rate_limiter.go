package nli

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// rateLimitedClassifier implements rate limiting using a token bucket
// algorithm. This keeps request pacing inside the backend's quota when a
// verification pass fans out over many parameters.
type rateLimitedClassifier struct {
	next    CoreClassifier
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware that enforces rate limiting using a
// token bucket algorithm. The limit parameter sets requests per second,
// while burst allows temporary spikes above the sustained rate. Readiness
// probes bypass the limiter so warmup is never delayed by quota pacing.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next CoreClassifier) CoreClassifier {
		return &rateLimitedClassifier{
			next:    next,
			limiter: limiter,
		}
	}
}

// DoClassify waits for rate limit permission before forwarding the request.
func (r *rateLimitedClassifier) DoClassify(ctx context.Context, input string, labels []string) (map[string]float64, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.DoClassify(ctx, input, labels)
}

// Ready forwards the readiness probe without consuming rate limit tokens.
func (r *rateLimitedClassifier) Ready(ctx context.Context) error { return r.next.Ready(ctx) }

// GetModel returns the model name from the wrapped implementation.
func (r *rateLimitedClassifier) GetModel() string { return r.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (r *rateLimitedClassifier) SetModel(m string) { r.next.SetModel(m) }
