package nli

import (
	"context"
	"time"
)

// timeoutClassifier enforces per-request timeouts so one hung backend call
// cannot consume the engine's whole verification budget.
type timeoutClassifier struct {
	next    CoreClassifier
	timeout time.Duration
}

// TimeoutMiddleware creates middleware that enforces request timeouts on
// both classification calls and readiness probes.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreClassifier) CoreClassifier {
		return &timeoutClassifier{
			next:    next,
			timeout: timeout,
		}
	}
}

// DoClassify executes the request with a timeout context.
func (t *timeoutClassifier) DoClassify(ctx context.Context, input string, labels []string) (map[string]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.DoClassify(ctx, input, labels)
}

// Ready executes the readiness probe with a timeout context.
func (t *timeoutClassifier) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Ready(ctx)
}

// GetModel returns the model name from the wrapped implementation.
func (t *timeoutClassifier) GetModel() string { return t.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (t *timeoutClassifier) SetModel(m string) { t.next.SetModel(m) }
