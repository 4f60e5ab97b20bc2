package nli

import (
	"context"
	"time"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/ports"
)

// metricsClassifier collects request metrics: latency, status, and input
// sizes per model. Zero-shot endpoints report no token usage, so input
// length in characters stands in as the cost signal.
type metricsClassifier struct {
	next      CoreClassifier
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that collects request metrics for
// operational monitoring of the classification backend.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreClassifier) CoreClassifier {
		return &metricsClassifier{
			next:      next,
			collector: collector,
		}
	}
}

// DoClassify executes the request while recording latency, outcome, and
// input size.
func (m *metricsClassifier) DoClassify(ctx context.Context, input string, labels []string) (map[string]float64, error) {
	start := time.Now()
	scores, err := m.next.DoClassify(ctx, input, labels)

	statusLabels := map[string]string{
		"model":  m.next.GetModel(),
		"status": "success",
	}

	if err != nil {
		if err == ErrCircuitOpen {
			statusLabels["status"] = "circuit_open"
		} else if ctx.Err() == context.DeadlineExceeded {
			statusLabels["status"] = "timeout"
		} else {
			statusLabels["status"] = "error"
		}
	}

	if m.collector != nil {
		m.collector.RecordHistogram("nli_latency_seconds", time.Since(start).Seconds(), statusLabels)
		m.collector.RecordCounter("nli_requests_total", 1, statusLabels)
		m.collector.RecordHistogram("nli_input_chars", float64(len(input)),
			map[string]string{"model": m.next.GetModel()})
	}

	return scores, err
}

// Ready executes the readiness probe while recording its outcome.
func (m *metricsClassifier) Ready(ctx context.Context) error {
	err := m.next.Ready(ctx)
	if m.collector != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		m.collector.RecordCounter("nli_warmup_total", 1,
			map[string]string{"model": m.next.GetModel(), "status": status})
	}
	return err
}

// GetModel returns the model name from the wrapped implementation.
func (m *metricsClassifier) GetModel() string { return m.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (m *metricsClassifier) SetModel(model string) { m.next.SetModel(model) }
