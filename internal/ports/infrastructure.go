package ports

import (
	"context"
	"time"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus, OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like fallback activations,
	// provider errors, and verdict outcomes.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like model availability and
	// in-flight verifications.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like confidence scores
	// and evidence sizes.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// DocumentExtractor turns raw document bytes into the text-and-tables
// structure the verification engine consumes. Implementations decide how:
// layout analysis, native text extraction, or a combination.
type DocumentExtractor interface {
	// IsScanned reports whether the document appears to be a scan rather
	// than born-digital content. Errors during detection default to true,
	// sending the document down the more thorough extraction path.
	IsScanned(data []byte) bool

	// Extract recovers text and tables from the document. The returned
	// data is best-effort: extraction stops once every tracked parameter
	// has been sighted, and tables may be empty when no layout analysis
	// was available.
	Extract(ctx context.Context, data []byte) (domain.DocumentData, error)
}

// CertificateRenderer produces a quality certificate for a compliant
// verification result.
type CertificateRenderer interface {
	// Render writes a certificate for the document and returns the path of
	// the generated file. Rendering a non-compliant result is an error.
	Render(documentName, standardName string, result domain.VerificationResult) (string, error)
}

// RunStore persists verification-run audit records and serves them back in
// reverse chronological order.
type RunStore interface {
	// RecordRun persists one completed run.
	RecordRun(ctx context.Context, run domain.VerificationRun) error

	// RecentRuns returns up to limit of the most recent runs, newest first.
	RecentRuns(ctx context.Context, limit int) ([]domain.VerificationRun, error)

	// Count reports how many runs the store currently holds.
	Count(ctx context.Context) (int64, error)

	// Close releases the store's resources.
	Close() error
}
