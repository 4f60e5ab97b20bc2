// Package telemetry provides the Prometheus-backed metrics collector for
// the verification service.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It gives dedicated, well-labeled metric families to the
// signals the verification pipeline emits and folds everything else into
// generic operation vectors, so new call sites never silently drop data.
type PrometheusMetrics struct {
	verificationLatency   *prometheus.HistogramVec
	verificationsTotal    *prometheus.CounterVec
	classificationsTotal  *prometheus.CounterVec
	confidenceScores      *prometheus.HistogramVec
	parametersChecked     prometheus.Histogram
	nliLatency            *prometheus.HistogramVec
	nliRequestsTotal      *prometheus.CounterVec
	nliWarmupsTotal       *prometheus.CounterVec
	nliInputChars         *prometheus.HistogramVec
	operationLatency      *prometheus.HistogramVec
	operationCounter      *prometheus.CounterVec
	systemGauges          *prometheus.GaugeVec
	genericHistograms     *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers
// every metric family under the given namespace. A nil registerer uses the
// default global registry.
func NewPrometheusMetrics(namespace string, reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		verificationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "verification_run_duration_seconds",
				Help:      "Wall-clock duration of full document verifications.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
			},
			[]string{"outcome"},
		),
		verificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verifications_total",
				Help:      "Total number of document verifications by outcome.",
			},
			[]string{"outcome"},
		),
		classificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classifications_total",
				Help:      "Per-parameter classifications by path (model, fallback, model_error).",
			},
			[]string{"path", "parameter"},
		),
		confidenceScores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "classification_confidence",
				Help:      "Entailment confidence scores reported by the model path.",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"parameter"},
		),
		parametersChecked: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "verification_parameters_checked",
				Help:      "Number of parameters judged per verification.",
				Buckets:   prometheus.LinearBuckets(0, 1, 12),
			},
		),
		nliLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "nli_request_duration_seconds",
				Help:      "Latency of entailment backend requests.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"model", "status"},
		),
		nliRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nli_requests_total",
				Help:      "Total entailment backend requests by model and status.",
			},
			[]string{"model", "status"},
		),
		nliWarmupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nli_warmups_total",
				Help:      "Entailment model warmup probes by model and status.",
			},
			[]string{"model", "status"},
		),
		nliInputChars: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "nli_input_chars",
				Help:      "Size of classification inputs in characters.",
				Buckets:   prometheus.ExponentialBuckets(64, 2, 12),
			},
			[]string{"model"},
		),
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Execution time of service operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total service operations by name.",
			},
			[]string{"operation"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_state",
				Help:      "Current system state values (model availability, queue depths).",
			},
			[]string{"metric"},
		),
		genericHistograms: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "observed_values",
				Help:      "Distribution of values without a dedicated metric family.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"metric"},
		),
	}
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string, duration time.Duration, labels map[string]string,
) {
	switch operation {
	case "verification_run":
		pm.verificationLatency.WithLabelValues(labelOr(labels, "outcome", "unknown")).
			Observe(duration.Seconds())
	default:
		pm.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "verifications_total":
		pm.verificationsTotal.WithLabelValues(labelOr(labels, "outcome", "unknown")).Add(value)
	case "verification_classifications_total":
		pm.classificationsTotal.WithLabelValues(
			labelOr(labels, "path", "unknown"),
			labelOr(labels, "parameter", "unknown"),
		).Add(value)
	case "nli_requests_total":
		pm.nliRequestsTotal.WithLabelValues(
			labelOr(labels, "model", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Add(value)
	case "nli_warmup_total":
		pm.nliWarmupsTotal.WithLabelValues(
			labelOr(labels, "model", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in Prometheus histograms.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "verification_confidence":
		pm.confidenceScores.WithLabelValues(labelOr(labels, "parameter", "unknown")).Observe(value)
	case "verification_parameters_checked":
		pm.parametersChecked.Observe(value)
	case "nli_latency_seconds":
		pm.nliLatency.WithLabelValues(
			labelOr(labels, "model", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Observe(value)
	case "nli_input_chars":
		pm.nliInputChars.WithLabelValues(labelOr(labels, "model", "unknown")).Observe(value)
	default:
		pm.genericHistograms.WithLabelValues(metric).Observe(value)
	}
}

// labelOr returns the label's value or a fallback when the label is absent.
func labelOr(labels map[string]string, key, fallback string) string {
	if labels == nil {
		return fallback
	}
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return fallback
}
