package nli

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracedClassifier wraps backend calls in OpenTelemetry spans so
// classification latency shows up inside the verification traces the
// engine emits.
type tracedClassifier struct {
	next   CoreClassifier
	tracer trace.Tracer
}

// TracingMiddleware creates middleware that adds distributed tracing to
// classification requests and readiness probes.
func TracingMiddleware(serviceName string) Middleware {
	tracer := otel.Tracer(serviceName)
	return func(next CoreClassifier) CoreClassifier {
		return &tracedClassifier{
			next:   next,
			tracer: tracer,
		}
	}
}

// DoClassify executes the request within a trace span carrying the model,
// input size, and label count.
func (t *tracedClassifier) DoClassify(ctx context.Context, input string, labels []string) (map[string]float64, error) {
	ctx, span := t.tracer.Start(ctx, "nli.classify",
		trace.WithAttributes(
			attribute.String("nli.model", t.next.GetModel()),
			attribute.Int("nli.input_chars", len(input)),
			attribute.Int("nli.labels", len(labels)),
		))
	defer span.End()

	scores, err := t.next.DoClassify(ctx, input, labels)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return scores, err
}

// Ready executes the readiness probe within a trace span.
func (t *tracedClassifier) Ready(ctx context.Context) error {
	ctx, span := t.tracer.Start(ctx, "nli.warmup",
		trace.WithAttributes(attribute.String("nli.model", t.next.GetModel())))
	defer span.End()

	err := t.next.Ready(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

// GetModel returns the model name from the wrapped implementation.
func (t *tracedClassifier) GetModel() string { return t.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (t *tracedClassifier) SetModel(m string) { t.next.SetModel(m) }
