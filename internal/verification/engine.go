// Package verification implements the document compliance engine: evidence
// collection from extracted document content, numeric/unit extraction,
// standard requirement parsing, per-parameter compliance classification
// with a model-or-fallback strategy, and aggregation into one overall
// verdict under a wall-clock budget and a minimum-coverage gate.
//
// The engine's public contract is total: for any structurally valid input
// it returns a well-formed VerificationResult and never an error. Every
// failure mode inside the pipeline degrades to a verdict with a message.
package verification

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/ports"
)

// validate is the package-level validator shared by configuration checks.
var validate = validator.New()

// EngineConfig carries the aggregation policy knobs. The defaults reproduce
// the service's published behavior; deployments tune them only through
// configuration review.
type EngineConfig struct {
	// VerifyTimeout bounds one aggregation pass. The check is cooperative,
	// between parameters; a parameter evaluation in flight is never
	// interrupted.
	VerifyTimeout time.Duration `validate:"gt=0"`

	// MinParameters is the minimum-coverage gate: below this many checked
	// parameters the overall verdict is non-compliant regardless of ratio.
	MinParameters int `validate:"gte=1"`

	// ComplianceThreshold is the compliant ratio at or above which the
	// overall verdict passes.
	ComplianceThreshold float64 `validate:"gte=0,lte=1"`
}

// DefaultEngineConfig returns the production aggregation policy: a 45s
// budget, at least 4 parameters, and a 60% compliance threshold.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		VerifyTimeout:       45 * time.Second,
		MinParameters:       4,
		ComplianceThreshold: 0.60,
	}
}

// Engine verifies quality documents against one immutable standard
// specification. An engine holds no per-request state: the spec, the
// vocabulary, and the classifier are fixed at construction, so a single
// engine serves concurrent requests without locking.
type Engine struct {
	standard   domain.StandardSpec
	vocab      *domain.ParameterVocabulary
	classifier *Classifier
	config     EngineConfig
	logger     *slog.Logger
	metrics    ports.MetricsCollector
	tracer     trace.Tracer
}

// NewEngine builds an engine for one standard spec. The classifier is
// required; the spec may be nil or empty, in which case every parameter
// fails the not-defined-in-standards or minimum-coverage paths. A nil
// logger falls back to slog.Default, a nil metrics collector disables
// instrumentation.
func NewEngine(
	standard domain.StandardSpec,
	vocab *domain.ParameterVocabulary,
	classifier *Classifier,
	config EngineConfig,
	logger *slog.Logger,
	metrics ports.MetricsCollector,
) (*Engine, error) {
	if classifier == nil {
		return nil, fmt.Errorf("classifier must not be nil")
	}
	if vocab == nil {
		vocab = domain.DefaultVocabulary()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	return &Engine{
		standard:   standard,
		vocab:      vocab,
		classifier: classifier,
		config:     config,
		logger:     logger,
		metrics:    metrics,
		tracer:     otel.Tracer("qualityapi/verification"),
	}, nil
}

// Classifier exposes the engine's classifier, mainly so callers can report
// model state on status surfaces.
func (e *Engine) Classifier() *Classifier { return e.classifier }

// Standard returns the spec this engine judges against.
func (e *Engine) Standard() domain.StandardSpec { return e.standard }

// VerifyDocument collects parameter evidence from raw document content and
// aggregates verdicts over it. This is the entry point for freshly
// extracted documents.
func (e *Engine) VerifyDocument(ctx context.Context, doc domain.DocumentData) domain.VerificationResult {
	ctx, span := e.tracer.Start(ctx, "verification.verify_document",
		trace.WithAttributes(
			attribute.Int("document.text_length", len(doc.Text)),
			attribute.Int("document.tables", len(doc.Tables)),
		))
	defer span.End()

	extracted := Collect(doc, e.vocab)
	span.SetAttributes(attribute.Int("document.parameters_extracted", len(extracted)))

	return e.VerifyParameters(ctx, extracted)
}

// VerifyParameters aggregates per-parameter verdicts over a pre-extracted
// evidence mapping. Parameters are visited in vocabulary order first, then
// any remaining keys in lexical order, so results under the time budget are
// deterministic. The budget is checked between parameters; when it runs out
// the partial result accumulated so far is returned as-is.
func (e *Engine) VerifyParameters(ctx context.Context, extracted map[string]domain.ParameterEvidence) domain.VerificationResult {
	ctx, span := e.tracer.Start(ctx, "verification.verify_parameters",
		trace.WithAttributes(attribute.Int("parameters.extracted", len(extracted))))
	defer span.End()

	start := time.Now()
	results := make(map[string]domain.ParameterVerdict, len(extracted))
	compliantCount := 0
	parametersChecked := 0

	for _, param := range e.orderedParameters(extracted) {
		if time.Since(start) > e.config.VerifyTimeout {
			e.logger.Warn("verification budget exhausted, returning partial results",
				"checked", parametersChecked, "budget", e.config.VerifyTimeout)
			break
		}
		if ctx.Err() != nil {
			e.logger.Warn("verification cancelled, returning partial results",
				"checked", parametersChecked, "cause", ctx.Err())
			break
		}

		if _, defined := e.standard.Requirement(param); !defined {
			results[param] = domain.ParameterVerdict{
				Compliant:       true,
				Message:         "Parameter found in document but not defined in standards",
				ExtractedValues: []domain.NumericValue{},
			}
			continue
		}

		verdict, err := e.evaluateParameter(ctx, param, extracted[param])
		if err != nil {
			e.logger.Error("parameter evaluation failed",
				"parameter", param, "error", err)
			results[param] = domain.ParameterVerdict{
				Compliant:       false,
				Message:         "Error: " + err.Error(),
				ExtractedValues: []domain.NumericValue{},
			}
			continue
		}

		results[param] = verdict
		parametersChecked++
		if verdict.Compliant {
			compliantCount++
		}
	}

	if parametersChecked == 0 {
		results[domain.SentinelNoParameters] = domain.ParameterVerdict{
			Compliant:       false,
			Message:         "No matching parameters found between document and standard",
			ExtractedValues: []domain.NumericValue{},
		}
		parametersChecked = 1
	}

	overall, reason := e.decide(compliantCount, parametersChecked)

	result := domain.VerificationResult{
		OverallCompliant:  overall,
		ComplianceReason:  reason,
		ParameterResults:  results,
		ParametersChecked: parametersChecked,
		CompliantCount:    compliantCount,
		ModelInfo: domain.ModelInfo{
			UsingModel:     e.classifier.Hosted(),
			ModelAvailable: e.classifier.Available(),
		},
	}

	span.SetAttributes(
		attribute.Bool("verification.overall_compliant", overall),
		attribute.Int("verification.parameters_checked", parametersChecked),
		attribute.Int("verification.compliant_count", compliantCount),
	)
	e.recordRun(result, time.Since(start))

	return result
}

// evaluateParameter renders the verdict for one parameter known to be
// defined in the standard. A panic anywhere below is recovered into an
// error so one bad parameter can never abort aggregation of the rest.
func (e *Engine) evaluateParameter(ctx context.Context, param string, evidence domain.ParameterEvidence) (verdict domain.ParameterVerdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	if evidence.Empty() {
		return domain.ParameterVerdict{
			Compliant:       false,
			Message:         "Parameter not found in document",
			ExtractedValues: []domain.NumericValue{},
		}, nil
	}

	standardText, _ := e.standard.Requirement(param)
	if standardText == "" {
		return domain.ParameterVerdict{
			Compliant:       false,
			Message:         "Standard requirement not available",
			ExtractedValues: []domain.NumericValue{},
		}, nil
	}

	combined := evidence.Combined()
	extractedValues := ExtractNumeric(combined)
	standardValue, _, _ := ParseRequirement(standardText)

	compliant, message := e.classifier.Classify(ctx, param, combined, standardText)

	return domain.ParameterVerdict{
		Compliant:       compliant,
		Message:         message,
		ExtractedValues: extractedValues,
		StandardValue:   standardValue,
	}, nil
}

// orderedParameters fixes the aggregation order: vocabulary order for known
// parameters, then any extra keys sorted lexically. The evidence mapping
// arrives as a Go map, so an explicit order is required for the budget
// cutoff to be reproducible.
func (e *Engine) orderedParameters(extracted map[string]domain.ParameterEvidence) []string {
	ordered := make([]string, 0, len(extracted))
	seen := make(map[string]struct{}, len(extracted))

	for _, name := range e.vocab.Parameters() {
		if _, ok := extracted[name]; ok {
			ordered = append(ordered, name)
			seen[name] = struct{}{}
		}
	}

	rest := make([]string, 0, len(extracted))
	for name := range extracted {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)

	return append(ordered, rest...)
}

// decide applies the overall verdict policy: the minimum-coverage gate
// first, then the compliance-ratio threshold with the exact fraction in the
// reason string.
func (e *Engine) decide(compliantCount, parametersChecked int) (bool, string) {
	if parametersChecked < e.config.MinParameters {
		return false, fmt.Sprintf("Fewer than %d parameters verified", e.config.MinParameters)
	}
	ratio := float64(compliantCount) / float64(parametersChecked)
	return ratio >= e.config.ComplianceThreshold,
		fmt.Sprintf("%d out of %d compliant (%.1f%%)", compliantCount, parametersChecked, ratio*100)
}

func (e *Engine) recordRun(result domain.VerificationResult, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	outcome := "non_compliant"
	if result.OverallCompliant {
		outcome = "compliant"
	}
	labels := map[string]string{"outcome": outcome}
	e.metrics.RecordLatency("verification_run", elapsed, labels)
	e.metrics.RecordCounter("verifications_total", 1, labels)
	e.metrics.RecordHistogram("verification_parameters_checked", float64(result.ParametersChecked), nil)
}
