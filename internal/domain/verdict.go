package domain

// SentinelNoParameters keys the placeholder verdict recorded when no
// extracted parameter intersects the standard. It keeps parameters_checked
// at least 1 so the compliance ratio is always well-defined.
const SentinelNoParameters = "no_parameters"

// ParameterVerdict is the engine's judgment for one parameter: the boolean
// outcome, a human-readable rationale, the numeric values recovered from the
// parameter's evidence, and the reference value parsed from the standard.
// Verdicts are immutable once recorded in a VerificationResult.
type ParameterVerdict struct {
	// Compliant is the boolean outcome for this parameter.
	Compliant bool `json:"compliant"`

	// Message explains how the outcome was reached: a model confidence
	// line, a fallback rule description, or an error description.
	Message string `json:"message"`

	// ExtractedValues lists the numeric readings recovered from the
	// parameter's combined evidence text, in extraction order.
	ExtractedValues []NumericValue `json:"extracted_values"`

	// StandardValue is the reference value parsed from the standard's
	// requirement text, empty when none was recoverable.
	StandardValue string `json:"standard_value,omitempty"`
}

// ModelInfo reports which classification path produced a result: whether a
// hosted (credentialed) model variant is configured and whether the model
// finished loading and is actually in use.
type ModelInfo struct {
	// UsingModel is true when a hosted, token-backed model variant is
	// configured for the engine.
	UsingModel bool `json:"using_model"`

	// ModelAvailable is true when the model load completed inside its
	// bound and classification runs on the model rather than the fallback.
	ModelAvailable bool `json:"model_available"`
}

// VerificationResult is the engine's sole output: one overall verdict with
// its reason, the per-parameter verdict map, the number of parameters that
// were actually judged against the standard, and the model path used.
// The caller owns the result; the engine keeps no reference to it.
type VerificationResult struct {
	// OverallCompliant is the aggregate pass/fail verdict.
	OverallCompliant bool `json:"overall_compliant"`

	// ComplianceReason states why the overall verdict came out as it did,
	// including the exact compliant fraction when the ratio rule applied.
	ComplianceReason string `json:"compliance_reason"`

	// ParameterResults maps parameter name (or the no_parameters sentinel)
	// to its verdict.
	ParameterResults map[string]ParameterVerdict `json:"parameter_results"`

	// ParametersChecked counts parameters judged against the standard.
	// At least 1 in every engine-produced result.
	ParametersChecked int `json:"parameters_checked"`

	// CompliantCount is the numerator of the compliance ratio: compliant
	// verdicts among the ParametersChecked parameters. Verdicts for
	// parameters outside the standard do not count. Not part of the wire
	// shape; ComplianceReason already states the fraction.
	CompliantCount int `json:"-"`

	// ModelInfo records the classification path for this run.
	ModelInfo ModelInfo `json:"model_info"`
}
