package domain

import "time"

// VerificationRun is the audit record kept for one completed verification:
// a summary of the result plus timing, persisted by the run store and served
// back on the recent-verifications surface. It never feeds back into the
// engine; the engine itself holds no state between invocations.
type VerificationRun struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// Document is the name of the verified document.
	Document string `json:"document"`

	// OverallCompliant is the aggregate verdict of the run.
	OverallCompliant bool `json:"overall_compliant"`

	// ComplianceReason is the verdict's reason string.
	ComplianceReason string `json:"compliance_reason"`

	// ParametersChecked counts parameters judged against the standard.
	ParametersChecked int `json:"parameters_checked"`

	// CompliantCount counts compliant verdicts among ParametersChecked.
	CompliantCount int `json:"compliant_count"`

	// UsingModel records whether a hosted model variant was configured.
	UsingModel bool `json:"using_model"`

	// ModelAvailable records whether the model path was actually in use.
	ModelAvailable bool `json:"model_available"`

	// Duration is the wall-clock time the verification took.
	Duration time.Duration `json:"duration_ms"`

	// CreatedAt is when the run completed.
	CreatedAt time.Time `json:"created_at"`
}

// NewVerificationRun summarizes a result into an audit record. The compliant
// count is taken from the result so that it stays the numerator of the
// compliance ratio; verdicts for parameters outside the standard never make
// the record report more compliant parameters than were checked.
func NewVerificationRun(id, document string, result VerificationResult, duration time.Duration) VerificationRun {
	return VerificationRun{
		ID:                id,
		Document:          document,
		OverallCompliant:  result.OverallCompliant,
		ComplianceReason:  result.ComplianceReason,
		ParametersChecked: result.ParametersChecked,
		CompliantCount:    result.CompliantCount,
		UsingModel:        result.ModelInfo.UsingModel,
		ModelAvailable:    result.ModelInfo.ModelAvailable,
		Duration:          duration,
		CreatedAt:         time.Now().UTC(),
	}
}
