// Package ports defines the interfaces the verification core depends on.
// Implementations live under infrastructure/ and are injected at wiring
// time, keeping the engine free of provider and vendor concerns.
package ports

import "context"

// Model variants reported by entailment clients. The verdict messages and
// the result's model_info distinguish hosted (credentialed, remote) model
// use from a locally served model.
const (
	VariantHosted = "hosted"
	VariantLocal  = "local"
)

// EntailmentClient scores how strongly a piece of evidence text entails
// each of a set of candidate statements. The verification engine uses it as
// a zero-shot classifier: two candidate labels, compliant and non-compliant,
// scored against combined parameter evidence.
//
// Implementations handle provider specifics: authentication, request
// shaping, retries, and rate limiting.
type EntailmentClient interface {
	// Warmup prepares the underlying model for classification and blocks
	// until it is ready or ctx expires. Hosted inference backends may need
	// a priming request before first use; local backends may need a health
	// probe. An error means the model cannot be used.
	Warmup(ctx context.Context) error

	// Classify scores input against every candidate label and returns a
	// score per label, keyed by label text. Scores are in [0, 1] and
	// comparable across labels of one call.
	Classify(ctx context.Context, input string, labels []string) (map[string]float64, error)

	// GetModel returns the model identifier used by this client.
	GetModel() string

	// Variant reports whether this client is a hosted or local variant,
	// one of VariantHosted or VariantLocal.
	Variant() string
}
