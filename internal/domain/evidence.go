package domain

import "strings"

// ParameterEvidence is the bag of document fragments collected for a single
// parameter: free-text context snippets plus raw stringified tables. It is
// built in one pass by the evidence collector and read-only afterward.
type ParameterEvidence struct {
	// Sections holds context windows around keyword hits in document text,
	// in scan order.
	Sections []string `json:"sections"`

	// RawValues holds whole stringified tables whose content mentioned one
	// of the parameter's keywords. Coarse on purpose: a single matching
	// keyword attaches the entire table as evidence.
	RawValues []string `json:"raw_values"`
}

// Combined joins all sections and raw values into the single evidence text
// the compliance classifier consumes.
func (e ParameterEvidence) Combined() string {
	parts := make([]string, 0, len(e.Sections)+len(e.RawValues))
	parts = append(parts, e.Sections...)
	parts = append(parts, e.RawValues...)
	return strings.Join(parts, " ")
}

// Empty reports whether the evidence carries no fragments at all.
func (e ParameterEvidence) Empty() bool {
	return len(e.Sections) == 0 && len(e.RawValues) == 0
}

// NumericValue is one numeric reading pulled out of evidence or standard
// text. The value stays a string literal; it is only parsed to a float
// inside the fallback closeness comparison.
type NumericValue struct {
	// Value is the decimal literal exactly as matched.
	Value string `json:"value"`

	// Unit is the captured unit token, empty when the pattern had none.
	Unit string `json:"unit"`

	// Context is the ±50-character window around the match.
	Context string `json:"context"`
}
