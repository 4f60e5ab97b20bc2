package verification

import (
	"regexp"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
)

// numericContextRadius is the window kept around each numeric match.
const numericContextRadius = 50

// numericPatterns are tried in order against the full input and every
// pattern contributes all of its matches. The unit-specific patterns come
// first, one per measurement family seen in assay reports, with a generic
// number-plus-token pattern last. Overlap between patterns is intentional:
// the same reading may appear several times in the output, and consumers
// rely on first-match ordering rather than uniqueness.
var numericPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(%|percent)`),
	regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(mg/kg|ppm)`),
	regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(schade|units)`),
	regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(g/100g|%)`),
	regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(meq/kg)`),
	regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(ms/cm)`),
	regexp.MustCompile(`(?i)(\d+\.?\d*)\s?([a-zA-Z]+/[a-zA-Z]+|[a-zA-Z]+)?`),
}

// ExtractNumeric pulls every numeric reading out of text, together with the
// unit token its pattern captured and a ±50-byte context window. The result
// preserves pattern order, then match order; duplicates across overlapping
// patterns are kept. Empty input yields an empty slice.
func ExtractNumeric(text string) []domain.NumericValue {
	values := make([]domain.NumericValue, 0)
	for _, pattern := range numericPatterns {
		for _, m := range pattern.FindAllStringSubmatchIndex(text, -1) {
			value := text[m[2]:m[3]]
			unit := ""
			if len(m) >= 6 && m[4] >= 0 {
				unit = text[m[4]:m[5]]
			}
			start := m[0] - numericContextRadius
			if start < 0 {
				start = 0
			}
			end := m[1] + numericContextRadius
			if end > len(text) {
				end = len(text)
			}
			values = append(values, domain.NumericValue{
				Value:   value,
				Unit:    unit,
				Context: text[start:end],
			})
		}
	}
	return values
}
