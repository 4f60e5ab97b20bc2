package verification

import (
	"strings"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
)

// ParseRequirement turns a standard's free-text requirement into a
// reference value and a requirement kind. The reference value is the first
// numeric reading extracted from the text, concatenated with its unit when
// one was captured; whichever pattern matches earliest wins. The kind is
// classified by substring markers in fixed priority: maximum markers beat
// minimum markers beat range markers, and text with none of them is
// RequirementUnknown.
//
// When the text contains no numeric reading at all, ok is false and both
// outputs are zero.
func ParseRequirement(text string) (value string, kind domain.RequirementKind, ok bool) {
	values := ExtractNumeric(text)
	if len(values) == 0 {
		return "", "", false
	}

	value = values[0].Value
	if values[0].Unit != "" {
		value += " " + values[0].Unit
	}

	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "maximum", "max", "not more than") || strings.Contains(text, "≤"):
		kind = domain.RequirementMaximum
	case containsAny(lower, "minimum", "min", "not less than") || strings.Contains(text, "≥"):
		kind = domain.RequirementMinimum
	case containsAny(lower, "between", "range"):
		kind = domain.RequirementRange
	default:
		kind = domain.RequirementUnknown
	}

	return value, kind, true
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
