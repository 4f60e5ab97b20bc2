package verification

import (
	"strings"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
)

// contextRadius is the number of bytes kept on each side of a keyword hit
// when a text section is lifted into evidence.
const contextRadius = 100

// Collect scans a document for every parameter in the vocabulary and
// assembles the evidence found for each. Text is scanned case-insensitively;
// for every keyword present, the context window around its first occurrence
// becomes one section. Tables are matched as whole flattened strings: a
// table mentioning any keyword of a parameter is attached to that parameter
// in its entirety.
//
// Parameters with no hits in either text or tables are left out of the
// result entirely.
func Collect(doc domain.DocumentData, vocab *domain.ParameterVocabulary) map[string]domain.ParameterEvidence {
	extracted := make(map[string]domain.ParameterEvidence)
	lowerText := strings.ToLower(doc.Text)

	for _, param := range vocab.Parameters() {
		sections := collectSections(doc.Text, lowerText, vocab.Keywords(param))
		if len(sections) > 0 {
			extracted[param] = domain.ParameterEvidence{
				Sections:  sections,
				RawValues: []string{},
			}
		}
	}

	for _, table := range doc.Tables {
		tableStr := table.String()
		lowerTable := strings.ToLower(tableStr)
		for _, param := range vocab.Parameters() {
			if !containsAnyKeyword(lowerTable, vocab.Keywords(param)) {
				continue
			}
			evidence, ok := extracted[param]
			if !ok {
				evidence = domain.ParameterEvidence{Sections: []string{}, RawValues: []string{}}
			}
			evidence.RawValues = append(evidence.RawValues, tableStr)
			extracted[param] = evidence
		}
	}

	return extracted
}

// collectSections returns one context window per keyword found in the text,
// taken around the keyword's first occurrence. Windows are sliced from the
// original-case text using byte offsets from the lowercased scan; keywords
// are ASCII so the offsets line up, and clamping keeps the slice in bounds
// regardless.
func collectSections(text, lowerText string, keywords []string) []string {
	var sections []string
	for _, keyword := range keywords {
		idx := strings.Index(lowerText, keyword)
		if idx < 0 {
			continue
		}
		start := idx - contextRadius
		if start < 0 {
			start = 0
		}
		end := idx + contextRadius
		if end > len(text) {
			end = len(text)
		}
		sections = append(sections, text[start:end])
	}
	return sections
}

func containsAnyKeyword(haystack string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}
