package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
)

// valueRe captures number-and-unit pairs for the preview's quick value
// listing. Coarser than the engine's extractor on purpose: the preview is a
// debugging artifact, not verification input.
var valueRe = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(%|mg/kg|g/100g|meq/kg|ms/cm)`)

// ParameterPreview is the per-parameter debugging view persisted next to
// each upload: the contexts and raw tables found, plus the numeric values
// sighted in them.
type ParameterPreview struct {
	// Contexts holds lowercased context windows around keyword hits.
	Contexts []string `json:"contexts"`

	// RawValues holds stringified tables that mentioned a keyword.
	RawValues []string `json:"raw_values"`

	// Values lists the number-and-unit readings found across contexts and
	// raw values, omitted when none were sighted.
	Values []string `json:"values,omitempty"`
}

// Preview builds the debugging view of a document: every keyword occurrence
// contributes a ±100-character lowercased context window, matching tables
// attach whole, and number-unit pairs are listed per parameter.
func (p *Processor) Preview(doc domain.DocumentData) map[string]ParameterPreview {
	previews := make(map[string]ParameterPreview)
	lowerText := strings.ToLower(doc.Text)

	for _, param := range p.vocab.Parameters() {
		var contexts []string
		for _, keyword := range p.vocab.Keywords(param) {
			for _, idx := range allOccurrences(lowerText, keyword) {
				start := max(idx-100, 0)
				end := min(idx+len(keyword)+100, len(lowerText))
				contexts = append(contexts, lowerText[start:end])
			}
		}
		if len(contexts) > 0 {
			previews[param] = ParameterPreview{Contexts: contexts, RawValues: []string{}}
		}
	}

	for _, table := range doc.Tables {
		tableStr := table.String()
		lowerTable := strings.ToLower(tableStr)
		for _, param := range p.vocab.Parameters() {
			if !containsAnyKeyword(lowerTable, p.vocab.Keywords(param)) {
				continue
			}
			preview, ok := previews[param]
			if !ok {
				preview = ParameterPreview{Contexts: []string{}, RawValues: []string{}}
			}
			preview.RawValues = append(preview.RawValues, tableStr)
			previews[param] = preview
		}
	}

	for param, preview := range previews {
		var values []string
		for _, fragment := range append(append([]string{}, preview.RawValues...), preview.Contexts...) {
			for _, match := range valueRe.FindAllStringSubmatch(fragment, -1) {
				values = append(values, match[1]+" "+match[2])
			}
		}
		if len(values) > 0 {
			preview.Values = values
			previews[param] = preview
		}
	}

	return previews
}

// WritePreview persists a preview mapping as indented JSON, the per-upload
// debugging artifact.
func WritePreview(previews map[string]ParameterPreview, path string) error {
	data, err := json.MarshalIndent(previews, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding parameter preview: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing parameter preview %q: %w", path, err)
	}
	return nil
}

// allOccurrences returns the byte offsets of every non-overlapping
// occurrence of needle in haystack.
func allOccurrences(haystack, needle string) []int {
	var offsets []int
	from := 0
	for {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			return offsets
		}
		offsets = append(offsets, from+idx)
		from += idx + len(needle)
	}
}
