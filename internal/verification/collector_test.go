package verification

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
)

func TestCollect_TextKeywordsProduceSections(t *testing.T) {
	doc := domain.DocumentData{
		Text: "Laboratory report. Moisture content was measured at 18.5% for this sample batch.",
	}

	extracted := Collect(doc, domain.DefaultVocabulary())

	evidence, ok := extracted["moisture_content"]
	require.True(t, ok, "moisture keywords should produce evidence")
	require.NotEmpty(t, evidence.Sections)
	assert.Contains(t, evidence.Sections[0], "Moisture content", "context keeps original casing")
	assert.Empty(t, evidence.RawValues)
}

func TestCollect_OneSectionPerKeywordFirstOccurrence(t *testing.T) {
	// "moisture" appears twice and "%" once; each keyword contributes a
	// single window around its first occurrence.
	doc := domain.DocumentData{
		Text: "moisture low. later the moisture rose to 19%",
	}

	extracted := Collect(doc, domain.DefaultVocabulary())

	evidence := extracted["moisture_content"]
	assert.Len(t, evidence.Sections, 2, "one window for moisture, one for %")
	assert.True(t, strings.HasPrefix(evidence.Sections[0], "moisture low."),
		"window should anchor at the first moisture occurrence")
}

func TestCollect_ContextWindowIsClamped(t *testing.T) {
	long := strings.Repeat("a", 300) + " moisture " + strings.Repeat("b", 300)
	doc := domain.DocumentData{Text: long}

	extracted := Collect(doc, domain.DefaultVocabulary())

	evidence := extracted["moisture_content"]
	require.Len(t, evidence.Sections, 1)
	assert.Len(t, evidence.Sections[0], 200, "window is 100 bytes each side of the keyword start")
}

func TestCollect_TableAttachedWholeOncePerParameter(t *testing.T) {
	doc := domain.DocumentData{
		Tables: []domain.Table{
			{
				TableID: "table_1",
				// Matches two moisture keywords (moisture, %) but must be
				// attached only once, and always as the whole grid.
				Data: [][]string{{"Moisture", "18.5%"}, {"Ash", "0.1"}},
			},
		},
	}

	extracted := Collect(doc, domain.DefaultVocabulary())

	evidence, ok := extracted["moisture_content"]
	require.True(t, ok)
	require.Len(t, evidence.RawValues, 1, "a table is attached once per parameter")
	assert.Contains(t, evidence.RawValues[0], "Ash", "the entire table is evidence, not just the matching cell")
	assert.NotNil(t, evidence.Sections, "table-only evidence still carries an empty sections slice")
	assert.Empty(t, evidence.Sections)
}

func TestCollect_TableFeedsMultipleParameters(t *testing.T) {
	doc := domain.DocumentData{
		Tables: []domain.Table{
			{TableID: "table_1", Data: [][]string{{"Moisture", "18.5%"}, {"HMF", "25 mg/kg"}}},
		},
	}

	extracted := Collect(doc, domain.DefaultVocabulary())

	assert.Contains(t, extracted, "moisture_content")
	assert.Contains(t, extracted, "hMF_content")
}

func TestCollect_ZeroHitParametersOmitted(t *testing.T) {
	doc := domain.DocumentData{Text: "nothing relevant whatsoever"}

	extracted := Collect(doc, domain.DefaultVocabulary())

	assert.Empty(t, extracted, "parameters without hits must be absent, not empty placeholders")
}

func TestCollect_TextAndTableEvidenceMerge(t *testing.T) {
	doc := domain.DocumentData{
		Text: "Diastase activity 8.3 Schade units recorded.",
		Tables: []domain.Table{
			{TableID: "table_1", Data: [][]string{{"Diastase", "8.3"}}},
		},
	}

	extracted := Collect(doc, domain.DefaultVocabulary())

	evidence := extracted["diastase_activity"]
	assert.NotEmpty(t, evidence.Sections)
	assert.Len(t, evidence.RawValues, 1)
}

func TestCollect_CaseInsensitiveMatching(t *testing.T) {
	doc := domain.DocumentData{Text: "SUCROSE content 4.9 G/100G"}

	extracted := Collect(doc, domain.DefaultVocabulary())

	assert.Contains(t, extracted, "sucrose_content")
}
