package domain

// ParameterVocabulary is the single source of truth for which parameters
// the system tracks and which lowercase keywords identify each of them in
// document text. Both the verification engine's evidence collector and the
// ingestion collaborator scan with the same vocabulary instance, so the two
// can never drift apart.
//
// Parameter order is fixed and meaningful: evidence collection and verdict
// aggregation iterate parameters in vocabulary order, which keeps results
// deterministic under the aggregation time budget.
type ParameterVocabulary struct {
	names    []string
	keywords map[string][]string
}

// NewParameterVocabulary builds a vocabulary from an ordered parameter list
// and a keyword table. Parameters missing from the table get no keywords and
// will never match; keywords are expected lowercase.
func NewParameterVocabulary(names []string, keywords map[string][]string) *ParameterVocabulary {
	v := &ParameterVocabulary{
		names:    append([]string(nil), names...),
		keywords: make(map[string][]string, len(keywords)),
	}
	for name, kws := range keywords {
		v.keywords[name] = append([]string(nil), kws...)
	}
	return v
}

// DefaultVocabulary returns the standard honey-assay parameter set: names
// match the keys used in standard specifications (including the historical
// hMF_content casing) and keywords cover the phrasings and unit tokens seen
// in assay reports.
func DefaultVocabulary() *ParameterVocabulary {
	return NewParameterVocabulary(
		[]string{
			"moisture_content",
			"hMF_content",
			"diastase_activity",
			"sucrose_content",
			"free_acidity",
			"electrical_conductivity",
			"insoluble_solids",
			"glucose_fructose",
		},
		map[string][]string{
			"moisture_content":        {"moisture", "water content", "humidity", "%"},
			"hMF_content":             {"hmf", "hydroxymethylfurfural", "mg/kg"},
			"diastase_activity":       {"diastase", "schade", "enzyme"},
			"sucrose_content":         {"sucrose", "g/100g"},
			"free_acidity":            {"acidity", "milliequivalents", "meq/kg"},
			"electrical_conductivity": {"conductivity", "ms/cm", "milli-siemens", "µmhos/cm"},
			"insoluble_solids":        {"insoluble solids", "sediment"},
			"glucose_fructose":        {"glucose", "fructose", "reducing sugars"},
		},
	)
}

// Parameters returns the parameter names in canonical order.
// The returned slice is a copy.
func (v *ParameterVocabulary) Parameters() []string {
	return append([]string(nil), v.names...)
}

// Keywords returns the lowercase keywords for a parameter, nil when the
// parameter is not part of the vocabulary.
func (v *ParameterVocabulary) Keywords(name string) []string {
	return v.keywords[name]
}

// Has reports whether the vocabulary tracks the named parameter.
func (v *ParameterVocabulary) Has(name string) bool {
	_, ok := v.keywords[name]
	return ok
}

// Len returns the number of tracked parameters.
func (v *ParameterVocabulary) Len() int { return len(v.names) }
