package domain

// StandardSpec maps parameter names to the free-form requirement text a
// published standard states for them. It is loaded once by the standards
// collaborator and treated as immutable by the engine; a nil or empty spec
// is valid and simply means no parameter has a defined requirement.
type StandardSpec map[string]string

// Requirement returns the requirement text for a parameter and whether the
// standard defines one. Safe on a nil spec.
func (s StandardSpec) Requirement(name string) (string, bool) {
	text, ok := s[name]
	return text, ok
}

// RequirementKind is the comparison semantics of a standard's limit,
// recovered from requirement text by substring classification.
type RequirementKind string

// Requirement kinds in classification priority order. Text matching a
// maximum marker is classified maximum even if it also mentions a range.
const (
	RequirementMaximum RequirementKind = "maximum"
	RequirementMinimum RequirementKind = "minimum"
	RequirementRange   RequirementKind = "range"
	RequirementUnknown RequirementKind = "unknown"
)
