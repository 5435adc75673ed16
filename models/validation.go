package models

// IssueSeverity distinguishes blocking findings from advisory ones.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// ValidationIssue is one structured finding. Findings are returned as
// lists; the caller decides whether warnings block a write.
type ValidationIssue struct {
	Field    string        `json:"field"`
	Severity IssueSeverity `json:"severity"`
	Message  string        `json:"message"`
}

type DuplicateKind string

const (
	DuplicateExact DuplicateKind = "exact_period"
	DuplicateFuzzy DuplicateKind = "similar_period"
	DuplicateValue DuplicateKind = "similar_value"
)

type DuplicateMatch struct {
	Kind       DuplicateKind `json:"kind"`
	Existing   KPIValue      `json:"existing"`
	Similarity float64       `json:"similarity"`
}

// OverrideDecision is the outcome of the overwrite policy check. Denials
// are reasons, not errors.
type OverrideDecision struct {
	Allowed              bool     `json:"allowed"`
	RequiresElevation    bool     `json:"requires_elevation"`
	RequiresConfirmation bool     `json:"requires_confirmation"`
	Reasons              []string `json:"reasons,omitempty"`
}
