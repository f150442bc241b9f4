// Package models defines the shared value types passed between the truth
// index, detector, router, and orchestrator.
package models

// Severity is the level of a validation issue.
type Severity string

const (
	// SeverityInfo is an informational finding with no required action.
	SeverityInfo Severity = "info"
	// SeverityWarning is a finding that should be addressed but does not block.
	SeverityWarning Severity = "warning"
	// SeverityError is a finding that makes the document invalid.
	SeverityError Severity = "error"
	// SeverityCritical is a finding that must be fixed before anything else.
	SeverityCritical Severity = "critical"
)

// severityRank orders severities from least to most severe.
var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityError:    2,
	SeverityCritical: 3,
}

// Valid reports whether s is one of the known severity levels.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Rank returns the numeric ordering of the severity (info=0 .. critical=3).
// Unknown severities rank as info.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Escalated returns the severity one level higher. Critical stays critical.
func (s Severity) Escalated() Severity {
	switch s {
	case SeverityInfo:
		return SeverityWarning
	case SeverityWarning:
		return SeverityError
	case SeverityError:
		return SeverityCritical
	default:
		return SeverityCritical
	}
}

// Downgraded returns the severity one level lower. Info stays info.
func (s Severity) Downgraded() Severity {
	switch s {
	case SeverityCritical:
		return SeverityError
	case SeverityError:
		return SeverityWarning
	case SeverityWarning:
		return SeverityInfo
	default:
		return SeverityInfo
	}
}

// ValidationIssue is a single finding produced by a validator or reviewer.
// Issues are value objects: once created they are never mutated in place.
type ValidationIssue struct {
	// Level is the severity of the issue.
	Level Severity `json:"level"`
	// Category is a stable tag grouping related issues (e.g. "structure").
	// Never empty.
	Category string `json:"category"`
	// Message is the human-readable description.
	Message string `json:"message"`
	// Line is the 1-based line number, or 0 if not location-specific.
	Line int `json:"line,omitempty"`
	// Column is the 1-based column number, or 0 if not location-specific.
	Column int `json:"column,omitempty"`
	// Suggestion is an optional remediation hint.
	Suggestion string `json:"suggestion,omitempty"`
	// Source is the id of the validator or reviewer that produced the issue.
	// Never empty.
	Source string `json:"source"`
	// AutoFixable indicates the issue can be corrected mechanically.
	AutoFixable bool `json:"auto_fixable,omitempty"`
}

// ValidationResult is the output of one validator invocation, or the
// orchestrator's final combined result.
type ValidationResult struct {
	// Confidence is the validator's confidence in its findings, in [0,1].
	Confidence float64 `json:"confidence"`
	// Issues is the ordered list of findings.
	Issues []ValidationIssue `json:"issues"`
	// Metrics holds validator-specific counters and scores.
	Metrics map[string]float64 `json:"metrics,omitempty"`
	// ValidatorID identifies the producing validator ("orchestrator" for the
	// combined top-level result).
	ValidatorID string `json:"validator_id"`
	// ExecutionTimeMs is the wall-clock duration of the invocation.
	ExecutionTimeMs int64 `json:"execution_time_ms"`
}
