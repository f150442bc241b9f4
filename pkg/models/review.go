package models

// ReviewAction is a semantic reviewer's verdict on one heuristic issue.
type ReviewAction string

const (
	// ReviewConfirm agrees with the heuristic finding as-is.
	ReviewConfirm ReviewAction = "confirm"
	// ReviewEscalate asks for the finding's severity to be raised.
	ReviewEscalate ReviewAction = "escalate"
	// ReviewDowngrade asks for the finding's severity to be lowered.
	ReviewDowngrade ReviewAction = "downgrade"
	// ReviewReject asks for the finding to be dropped entirely.
	ReviewReject ReviewAction = "reject"
)

// Valid reports whether a is one of the known review actions.
func (a ReviewAction) Valid() bool {
	switch a {
	case ReviewConfirm, ReviewEscalate, ReviewDowngrade, ReviewReject:
		return true
	}
	return false
}

// ReviewVerdict is a reviewer's judgement on a single heuristic issue,
// addressed by category and approximate location.
type ReviewVerdict struct {
	// Action is what the reviewer wants done with the issue.
	Action ReviewAction `json:"action"`
	// Category is the category of the heuristic issue being judged.
	Category string `json:"category"`
	// Line is the approximate line of the heuristic issue, 0 if unknown.
	Line int `json:"line,omitempty"`
	// Confidence is the reviewer's confidence in this verdict, in [0,1].
	Confidence float64 `json:"confidence"`
	// Reason is an optional one-line justification.
	Reason string `json:"reason,omitempty"`
}

// ReviewOutcome is everything a semantic reviewer returns for one document.
type ReviewOutcome struct {
	// Verdicts judges the heuristic issues the reviewer was shown.
	Verdicts []ReviewVerdict `json:"verdicts"`
	// NewIssues lists findings the reviewer discovered on its own.
	NewIssues []ValidationIssue `json:"new_issues,omitempty"`
	// Confidence is the reviewer's overall confidence, in [0,1].
	Confidence float64 `json:"confidence"`
}
