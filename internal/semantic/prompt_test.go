package semantic

import (
	"strings"
	"testing"

	"github.com/veridoc/veridoc/pkg/models"
)

func heuristicIssues() []models.ValidationIssue {
	return []models.ValidationIssue{
		{Level: models.SeverityWarning, Category: "heading_length", Message: "heading exceeds maximum length", Line: 12, Source: "structure"},
		{Level: models.SeverityError, Category: "missing_title", Message: "document has no level-1 heading", Line: 1, Source: "structure"},
	}
}

func TestBuildReviewPrompt(t *testing.T) {
	prompt := buildReviewPrompt("# Doc\n", heuristicIssues())

	for _, want := range []string{
		"1. [warning] heading_length",
		"2. [error] missing_title",
		"VERDICT:",
		"CONFIDENCE:",
		"# Doc",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestParseReviewResponse(t *testing.T) {
	issues := heuristicIssues()

	output := `Here is my assessment.

VERDICT: 1 reject 0.95 the heading is within limits once code spans are excluded
VERDICT: 2 escalate 0.9 published docs must have a title
NEW: warning stale_reference 30 section references a removed api
CONFIDENCE: 0.85
`
	outcome := parseReviewResponse(output, issues)

	if len(outcome.Verdicts) != 2 {
		t.Fatalf("verdicts = %d, want 2", len(outcome.Verdicts))
	}

	first := outcome.Verdicts[0]
	if first.Action != models.ReviewReject {
		t.Errorf("first action = %q, want reject", first.Action)
	}
	if first.Category != "heading_length" || first.Line != 12 {
		t.Errorf("first verdict carries (%q, %d), want issue 1's category and line", first.Category, first.Line)
	}
	if first.Confidence != 0.95 {
		t.Errorf("first confidence = %v, want 0.95", first.Confidence)
	}

	second := outcome.Verdicts[1]
	if second.Action != models.ReviewEscalate || second.Category != "missing_title" {
		t.Errorf("second verdict = %+v, want escalate on missing_title", second)
	}

	if len(outcome.NewIssues) != 1 {
		t.Fatalf("new issues = %d, want 1", len(outcome.NewIssues))
	}
	newIssue := outcome.NewIssues[0]
	if newIssue.Level != models.SeverityWarning || newIssue.Category != "stale_reference" || newIssue.Line != 30 {
		t.Errorf("new issue = %+v", newIssue)
	}
	if newIssue.Source != "semantic" {
		t.Errorf("new issue source = %q, want semantic", newIssue.Source)
	}

	if outcome.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", outcome.Confidence)
	}
}

func TestParseReviewResponseSkipsMalformedLines(t *testing.T) {
	issues := heuristicIssues()

	output := `VERDICT: not-a-number confirm 0.9 bad index
VERDICT: 9 confirm 0.9 index out of range
VERDICT: 1 shrug 0.9 unknown action
VERDICT: 2 confirm 1.5 confidence out of range
VERDICT: 1 confirm 0.8 this one is fine
NEW: shouting nocategory one two
NEW: warning short 5
CONFIDENCE: not-a-float
`
	outcome := parseReviewResponse(output, issues)

	if len(outcome.Verdicts) != 1 {
		t.Fatalf("verdicts = %+v, want only the well-formed one", outcome.Verdicts)
	}
	if outcome.Verdicts[0].Reason != "this one is fine" {
		t.Errorf("reason = %q", outcome.Verdicts[0].Reason)
	}
	if len(outcome.NewIssues) != 0 {
		t.Errorf("new issues = %+v, want none", outcome.NewIssues)
	}
	if outcome.Confidence != 0.5 {
		t.Errorf("confidence = %v, want the 0.5 default", outcome.Confidence)
	}
}

func TestParseReviewResponseEmptyOutput(t *testing.T) {
	outcome := parseReviewResponse("", heuristicIssues())
	if len(outcome.Verdicts) != 0 || len(outcome.NewIssues) != 0 {
		t.Errorf("empty output should yield an empty outcome, got %+v", outcome)
	}
}
