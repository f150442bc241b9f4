package orchestrator

import (
	"reflect"
	"testing"

	"github.com/veridoc/veridoc/internal/config"
	"github.com/veridoc/veridoc/pkg/models"
)

func gatingConfig() config.SemanticConfig {
	return config.SemanticConfig{
		Enabled:            true,
		UpgradeThreshold:   0.8,
		DowngradeThreshold: 0.8,
		MatchWindow:        5,
		HeuristicWeight:    0.6,
		SemanticWeight:     0.4,
	}
}

func heuristicFixture() *models.HeuristicOutput {
	return &models.HeuristicOutput{
		Issues: []models.ValidationIssue{
			{Level: models.SeverityWarning, Category: "heading_length", Message: "too long", Line: 12, Source: "structure"},
			{Level: models.SeverityError, Category: "missing_title", Message: "no title", Line: 1, Source: "structure"},
			{Level: models.SeverityWarning, Category: "empty_link_text", Message: "no text", Line: 40, Source: "links"},
		},
		Confidence: 0.7,
	}
}

func TestApplyGatingPassThroughWithoutReview(t *testing.T) {
	heuristic := heuristicFixture()

	final := applyGating(heuristic, nil, gatingConfig())

	if !reflect.DeepEqual(final.Issues, heuristic.Issues) {
		t.Errorf("issues changed without a review:\n got %+v\nwant %+v", final.Issues, heuristic.Issues)
	}
	if final.Confidence != heuristic.Confidence {
		t.Errorf("confidence = %v, want exactly the heuristic confidence %v", final.Confidence, heuristic.Confidence)
	}
}

func TestApplyGatingEscalation(t *testing.T) {
	heuristic := heuristicFixture()
	review := &models.ReviewOutcome{
		Verdicts: []models.ReviewVerdict{
			{Action: models.ReviewEscalate, Category: "heading_length", Line: 12, Confidence: 0.9},
		},
		Confidence: 0.9,
	}

	final := applyGating(heuristic, review, gatingConfig())

	if final.Issues[0].Level != models.SeverityError {
		t.Errorf("escalated level = %q, want error", final.Issues[0].Level)
	}
	// The other issues pass through unchanged.
	if final.Issues[1].Level != models.SeverityError || final.Issues[2].Level != models.SeverityWarning {
		t.Errorf("unmatched issues changed: %+v", final.Issues[1:])
	}
}

func TestApplyGatingEscalationBelowThreshold(t *testing.T) {
	heuristic := heuristicFixture()
	review := &models.ReviewOutcome{
		Verdicts: []models.ReviewVerdict{
			{Action: models.ReviewEscalate, Category: "heading_length", Line: 12, Confidence: 0.5},
		},
		Confidence: 0.9,
	}

	final := applyGating(heuristic, review, gatingConfig())
	if final.Issues[0].Level != models.SeverityWarning {
		t.Errorf("level = %q, want warning: low-confidence escalation must not apply", final.Issues[0].Level)
	}
}

func TestApplyGatingDowngrade(t *testing.T) {
	heuristic := heuristicFixture()
	review := &models.ReviewOutcome{
		Verdicts: []models.ReviewVerdict{
			{Action: models.ReviewDowngrade, Category: "missing_title", Line: 1, Confidence: 0.85},
		},
		Confidence: 0.9,
	}

	final := applyGating(heuristic, review, gatingConfig())
	if final.Issues[1].Level != models.SeverityWarning {
		t.Errorf("downgraded level = %q, want warning", final.Issues[1].Level)
	}
}

func TestApplyGatingReject(t *testing.T) {
	heuristic := heuristicFixture()
	review := &models.ReviewOutcome{
		Verdicts: []models.ReviewVerdict{
			{Action: models.ReviewReject, Category: "empty_link_text", Line: 41, Confidence: 0.9},
		},
		Confidence: 0.9,
	}

	final := applyGating(heuristic, review, gatingConfig())

	if len(final.Issues) != 2 {
		t.Fatalf("issues = %d, want 2 after rejection: %+v", len(final.Issues), final.Issues)
	}
	for _, issue := range final.Issues {
		if issue.Category == "empty_link_text" {
			t.Errorf("rejected issue still present: %+v", issue)
		}
	}
}

func TestApplyGatingMatchWindow(t *testing.T) {
	heuristic := heuristicFixture()
	review := &models.ReviewOutcome{
		Verdicts: []models.ReviewVerdict{
			// Same category but 20 lines away: outside the window, no match.
			{Action: models.ReviewReject, Category: "empty_link_text", Line: 60, Confidence: 0.95},
		},
		Confidence: 0.9,
	}

	final := applyGating(heuristic, review, gatingConfig())
	if len(final.Issues) != 3 {
		t.Errorf("out-of-window verdict affected issues: %+v", final.Issues)
	}
}

func TestApplyGatingNewIssuesAppended(t *testing.T) {
	heuristic := heuristicFixture()
	review := &models.ReviewOutcome{
		NewIssues: []models.ValidationIssue{
			{Level: models.SeverityWarning, Category: "stale_reference", Message: "old api", Line: 30, Source: "semantic"},
		},
		Confidence: 0.9,
	}

	final := applyGating(heuristic, review, gatingConfig())

	if len(final.Issues) != 4 {
		t.Fatalf("issues = %d, want 4", len(final.Issues))
	}
	last := final.Issues[3]
	if last.Category != "stale_reference" || last.Source != "semantic" {
		t.Errorf("appended issue = %+v", last)
	}
}

func TestApplyGatingCombinedConfidence(t *testing.T) {
	heuristic := heuristicFixture()
	review := &models.ReviewOutcome{Confidence: 0.9}

	final := applyGating(heuristic, review, gatingConfig())

	want := (0.6*0.7 + 0.4*0.9) / (0.6 + 0.4)
	if diff := final.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("combined confidence = %v, want %v", final.Confidence, want)
	}
}

func TestApplyGatingVerdictUsedOnce(t *testing.T) {
	heuristic := &models.HeuristicOutput{
		Issues: []models.ValidationIssue{
			{Level: models.SeverityWarning, Category: "heading_length", Line: 10, Source: "structure"},
			{Level: models.SeverityWarning, Category: "heading_length", Line: 11, Source: "structure"},
		},
		Confidence: 0.7,
	}
	review := &models.ReviewOutcome{
		Verdicts: []models.ReviewVerdict{
			{Action: models.ReviewReject, Category: "heading_length", Line: 10, Confidence: 0.9},
		},
		Confidence: 0.9,
	}

	final := applyGating(heuristic, review, gatingConfig())

	if len(final.Issues) != 1 {
		t.Fatalf("issues = %+v, want the line-11 issue to survive", final.Issues)
	}
	if final.Issues[0].Line != 11 {
		t.Errorf("surviving issue line = %d, want 11 (closest issue consumed the verdict)", final.Issues[0].Line)
	}
}

func TestMatchVerdictPrefersClosestLine(t *testing.T) {
	issue := models.ValidationIssue{Category: "heading_length", Line: 10}
	verdicts := []models.ReviewVerdict{
		{Action: models.ReviewConfirm, Category: "heading_length", Line: 14, Confidence: 0.9},
		{Action: models.ReviewReject, Category: "heading_length", Line: 10, Confidence: 0.9},
	}

	got, idx := matchVerdict(issue, verdicts, make([]bool, 2), 5)
	if idx != 1 || got.Action != models.ReviewReject {
		t.Errorf("matchVerdict() = (%+v, %d), want the exact-line verdict at index 1", got, idx)
	}
}
