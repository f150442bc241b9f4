package orchestrator

import (
	"github.com/veridoc/veridoc/internal/config"
	"github.com/veridoc/veridoc/pkg/models"
)

// applyGating combines heuristic findings with semantic verdicts into the
// final result. With no review (stage disabled or reviewer unavailable)
// the heuristic issues pass through unchanged and the confidence equals
// the heuristic confidence exactly.
func applyGating(heuristic *models.HeuristicOutput, review *models.ReviewOutcome, cfg config.SemanticConfig) *models.ValidationResult {
	if review == nil {
		return &models.ValidationResult{
			Confidence:  heuristic.Confidence,
			Issues:      heuristic.Issues,
			Metrics:     heuristicMetrics(heuristic),
			ValidatorID: "orchestrator",
		}
	}

	verdictUsed := make([]bool, len(review.Verdicts))
	issues := make([]models.ValidationIssue, 0, len(heuristic.Issues)+len(review.NewIssues))

	for _, issue := range heuristic.Issues {
		verdict, idx := matchVerdict(issue, review.Verdicts, verdictUsed, cfg.MatchWindow)
		if idx < 0 {
			// Unmatched heuristic issues pass through unchanged.
			issues = append(issues, issue)
			continue
		}
		verdictUsed[idx] = true

		switch {
		case verdict.Action == models.ReviewEscalate && verdict.Confidence >= cfg.UpgradeThreshold:
			issue.Level = issue.Level.Escalated()
			issues = append(issues, issue)
		case verdict.Action == models.ReviewDowngrade && verdict.Confidence >= cfg.DowngradeThreshold:
			issue.Level = issue.Level.Downgraded()
			issues = append(issues, issue)
		case verdict.Action == models.ReviewReject && verdict.Confidence >= cfg.DowngradeThreshold:
			// Dropped entirely.
		default:
			issues = append(issues, issue)
		}
	}

	issues = append(issues, review.NewIssues...)

	confidence := heuristic.Confidence
	if total := cfg.HeuristicWeight + cfg.SemanticWeight; total > 0 {
		confidence = (cfg.HeuristicWeight*heuristic.Confidence + cfg.SemanticWeight*review.Confidence) / total
	}

	metrics := heuristicMetrics(heuristic)
	metrics["semantic_verdicts"] = float64(len(review.Verdicts))
	metrics["semantic_new_issues"] = float64(len(review.NewIssues))
	metrics["semantic_confidence"] = review.Confidence

	return &models.ValidationResult{
		Confidence:  confidence,
		Issues:      issues,
		Metrics:     metrics,
		ValidatorID: "orchestrator",
	}
}

// matchVerdict finds the unused verdict for an issue: same category and
// line distance within the window. Among candidates the closest line wins;
// ties go to the earliest verdict, so matching is deterministic.
func matchVerdict(issue models.ValidationIssue, verdicts []models.ReviewVerdict, used []bool, window int) (models.ReviewVerdict, int) {
	bestIdx := -1
	bestDist := 0

	for i, v := range verdicts {
		if used[i] || v.Category != issue.Category {
			continue
		}
		dist := issue.Line - v.Line
		if dist < 0 {
			dist = -dist
		}
		if dist > window {
			continue
		}
		if bestIdx < 0 || dist < bestDist {
			bestIdx = i
			bestDist = dist
		}
	}

	if bestIdx < 0 {
		return models.ReviewVerdict{}, -1
	}
	return verdicts[bestIdx], bestIdx
}

// heuristicMetrics summarizes the heuristic stage for the final result.
func heuristicMetrics(heuristic *models.HeuristicOutput) map[string]float64 {
	return map[string]float64{
		"detections":           float64(len(heuristic.Detections)),
		"heuristic_issues":     float64(len(heuristic.Issues)),
		"heuristic_confidence": heuristic.Confidence,
	}
}
