package semantic

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/veridoc/veridoc/pkg/models"
)

// buildReviewPrompt constructs the review prompt: the document, the
// numbered heuristic findings, and a strict line-oriented answer format.
func buildReviewPrompt(content string, issues []models.ValidationIssue) string {
	var findings strings.Builder
	for i, issue := range issues {
		findings.WriteString(fmt.Sprintf("%d. [%s] %s (line %d): %s\n",
			i+1, issue.Level, issue.Category, issue.Line, issue.Message))
	}

	return fmt.Sprintf(`You are a documentation reviewer double-checking automated validation findings.

DOCUMENT:
%s

AUTOMATED FINDINGS:
%s
For each finding, judge whether it is a real problem in this document.

Your response MUST use exactly these line formats and nothing else:
1. One line per finding: "VERDICT: <number> <confirm|escalate|downgrade|reject> <confidence 0.0-1.0> <short reason>"
   - confirm: the finding is correct as reported
   - escalate: the finding is more serious than reported
   - downgrade: the finding is less serious than reported
   - reject: the finding is a false positive
2. Optionally, problems the automated pass missed: "NEW: <info|warning|error|critical> <category> <line> <message>"
3. A final line: "CONFIDENCE: <your overall confidence 0.0-1.0>"`, content, findings.String())
}

// parseReviewResponse extracts verdicts, new issues and overall confidence
// from the reviewer output. Verdict numbers are resolved against the
// original issue list so each verdict carries the category and line the
// gating step matches on. Malformed lines are skipped, not fatal.
func parseReviewResponse(output string, issues []models.ValidationIssue) *models.ReviewOutcome {
	outcome := &models.ReviewOutcome{Confidence: 0.5}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "VERDICT:"):
			if v, ok := parseVerdictLine(strings.TrimPrefix(line, "VERDICT:"), issues); ok {
				outcome.Verdicts = append(outcome.Verdicts, v)
			}
		case strings.HasPrefix(line, "NEW:"):
			if issue, ok := parseNewIssueLine(strings.TrimPrefix(line, "NEW:")); ok {
				outcome.NewIssues = append(outcome.NewIssues, issue)
			}
		case strings.HasPrefix(line, "CONFIDENCE:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:"))
			if c, err := strconv.ParseFloat(raw, 64); err == nil && c >= 0 && c <= 1 {
				outcome.Confidence = c
			}
		}
	}

	return outcome
}

// parseVerdictLine parses "<number> <action> <confidence> <reason...>".
func parseVerdictLine(rest string, issues []models.ValidationIssue) (models.ReviewVerdict, bool) {
	fields := strings.Fields(rest)
	if len(fields) < 3 {
		return models.ReviewVerdict{}, false
	}

	num, err := strconv.Atoi(fields[0])
	if err != nil || num < 1 || num > len(issues) {
		return models.ReviewVerdict{}, false
	}
	action := models.ReviewAction(strings.ToLower(fields[1]))
	if !action.Valid() {
		return models.ReviewVerdict{}, false
	}
	confidence, err := strconv.ParseFloat(fields[2], 64)
	if err != nil || confidence < 0 || confidence > 1 {
		return models.ReviewVerdict{}, false
	}

	issue := issues[num-1]
	return models.ReviewVerdict{
		Action:     action,
		Category:   issue.Category,
		Line:       issue.Line,
		Confidence: confidence,
		Reason:     strings.Join(fields[3:], " "),
	}, true
}

// parseNewIssueLine parses "<level> <category> <line> <message...>".
func parseNewIssueLine(rest string) (models.ValidationIssue, bool) {
	fields := strings.Fields(rest)
	if len(fields) < 4 {
		return models.ValidationIssue{}, false
	}

	level := models.Severity(strings.ToLower(fields[0]))
	if !level.Valid() {
		return models.ValidationIssue{}, false
	}
	line, err := strconv.Atoi(fields[2])
	if err != nil || line < 0 {
		return models.ValidationIssue{}, false
	}

	return models.ValidationIssue{
		Level:    level,
		Category: fields[1],
		Message:  strings.Join(fields[3:], " "),
		Line:     line,
		Source:   "semantic",
	}, true
}
