package router

import (
	"context"
	"strings"

	"github.com/veridoc/veridoc/pkg/models"
)

// maxHeadingLength is the longest heading that passes without a warning.
const maxHeadingLength = 80

// structureValidator checks document skeleton: title presence, heading
// hierarchy and heading length.
type structureValidator struct{}

func (v *structureValidator) ID() string { return "structure" }

func (v *structureValidator) Validate(ctx context.Context, content string, vctx Context) (*models.ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var issues []models.ValidationIssue
	lines := strings.Split(content, "\n")

	headingCount := 0
	hasTitle := false
	prevLevel := 0

	for i, line := range lines {
		level, text, ok := parseHeading(line)
		if !ok {
			continue
		}
		headingCount++

		if level == 1 {
			hasTitle = true
		}

		if len(text) > maxHeadingLength {
			issues = append(issues, models.ValidationIssue{
				Level:      models.SeverityWarning,
				Category:   "heading_length",
				Message:    "heading exceeds maximum length",
				Line:       i + 1,
				Suggestion: "shorten the heading or move detail into body text",
				Source:     v.ID(),
			})
		}

		if prevLevel > 0 && level > prevLevel+1 {
			issues = append(issues, models.ValidationIssue{
				Level:      models.SeverityWarning,
				Category:   "heading_hierarchy",
				Message:    "heading level skips an intermediate level",
				Line:       i + 1,
				Suggestion: "use consecutive heading levels",
				Source:     v.ID(),
			})
		}
		prevLevel = level
	}

	if !hasTitle {
		issues = append(issues, models.ValidationIssue{
			Level:      models.SeverityError,
			Category:   "missing_title",
			Message:    "document has no level-1 heading",
			Line:       1,
			Suggestion: "add a single level-1 heading as the document title",
			Source:     v.ID(),
		})
	}

	return &models.ValidationResult{
		Confidence: confidenceFromIssues(issues),
		Issues:     issues,
		Metrics: map[string]float64{
			"heading_count": float64(headingCount),
			"line_count":    float64(len(lines)),
		},
	}, nil
}

// parseHeading returns the ATX heading level and text of a line, or
// ok=false for non-heading lines.
func parseHeading(line string) (level int, text string, ok bool) {
	trimmed := strings.TrimLeft(line, " ")
	i := 0
	for i < len(trimmed) && trimmed[i] == '#' {
		i++
	}
	if i == 0 || i > 6 {
		return 0, "", false
	}
	if i < len(trimmed) && trimmed[i] != ' ' {
		return 0, "", false
	}
	return i, strings.TrimSpace(trimmed[i:]), true
}

// confidenceFromIssues derives a result confidence from issue severities.
// A clean pass scores 1; errors cost more than warnings; floor at 0.
func confidenceFromIssues(issues []models.ValidationIssue) float64 {
	confidence := 1.0
	for _, issue := range issues {
		switch issue.Level {
		case models.SeverityCritical:
			confidence -= 0.4
		case models.SeverityError:
			confidence -= 0.25
		case models.SeverityWarning:
			confidence -= 0.1
		default:
			confidence -= 0.05
		}
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence
}
