package router

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/veridoc/veridoc/pkg/models"
)

// requiredFrontmatterFields must be present in every document's
// frontmatter block.
var requiredFrontmatterFields = []string{"title", "description"}

// frontmatterValidator checks the leading YAML frontmatter block.
type frontmatterValidator struct{}

func (v *frontmatterValidator) ID() string { return "frontmatter" }

func (v *frontmatterValidator) Validate(ctx context.Context, content string, vctx Context) (*models.ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var issues []models.ValidationIssue
	metrics := map[string]float64{"frontmatter_fields": 0}

	block, found := extractFrontmatter(content)
	if !found {
		issues = append(issues, models.ValidationIssue{
			Level:      models.SeverityWarning,
			Category:   "missing_frontmatter",
			Message:    "document has no frontmatter block",
			Line:       1,
			Suggestion: "add a frontmatter block delimited by --- lines",
			Source:     v.ID(),
		})
		return &models.ValidationResult{
			Confidence: confidenceFromIssues(issues),
			Issues:     issues,
			Metrics:    metrics,
		}, nil
	}

	fields := make(map[string]any)
	if err := yaml.Unmarshal([]byte(block), &fields); err != nil {
		issues = append(issues, models.ValidationIssue{
			Level:    models.SeverityError,
			Category: "invalid_frontmatter",
			Message:  fmt.Sprintf("frontmatter is not valid yaml: %v", err),
			Line:     1,
			Source:   v.ID(),
		})
		return &models.ValidationResult{
			Confidence: confidenceFromIssues(issues),
			Issues:     issues,
			Metrics:    metrics,
		}, nil
	}
	metrics["frontmatter_fields"] = float64(len(fields))

	for _, field := range requiredFrontmatterFields {
		value, present := fields[field]
		if !present || value == nil || value == "" {
			issues = append(issues, models.ValidationIssue{
				Level:      models.SeverityWarning,
				Category:   "missing_field",
				Message:    fmt.Sprintf("frontmatter is missing required field %q", field),
				Line:       1,
				Suggestion: fmt.Sprintf("add a %s field to the frontmatter", field),
				Source:     v.ID(),
			})
		}
	}

	return &models.ValidationResult{
		Confidence: confidenceFromIssues(issues),
		Issues:     issues,
		Metrics:    metrics,
	}, nil
}

// extractFrontmatter returns the YAML between the leading --- delimiters.
func extractFrontmatter(content string) (string, bool) {
	trimmed := strings.TrimPrefix(content, "\ufeff")
	if !strings.HasPrefix(trimmed, "---\n") && trimmed != "---" {
		return "", false
	}

	rest := strings.TrimPrefix(trimmed, "---\n")
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}
