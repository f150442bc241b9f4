package router

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/veridoc/veridoc/pkg/models"
)

var markdownLinkPattern = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)

// linkValidator checks inline links for empty targets, empty text and
// malformed URLs.
type linkValidator struct{}

func (v *linkValidator) ID() string { return "links" }

func (v *linkValidator) Validate(ctx context.Context, content string, vctx Context) (*models.ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var issues []models.ValidationIssue
	linkCount := 0

	for lineNo, line := range strings.Split(content, "\n") {
		for _, match := range markdownLinkPattern.FindAllStringSubmatchIndex(line, -1) {
			linkCount++
			text := line[match[2]:match[3]]
			target := strings.TrimSpace(line[match[4]:match[5]])
			col := match[0] + 1

			if target == "" {
				issues = append(issues, models.ValidationIssue{
					Level:      models.SeverityError,
					Category:   "empty_link_target",
					Message:    fmt.Sprintf("link %q has an empty target", text),
					Line:       lineNo + 1,
					Column:     col,
					Suggestion: "add a destination url or remove the link",
					Source:     v.ID(),
				})
				continue
			}
			if strings.TrimSpace(text) == "" {
				issues = append(issues, models.ValidationIssue{
					Level:      models.SeverityWarning,
					Category:   "empty_link_text",
					Message:    fmt.Sprintf("link to %q has no text", target),
					Line:       lineNo + 1,
					Column:     col,
					Suggestion: "give the link descriptive text",
					Source:     v.ID(),
				})
			}
			if strings.ContainsAny(target, " \t") {
				issues = append(issues, models.ValidationIssue{
					Level:    models.SeverityWarning,
					Category: "malformed_link_target",
					Message:  fmt.Sprintf("link target %q contains whitespace", target),
					Line:     lineNo + 1,
					Column:   col,
					Source:   v.ID(),
				})
			}
		}
	}

	return &models.ValidationResult{
		Confidence: confidenceFromIssues(issues),
		Issues:     issues,
		Metrics: map[string]float64{
			"link_count": float64(linkCount),
		},
	}, nil
}
