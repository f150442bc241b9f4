package router

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/veridoc/veridoc/pkg/models"
)

// monolithicValidator is the fallback for validation types without a
// specialized validator. It bundles several basic checks behind one id,
// dispatched per requested type.
type monolithicValidator struct {
	checks map[string]func(content string) []models.ValidationIssue
}

func newMonolithicValidator() *monolithicValidator {
	m := &monolithicValidator{}
	m.checks = map[string]func(string) []models.ValidationIssue{
		"yaml":         m.checkYAML,
		"completeness": m.checkCompleteness,
		"formatting":   m.checkFormatting,
	}
	return m
}

// services reports whether the fallback can handle a validation type.
func (m *monolithicValidator) services(validationType string) bool {
	_, ok := m.checks[validationType]
	return ok
}

// supported lists every type the fallback services.
func (m *monolithicValidator) supported() []string {
	types := make([]string, 0, len(m.checks))
	for t := range m.checks {
		types = append(types, t)
	}
	return types
}

// forType wraps one of the fallback's checks as a Validator.
func (m *monolithicValidator) forType(validationType string) Validator {
	return &monolithicCheck{owner: m, validationType: validationType}
}

// monolithicCheck adapts a single fallback check to the Validator contract.
type monolithicCheck struct {
	owner          *monolithicValidator
	validationType string
}

func (c *monolithicCheck) ID() string { return "monolithic" }

func (c *monolithicCheck) Validate(ctx context.Context, content string, vctx Context) (*models.ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	check, ok := c.owner.checks[c.validationType]
	if !ok {
		return nil, fmt.Errorf("%w: type %q", ErrValidatorUnavailable, c.validationType)
	}

	issues := check(content)
	for i := range issues {
		if issues[i].Source == "" {
			issues[i].Source = c.ID()
		}
	}

	return &models.ValidationResult{
		Confidence: confidenceFromIssues(issues),
		Issues:     issues,
		Metrics: map[string]float64{
			"content_bytes": float64(len(content)),
		},
	}, nil
}

// checkYAML validates fenced yaml blocks inside the content.
func (m *monolithicValidator) checkYAML(content string) []models.ValidationIssue {
	var issues []models.ValidationIssue

	lines := strings.Split(content, "\n")
	inBlock := false
	blockStart := 0
	var block []string

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case !inBlock && (trimmed == "```yaml" || trimmed == "```yml"):
			inBlock = true
			blockStart = i + 1
			block = block[:0]
		case inBlock && trimmed == "```":
			inBlock = false
			var parsed any
			if err := yaml.Unmarshal([]byte(strings.Join(block, "\n")), &parsed); err != nil {
				issues = append(issues, models.ValidationIssue{
					Level:    models.SeverityError,
					Category: "invalid_yaml",
					Message:  fmt.Sprintf("yaml block is not valid: %v", err),
					Line:     blockStart,
				})
			}
		case inBlock:
			block = append(block, line)
		}
	}

	if inBlock {
		issues = append(issues, models.ValidationIssue{
			Level:    models.SeverityWarning,
			Category: "unterminated_block",
			Message:  "yaml code block is never closed",
			Line:     blockStart,
		})
	}

	return issues
}

// checkCompleteness flags obviously unfinished content.
func (m *monolithicValidator) checkCompleteness(content string) []models.ValidationIssue {
	var issues []models.ValidationIssue

	if strings.TrimSpace(content) == "" {
		issues = append(issues, models.ValidationIssue{
			Level:    models.SeverityError,
			Category: "empty_document",
			Message:  "document has no content",
			Line:     1,
		})
		return issues
	}

	for i, line := range strings.Split(content, "\n") {
		upper := strings.ToUpper(line)
		if strings.Contains(upper, "TBD") || strings.Contains(upper, "FIXME") {
			issues = append(issues, models.ValidationIssue{
				Level:    models.SeverityWarning,
				Category: "placeholder_content",
				Message:  "line contains placeholder text",
				Line:     i + 1,
			})
		}
	}

	return issues
}

// checkFormatting flags trailing whitespace and overly long lines.
func (m *monolithicValidator) checkFormatting(content string) []models.ValidationIssue {
	const maxLineLength = 400

	var issues []models.ValidationIssue
	for i, line := range strings.Split(content, "\n") {
		if line != strings.TrimRight(line, " \t") {
			issues = append(issues, models.ValidationIssue{
				Level:       models.SeverityInfo,
				Category:    "trailing_whitespace",
				Message:     "line has trailing whitespace",
				Line:        i + 1,
				AutoFixable: true,
			})
		}
		if len(line) > maxLineLength {
			issues = append(issues, models.ValidationIssue{
				Level:    models.SeverityInfo,
				Category: "long_line",
				Message:  fmt.Sprintf("line exceeds %d characters", maxLineLength),
				Line:     i + 1,
			})
		}
	}
	return issues
}
