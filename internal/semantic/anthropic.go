package semantic

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/veridoc/veridoc/pkg/models"
)

const reviewSystemPrompt = "You are a precise documentation reviewer. " +
	"Answer only in the requested line formats."

// AnthropicReviewer implements Reviewer against the Anthropic Messages API.
type AnthropicReviewer struct {
	client anthropic.Client
	model  anthropic.Model
}

// AnthropicConfig configures the API-backed reviewer.
type AnthropicConfig struct {
	// APIKey authenticates against the Anthropic API. Required.
	APIKey string
	// Model overrides the default review model.
	Model anthropic.Model
}

// NewAnthropicReviewer creates an API-backed reviewer.
func NewAnthropicReviewer(cfg AnthropicConfig) (*AnthropicReviewer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: no api key configured", ErrUnavailable)
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	return &AnthropicReviewer{
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  model,
	}, nil
}

// Review sends the document and heuristic findings for a second opinion.
// Transport failures surface as ErrUnavailable so the caller falls back to
// the heuristic-only result.
func (r *AnthropicReviewer) Review(ctx context.Context, content string, issues []models.ValidationIssue) (*models.ReviewOutcome, error) {
	prompt := buildReviewPrompt(content, issues)

	resp, err := r.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     r.model,
		MaxTokens: 8192,
		System: []anthropic.TextBlockParam{
			{Text: reviewSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		log.Printf("[semantic] review call failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var output strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			output.WriteString(variant.Text)
		}
	}

	outcome := parseReviewResponse(output.String(), issues)
	log.Printf("[semantic] review complete: %d verdicts, %d new issues, confidence %.2f",
		len(outcome.Verdicts), len(outcome.NewIssues), outcome.Confidence)
	return outcome, nil
}
