// Package semantic runs the optional second-stage review of heuristic
// findings through a Claude model and parses its verdicts.
package semantic

import (
	"context"
	"errors"

	"github.com/veridoc/veridoc/pkg/models"
)

// ErrUnavailable signals that the semantic stage cannot run. The
// orchestrator treats it exactly like the stage being disabled.
var ErrUnavailable = errors.New("semantic reviewer unavailable")

// Reviewer produces verdicts on heuristic issues plus any findings of its
// own. Implementations return ErrUnavailable (possibly wrapped) when the
// backing service cannot be reached.
type Reviewer interface {
	Review(ctx context.Context, content string, issues []models.ValidationIssue) (*models.ReviewOutcome, error)
}
