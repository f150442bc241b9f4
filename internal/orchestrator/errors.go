package orchestrator

import (
	"errors"
	"fmt"

	"github.com/veridoc/veridoc/pkg/models"
)

var (
	// ErrCheckpointIntegrity marks a checkpoint whose digest does not match
	// its payload. Such checkpoints are never resumed from.
	ErrCheckpointIntegrity = errors.New("checkpoint integrity mismatch")
	// ErrQueueFull is the backpressure signal when the pool's admission
	// queue cannot take another workflow.
	ErrQueueFull = errors.New("workflow queue full")
	// ErrCancelled marks a workflow that observed cancellation at a stage
	// boundary.
	ErrCancelled = errors.New("workflow cancelled")
)

// RetryBudgetExhaustedError is terminal: a stage failed transiently more
// times than the configured attempt budget allows.
type RetryBudgetExhaustedError struct {
	// Stage is where the budget ran out.
	Stage models.Stage
	// Attempts is the number of attempts consumed.
	Attempts int
	// LastErr is the final attempt's failure.
	LastErr error
}

// Error implements the error interface.
func (e *RetryBudgetExhaustedError) Error() string {
	return fmt.Sprintf("retry budget exhausted after %d attempts in stage %s: %v",
		e.Attempts, e.Stage, e.LastErr)
}

// Unwrap returns the final attempt's failure.
func (e *RetryBudgetExhaustedError) Unwrap() error {
	return e.LastErr
}

// WorkflowFailedError reports a workflow-level failure with the stage it
// occurred in and a human-readable reason.
type WorkflowFailedError struct {
	// WorkflowID identifies the failed workflow.
	WorkflowID string
	// Stage is where the failure happened.
	Stage models.Stage
	// Reason is the recorded failure reason.
	Reason string
	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *WorkflowFailedError) Error() string {
	return fmt.Sprintf("workflow %s failed in stage %s: %s", e.WorkflowID, e.Stage, e.Reason)
}

// Unwrap returns the underlying failure.
func (e *WorkflowFailedError) Unwrap() error {
	return e.Err
}
