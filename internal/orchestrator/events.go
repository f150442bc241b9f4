// Package orchestrator drives the validation workflow state machine:
// heuristic detection and routing, optional semantic review, gating,
// checkpointing, and retry.
package orchestrator

import (
	"time"

	"github.com/veridoc/veridoc/pkg/models"
)

// EventType represents the type of workflow event.
type EventType string

const (
	// EventWorkflowQueued indicates a workflow was admitted to the pool queue.
	EventWorkflowQueued EventType = "workflow_queued"
	// EventStageStarted indicates a workflow entered a stage.
	EventStageStarted EventType = "stage_started"
	// EventStageCompleted indicates a stage finished.
	EventStageCompleted EventType = "stage_completed"
	// EventWorkflowCompleted indicates a workflow finished successfully.
	EventWorkflowCompleted EventType = "workflow_completed"
	// EventWorkflowFailed indicates a workflow hit a terminal failure.
	EventWorkflowFailed EventType = "workflow_failed"
	// EventWorkflowPaused indicates a workflow was checkpointed and suspended.
	EventWorkflowPaused EventType = "workflow_paused"
	// EventWorkflowResumed indicates a suspended workflow continued.
	EventWorkflowResumed EventType = "workflow_resumed"
	// EventWorkflowCancelled indicates a workflow observed cancellation.
	EventWorkflowCancelled EventType = "workflow_cancelled"
	// EventCheckpointSaved indicates a checkpoint was written.
	EventCheckpointSaved EventType = "checkpoint_saved"
	// EventRetryScheduled indicates a transient failure will be retried.
	EventRetryScheduled EventType = "retry_scheduled"
)

// WorkflowEvent is emitted at workflow and stage transitions. Subscribers
// (CLI progress output, future dashboards) receive these over a channel.
type WorkflowEvent struct {
	// Type is the kind of event.
	Type EventType
	// WorkflowID is the id of the related workflow.
	WorkflowID string
	// Family is the truth-data family being validated.
	Family string
	// Stage is the state-machine stage the event refers to, if applicable.
	Stage models.Stage
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// RetryCount is the retry counter at event time (for retry events).
	RetryCount int
}
