package models

import "time"

// Stage is a position in the validation workflow state machine.
type Stage string

const (
	// StageCreated is the initial stage before any work has started.
	StageCreated Stage = "created"
	// StageRunningHeuristic runs the fuzzy detector and validator router.
	StageRunningHeuristic Stage = "running_heuristic"
	// StageRunningSemantic runs the optional semantic review pass.
	StageRunningSemantic Stage = "running_semantic"
	// StageGating combines heuristic and semantic findings.
	StageGating Stage = "gating"
	// StageCompleted is the terminal success stage.
	StageCompleted Stage = "completed"
	// StageFailed is the terminal failure stage.
	StageFailed Stage = "failed"
)

// WorkflowStatus is the lifecycle status of a workflow.
type WorkflowStatus string

const (
	// StatusCreated means the workflow exists but has not started.
	StatusCreated WorkflowStatus = "created"
	// StatusRunning means the workflow is actively executing a stage.
	StatusRunning WorkflowStatus = "running"
	// StatusPaused means the workflow was checkpointed and suspended.
	StatusPaused WorkflowStatus = "paused"
	// StatusCompleted means the workflow finished successfully.
	StatusCompleted WorkflowStatus = "completed"
	// StatusFailed means the workflow exhausted retries or hit a fatal error.
	StatusFailed WorkflowStatus = "failed"
	// StatusCancelled means the workflow was cooperatively cancelled.
	StatusCancelled WorkflowStatus = "cancelled"
)

// Terminal reports whether the status allows no further progress.
func (s WorkflowStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// HeuristicOutput is everything the heuristic stage produced: detections from
// the fuzzy detector plus per-type results and issues from the router.
type HeuristicOutput struct {
	// Detections is the deduplicated, ordered detection list.
	Detections []Detection `json:"detections,omitempty"`
	// Results maps validation type to that validator's result.
	Results map[string]ValidationResult `json:"results,omitempty"`
	// Issues is the aggregated issue list in router order.
	Issues []ValidationIssue `json:"issues,omitempty"`
	// Confidence is the combined heuristic-stage confidence, in [0,1].
	Confidence float64 `json:"confidence"`
}

// PartialResults holds per-stage outputs accumulated so far, so a resumed
// workflow can skip stages that already completed.
type PartialResults struct {
	// Heuristic is set once the heuristic stage completed.
	Heuristic *HeuristicOutput `json:"heuristic,omitempty"`
	// Review is set once the semantic stage completed.
	Review *ReviewOutcome `json:"review,omitempty"`
	// Final is set once gating completed.
	Final *ValidationResult `json:"final,omitempty"`
}

// WorkflowState is the mutable record of one validation workflow. Only the
// orchestrator mutates it; everyone else sees snapshots.
type WorkflowState struct {
	// ID is the workflow identifier.
	ID string `json:"id"`
	// Family is the truth-data family being validated against.
	Family string `json:"family"`
	// ValidationTypes lists the requested validation types, in caller order.
	ValidationTypes []string `json:"validation_types,omitempty"`
	// Stage is the current state-machine position.
	Stage Stage `json:"stage"`
	// Status is the lifecycle status.
	Status WorkflowStatus `json:"status"`
	// RetryCount is the number of retries consumed so far. Preserved across
	// checkpoint/resume so retries are not silently reset.
	RetryCount int `json:"retry_count"`
	// FailureReason records why the workflow failed, if it did.
	FailureReason string `json:"failure_reason,omitempty"`
	// Partial holds completed-stage outputs.
	Partial PartialResults `json:"partial"`
	// CreatedAt is when the workflow was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the workflow state last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Checkpoint is a durable, integrity-checked snapshot of workflow progress.
// It is written atomically at stage boundaries and consumed only on resume.
type Checkpoint struct {
	// ID is the checkpoint identifier.
	ID string `json:"id"`
	// WorkflowID is the workflow the checkpoint belongs to.
	WorkflowID string `json:"workflow_id"`
	// CreatedAt is when the checkpoint was taken.
	CreatedAt time.Time `json:"created_at"`
	// Payload is the serialized WorkflowState snapshot.
	Payload []byte `json:"payload"`
	// Digest is the hex sha256 of Payload. A checkpoint whose digest does not
	// match its payload is not eligible for resume.
	Digest string `json:"digest"`
}
