// Package state provides SQLite-based persistence for workflow records,
// validation results, and checkpoints.
package state

import (
	"errors"
	"io"

	"github.com/veridoc/veridoc/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// WorkflowStore handles workflow-state persistence.
type WorkflowStore interface {
	CreateWorkflow(ws *models.WorkflowState) error
	GetWorkflow(id string) (*models.WorkflowState, error)
	UpdateWorkflow(ws *models.WorkflowState) error
	ListWorkflowsByStatus(status models.WorkflowStatus) ([]models.WorkflowState, error)
}

// ResultStore handles final validation-result persistence.
type ResultStore interface {
	// SaveResult persists a final result together with the workflow that
	// produced it and returns the stored record's id.
	SaveResult(result *models.ValidationResult, ws *models.WorkflowState) (string, error)
	GetResult(id string) (*models.ValidationResult, error)
}

// CheckpointStore handles checkpoint persistence. Writes are atomic: a
// checkpoint is either fully stored or not stored at all.
type CheckpointStore interface {
	SaveCheckpoint(cp *models.Checkpoint) error
	// LoadCheckpoint returns the newest checkpoint for a workflow, or
	// ErrNotFound when none exists.
	LoadCheckpoint(workflowID string) (*models.Checkpoint, error)
	// DeleteCheckpoint removes a single checkpoint, typically after its
	// digest failed to validate on resume.
	DeleteCheckpoint(id string) error
}

// Migrator applies pending schema migrations.
type Migrator interface {
	Migrate() error
}

// Store is the full persistence surface the orchestrator depends on.
// Composing focused sub-interfaces keeps callers decoupled from the
// concrete SQLite implementation.
type Store interface {
	io.Closer
	Migrator
	WorkflowStore
	ResultStore
	CheckpointStore
}

// Compile-time verification that both backends implement the interfaces.
var (
	_ Store           = (*DB)(nil)
	_ WorkflowStore   = (*DB)(nil)
	_ ResultStore     = (*DB)(nil)
	_ CheckpointStore = (*DB)(nil)

	_ Store = (*MemoryStore)(nil)
)
