package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/veridoc/veridoc/internal/state"
	"github.com/veridoc/veridoc/pkg/models"
)

// buildCheckpoint snapshots a workflow state into a checkpoint. The
// snapshot value is built first and serialized whole, then digested, so a
// stored checkpoint is always internally consistent.
func buildCheckpoint(ws *models.WorkflowState) (*models.Checkpoint, error) {
	payload, err := json.Marshal(ws)
	if err != nil {
		return nil, fmt.Errorf("serialize workflow state: %w", err)
	}
	sum := sha256.Sum256(payload)

	return &models.Checkpoint{
		ID:         uuid.NewString(),
		WorkflowID: ws.ID,
		CreatedAt:  time.Now().UTC(),
		Payload:    payload,
		Digest:     hex.EncodeToString(sum[:]),
	}, nil
}

// restoreCheckpoint validates a checkpoint's digest and deserializes the
// workflow state it carries.
func restoreCheckpoint(cp *models.Checkpoint) (*models.WorkflowState, error) {
	sum := sha256.Sum256(cp.Payload)
	if hex.EncodeToString(sum[:]) != cp.Digest {
		return nil, fmt.Errorf("checkpoint %s: %w", cp.ID, ErrCheckpointIntegrity)
	}

	var ws models.WorkflowState
	if err := json.Unmarshal(cp.Payload, &ws); err != nil {
		return nil, fmt.Errorf("deserialize checkpoint %s: %w", cp.ID, err)
	}
	return &ws, nil
}

// loadResumeState walks checkpoints newest-first until one validates,
// discarding any whose digest fails. With no valid checkpoint left it
// returns nil, meaning the caller restarts from the beginning.
func loadResumeState(store state.Store, workflowID string) (*models.WorkflowState, error) {
	for {
		cp, err := store.LoadCheckpoint(workflowID)
		if errors.Is(err, state.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load checkpoint: %w", err)
		}

		ws, err := restoreCheckpoint(cp)
		if err == nil {
			return ws, nil
		}
		if !errors.Is(err, ErrCheckpointIntegrity) {
			return nil, err
		}

		log.Printf("[orchestrator] workflow %s: checkpoint %s failed integrity check, trying earlier one", workflowID, cp.ID)
		if err := store.DeleteCheckpoint(cp.ID); err != nil {
			return nil, fmt.Errorf("discard corrupt checkpoint: %w", err)
		}
	}
}
