package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/veridoc/veridoc/pkg/models"
)

// SaveCheckpoint stores a checkpoint atomically: the insert happens in a
// transaction, so a checkpoint is never visible half-written.
func (db *DB) SaveCheckpoint(cp *models.Checkpoint) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin checkpoint transaction: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO checkpoints (id, workflow_id, created_at, payload, digest)
		VALUES (?, ?, ?, ?, ?)`,
		cp.ID, cp.WorkflowID, cp.CreatedAt.UTC().Format(time.RFC3339Nano), cp.Payload, cp.Digest)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("insert checkpoint %s: %w", cp.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint %s: %w", cp.ID, err)
	}
	return nil
}

// LoadCheckpoint returns the newest checkpoint for a workflow.
func (db *DB) LoadCheckpoint(workflowID string) (*models.Checkpoint, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var (
		cp        models.Checkpoint
		createdAt string
	)
	err := db.conn.QueryRow(`
		SELECT id, workflow_id, created_at, payload, digest
		FROM checkpoints WHERE workflow_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, workflowID).
		Scan(&cp.ID, &cp.WorkflowID, &createdAt, &cp.Payload, &cp.Digest)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("checkpoint for workflow %s: %w", workflowID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint for workflow %s: %w", workflowID, err)
	}

	if cp.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse checkpoint created_at: %w", err)
	}
	return &cp, nil
}

// DeleteCheckpoint removes a single checkpoint record.
func (db *DB) DeleteCheckpoint(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec(`DELETE FROM checkpoints WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete checkpoint %s: %w", id, err)
	}
	return nil
}
