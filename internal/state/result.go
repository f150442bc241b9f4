package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veridoc/veridoc/pkg/models"
)

// SaveResult persists a final validation result for a workflow and returns
// the stored record's id.
func (db *DB) SaveResult(result *models.ValidationResult, ws *models.WorkflowState) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}

	id := uuid.NewString()
	_, err = db.conn.Exec(`
		INSERT INTO results (id, workflow_id, payload, created_at)
		VALUES (?, ?, ?, ?)`,
		id, ws.ID, string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("insert result for workflow %s: %w", ws.ID, err)
	}
	return id, nil
}

// GetResult fetches a stored validation result by id.
func (db *DB) GetResult(id string) (*models.ValidationResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var payload string
	err := db.conn.QueryRow(`SELECT payload FROM results WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("result %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get result %s: %w", id, err)
	}

	var result models.ValidationResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("unmarshal result %s: %w", id, err)
	}
	return &result, nil
}
