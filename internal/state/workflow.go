package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/veridoc/veridoc/pkg/models"
)

// CreateWorkflow inserts a new workflow record.
func (db *DB) CreateWorkflow(ws *models.WorkflowState) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	types, err := json.Marshal(ws.ValidationTypes)
	if err != nil {
		return fmt.Errorf("marshal validation types: %w", err)
	}
	partial, err := json.Marshal(ws.Partial)
	if err != nil {
		return fmt.Errorf("marshal partial results: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO workflows (id, family, validation_types, stage, status, retry_count, failure_reason, partial_results, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ws.ID, ws.Family, string(types), string(ws.Stage), string(ws.Status),
		ws.RetryCount, ws.FailureReason, string(partial),
		ws.CreatedAt.UTC().Format(time.RFC3339Nano), ws.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert workflow %s: %w", ws.ID, err)
	}
	return nil
}

// GetWorkflow fetches a workflow by id.
func (db *DB) GetWorkflow(id string) (*models.WorkflowState, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	row := db.conn.QueryRow(`
		SELECT id, family, validation_types, stage, status, retry_count, failure_reason, partial_results, created_at, updated_at
		FROM workflows WHERE id = ?`, id)
	ws, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("workflow %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow %s: %w", id, err)
	}
	return ws, nil
}

// UpdateWorkflow rewrites a workflow's mutable fields.
func (db *DB) UpdateWorkflow(ws *models.WorkflowState) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	types, err := json.Marshal(ws.ValidationTypes)
	if err != nil {
		return fmt.Errorf("marshal validation types: %w", err)
	}
	partial, err := json.Marshal(ws.Partial)
	if err != nil {
		return fmt.Errorf("marshal partial results: %w", err)
	}

	res, err := db.conn.Exec(`
		UPDATE workflows
		SET family = ?, validation_types = ?, stage = ?, status = ?, retry_count = ?, failure_reason = ?, partial_results = ?, updated_at = ?
		WHERE id = ?`,
		ws.Family, string(types), string(ws.Stage), string(ws.Status),
		ws.RetryCount, ws.FailureReason, string(partial),
		ws.UpdatedAt.UTC().Format(time.RFC3339Nano), ws.ID)
	if err != nil {
		return fmt.Errorf("update workflow %s: %w", ws.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("workflow %s: %w", ws.ID, ErrNotFound)
	}
	return nil
}

// ListWorkflowsByStatus returns all workflows with the given status,
// oldest first.
func (db *DB) ListWorkflowsByStatus(status models.WorkflowStatus) ([]models.WorkflowState, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query(`
		SELECT id, family, validation_types, stage, status, retry_count, failure_reason, partial_results, created_at, updated_at
		FROM workflows WHERE status = ? ORDER BY created_at, id`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list workflows by status %s: %w", status, err)
	}
	defer rows.Close()

	var out []models.WorkflowState
	for rows.Next() {
		ws, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		out = append(out, *ws)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.WorkflowState, error) {
	var (
		ws            models.WorkflowState
		types         string
		stage         string
		status        string
		failureReason sql.NullString
		partial       string
		createdAt     string
		updatedAt     string
	)
	err := row.Scan(&ws.ID, &ws.Family, &types, &stage, &status,
		&ws.RetryCount, &failureReason, &partial, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(types), &ws.ValidationTypes); err != nil {
		return nil, fmt.Errorf("unmarshal validation types: %w", err)
	}
	if err := json.Unmarshal([]byte(partial), &ws.Partial); err != nil {
		return nil, fmt.Errorf("unmarshal partial results: %w", err)
	}
	ws.Stage = models.Stage(stage)
	ws.Status = models.WorkflowStatus(status)
	ws.FailureReason = failureReason.String

	if ws.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if ws.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &ws, nil
}
