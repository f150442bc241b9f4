package state

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/veridoc/veridoc/pkg/models"
)

// MemoryStore is an in-memory Store for tests and ephemeral runs. Records
// are deep-copied through JSON so callers cannot mutate stored state.
type MemoryStore struct {
	mu          sync.Mutex
	workflows   map[string]*models.WorkflowState
	results     map[string]*models.ValidationResult
	checkpoints map[string][]*models.Checkpoint
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workflows:   make(map[string]*models.WorkflowState),
		results:     make(map[string]*models.ValidationResult),
		checkpoints: make(map[string][]*models.Checkpoint),
	}
}

// Close implements io.Closer; nothing to release.
func (m *MemoryStore) Close() error { return nil }

// Migrate implements Migrator; nothing to migrate.
func (m *MemoryStore) Migrate() error { return nil }

// CreateWorkflow stores a new workflow record.
func (m *MemoryStore) CreateWorkflow(ws *models.WorkflowState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.workflows[ws.ID]; exists {
		return fmt.Errorf("workflow %s already exists", ws.ID)
	}
	m.workflows[ws.ID] = deepCopy(ws)
	return nil
}

// GetWorkflow fetches a workflow by id.
func (m *MemoryStore) GetWorkflow(id string) (*models.WorkflowState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ws, ok := m.workflows[id]
	if !ok {
		return nil, fmt.Errorf("workflow %s: %w", id, ErrNotFound)
	}
	return deepCopy(ws), nil
}

// UpdateWorkflow rewrites an existing workflow record.
func (m *MemoryStore) UpdateWorkflow(ws *models.WorkflowState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.workflows[ws.ID]; !ok {
		return fmt.Errorf("workflow %s: %w", ws.ID, ErrNotFound)
	}
	m.workflows[ws.ID] = deepCopy(ws)
	return nil
}

// ListWorkflowsByStatus returns workflows with the given status, oldest
// first.
func (m *MemoryStore) ListWorkflowsByStatus(status models.WorkflowStatus) ([]models.WorkflowState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.WorkflowState
	for _, ws := range m.workflows {
		if ws.Status == status {
			out = append(out, *deepCopy(ws))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveResult stores a final validation result and returns its record id.
func (m *MemoryStore) SaveResult(result *models.ValidationResult, ws *models.WorkflowState) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.results[id] = deepCopy(result)
	return id, nil
}

// GetResult fetches a stored result by id.
func (m *MemoryStore) GetResult(id string) (*models.ValidationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result, ok := m.results[id]
	if !ok {
		return nil, fmt.Errorf("result %s: %w", id, ErrNotFound)
	}
	return deepCopy(result), nil
}

// SaveCheckpoint appends a checkpoint for its workflow.
func (m *MemoryStore) SaveCheckpoint(cp *models.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checkpoints[cp.WorkflowID] = append(m.checkpoints[cp.WorkflowID], deepCopy(cp))
	return nil
}

// LoadCheckpoint returns the newest checkpoint for a workflow.
func (m *MemoryStore) LoadCheckpoint(workflowID string) (*models.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cps := m.checkpoints[workflowID]
	if len(cps) == 0 {
		return nil, fmt.Errorf("checkpoint for workflow %s: %w", workflowID, ErrNotFound)
	}

	newest := cps[0]
	for _, cp := range cps[1:] {
		if cp.CreatedAt.After(newest.CreatedAt) ||
			(cp.CreatedAt.Equal(newest.CreatedAt) && cp.ID > newest.ID) {
			newest = cp
		}
	}
	return deepCopy(newest), nil
}

// DeleteCheckpoint removes a checkpoint by id.
func (m *MemoryStore) DeleteCheckpoint(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for workflowID, cps := range m.checkpoints {
		for i, cp := range cps {
			if cp.ID == id {
				m.checkpoints[workflowID] = append(cps[:i], cps[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

// deepCopy round-trips a value through JSON to detach it from the caller.
func deepCopy[T any](v *T) *T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("state: marshal for copy: %v", err))
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		panic(fmt.Sprintf("state: unmarshal for copy: %v", err))
	}
	return out
}
