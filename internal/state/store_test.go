package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/veridoc/veridoc/pkg/models"
)

// openTestDB opens a migrated SQLite store in a temp directory.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

// backends runs a subtest against both store implementations.
func backends(t *testing.T, run func(t *testing.T, store Store)) {
	t.Run("sqlite", func(t *testing.T) { run(t, openTestDB(t)) })
	t.Run("memory", func(t *testing.T) { run(t, NewMemoryStore()) })
}

func sampleWorkflow() *models.WorkflowState {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.WorkflowState{
		ID:              uuid.NewString(),
		Family:          "docs",
		ValidationTypes: []string{"structure", "yaml"},
		Stage:           models.StageCreated,
		Status:          models.StatusCreated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestWorkflowRoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		ws := sampleWorkflow()
		if err := store.CreateWorkflow(ws); err != nil {
			t.Fatalf("CreateWorkflow() error = %v", err)
		}

		got, err := store.GetWorkflow(ws.ID)
		if err != nil {
			t.Fatalf("GetWorkflow() error = %v", err)
		}
		if got.Family != ws.Family || got.Stage != ws.Stage || got.Status != ws.Status {
			t.Errorf("GetWorkflow() = %+v, want %+v", got, ws)
		}
		if !reflect.DeepEqual(got.ValidationTypes, ws.ValidationTypes) {
			t.Errorf("ValidationTypes = %v, want %v", got.ValidationTypes, ws.ValidationTypes)
		}

		ws.Stage = models.StageGating
		ws.Status = models.StatusRunning
		ws.RetryCount = 2
		ws.Partial.Heuristic = &models.HeuristicOutput{Confidence: 0.8}
		ws.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
		if err := store.UpdateWorkflow(ws); err != nil {
			t.Fatalf("UpdateWorkflow() error = %v", err)
		}

		got, err = store.GetWorkflow(ws.ID)
		if err != nil {
			t.Fatalf("GetWorkflow() after update error = %v", err)
		}
		if got.Stage != models.StageGating || got.RetryCount != 2 {
			t.Errorf("updated workflow = %+v", got)
		}
		if got.Partial.Heuristic == nil || got.Partial.Heuristic.Confidence != 0.8 {
			t.Errorf("Partial.Heuristic = %+v, want confidence 0.8", got.Partial.Heuristic)
		}
	})
}

func TestWorkflowNotFound(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		if _, err := store.GetWorkflow("missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetWorkflow(missing) error = %v, want ErrNotFound", err)
		}
		if err := store.UpdateWorkflow(sampleWorkflow()); !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateWorkflow(unknown) error = %v, want ErrNotFound", err)
		}
	})
}

func TestListWorkflowsByStatus(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		first := sampleWorkflow()
		first.CreatedAt = first.CreatedAt.Add(-time.Minute)
		second := sampleWorkflow()
		done := sampleWorkflow()
		done.Status = models.StatusCompleted

		for _, ws := range []*models.WorkflowState{first, second, done} {
			if err := store.CreateWorkflow(ws); err != nil {
				t.Fatalf("CreateWorkflow() error = %v", err)
			}
		}

		created, err := store.ListWorkflowsByStatus(models.StatusCreated)
		if err != nil {
			t.Fatalf("ListWorkflowsByStatus() error = %v", err)
		}
		if len(created) != 2 {
			t.Fatalf("created workflows = %d, want 2", len(created))
		}
		if created[0].ID != first.ID {
			t.Errorf("list not ordered oldest first: %v", []string{created[0].ID, created[1].ID})
		}

		completed, err := store.ListWorkflowsByStatus(models.StatusCompleted)
		if err != nil {
			t.Fatalf("ListWorkflowsByStatus(completed) error = %v", err)
		}
		if len(completed) != 1 || completed[0].ID != done.ID {
			t.Errorf("completed workflows = %+v, want just %s", completed, done.ID)
		}
	})
}

func TestResultRoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		ws := sampleWorkflow()
		if err := store.CreateWorkflow(ws); err != nil {
			t.Fatalf("CreateWorkflow() error = %v", err)
		}

		result := &models.ValidationResult{
			Confidence: 0.92,
			Issues: []models.ValidationIssue{
				{Level: models.SeverityWarning, Category: "heading_length", Message: "too long", Line: 4, Source: "structure"},
			},
			Metrics:     map[string]float64{"heading_count": 3},
			ValidatorID: "orchestrator",
		}

		id, err := store.SaveResult(result, ws)
		if err != nil {
			t.Fatalf("SaveResult() error = %v", err)
		}
		if id == "" {
			t.Fatal("SaveResult() returned an empty id")
		}

		got, err := store.GetResult(id)
		if err != nil {
			t.Fatalf("GetResult() error = %v", err)
		}
		if !reflect.DeepEqual(got, result) {
			t.Errorf("GetResult() = %+v, want %+v", got, result)
		}

		if _, err := store.GetResult("missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetResult(missing) error = %v, want ErrNotFound", err)
		}
	})
}

func TestCheckpointRoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		ws := sampleWorkflow()
		ws.Stage = models.StageRunningSemantic
		ws.RetryCount = 1
		ws.Partial.Heuristic = &models.HeuristicOutput{
			Confidence: 0.7,
			Issues: []models.ValidationIssue{
				{Level: models.SeverityError, Category: "missing_title", Message: "no title", Line: 1, Source: "structure"},
			},
		}
		if err := store.CreateWorkflow(ws); err != nil {
			t.Fatalf("CreateWorkflow() error = %v", err)
		}

		payload, err := json.Marshal(ws)
		if err != nil {
			t.Fatalf("marshal workflow: %v", err)
		}
		sum := sha256.Sum256(payload)
		cp := &models.Checkpoint{
			ID:         uuid.NewString(),
			WorkflowID: ws.ID,
			CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
			Payload:    payload,
			Digest:     hex.EncodeToString(sum[:]),
		}

		if err := store.SaveCheckpoint(cp); err != nil {
			t.Fatalf("SaveCheckpoint() error = %v", err)
		}

		got, err := store.LoadCheckpoint(ws.ID)
		if err != nil {
			t.Fatalf("LoadCheckpoint() error = %v", err)
		}
		if got.Digest != cp.Digest {
			t.Errorf("Digest = %q, want %q", got.Digest, cp.Digest)
		}

		var restored models.WorkflowState
		if err := json.Unmarshal(got.Payload, &restored); err != nil {
			t.Fatalf("unmarshal checkpoint payload: %v", err)
		}
		if restored.Stage != ws.Stage || restored.RetryCount != ws.RetryCount {
			t.Errorf("restored stage/retry = %v/%d, want %v/%d",
				restored.Stage, restored.RetryCount, ws.Stage, ws.RetryCount)
		}
		if !reflect.DeepEqual(restored.Partial, ws.Partial) {
			t.Errorf("restored partial = %+v, want %+v", restored.Partial, ws.Partial)
		}
	})
}

func TestLoadCheckpointReturnsNewest(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		ws := sampleWorkflow()
		if err := store.CreateWorkflow(ws); err != nil {
			t.Fatalf("CreateWorkflow() error = %v", err)
		}

		base := time.Now().UTC().Truncate(time.Millisecond)
		var newestID string
		for i := 0; i < 3; i++ {
			cp := &models.Checkpoint{
				ID:         uuid.NewString(),
				WorkflowID: ws.ID,
				CreatedAt:  base.Add(time.Duration(i) * time.Second),
				Payload:    []byte(`{}`),
				Digest:     "d",
			}
			if err := store.SaveCheckpoint(cp); err != nil {
				t.Fatalf("SaveCheckpoint() error = %v", err)
			}
			newestID = cp.ID
		}

		got, err := store.LoadCheckpoint(ws.ID)
		if err != nil {
			t.Fatalf("LoadCheckpoint() error = %v", err)
		}
		if got.ID != newestID {
			t.Errorf("LoadCheckpoint() id = %s, want newest %s", got.ID, newestID)
		}
	})
}

func TestDeleteCheckpoint(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		ws := sampleWorkflow()
		if err := store.CreateWorkflow(ws); err != nil {
			t.Fatalf("CreateWorkflow() error = %v", err)
		}

		cp := &models.Checkpoint{
			ID:         uuid.NewString(),
			WorkflowID: ws.ID,
			CreatedAt:  time.Now().UTC(),
			Payload:    []byte(`{}`),
			Digest:     "d",
		}
		if err := store.SaveCheckpoint(cp); err != nil {
			t.Fatalf("SaveCheckpoint() error = %v", err)
		}
		if err := store.DeleteCheckpoint(cp.ID); err != nil {
			t.Fatalf("DeleteCheckpoint() error = %v", err)
		}
		if _, err := store.LoadCheckpoint(ws.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("LoadCheckpoint() after delete error = %v, want ErrNotFound", err)
		}
	})
}
