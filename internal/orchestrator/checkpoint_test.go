package orchestrator

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/veridoc/veridoc/internal/state"
	"github.com/veridoc/veridoc/pkg/models"
)

func checkpointFixture() *models.WorkflowState {
	return &models.WorkflowState{
		ID:              "wf-1",
		Family:          "docs",
		ValidationTypes: []string{"structure"},
		Stage:           models.StageRunningSemantic,
		Status:          models.StatusRunning,
		RetryCount:      2,
		Partial: models.PartialResults{
			Heuristic: &models.HeuristicOutput{
				Confidence: 0.7,
				Issues: []models.ValidationIssue{
					{Level: models.SeverityError, Category: "missing_title", Message: "no title", Line: 1, Source: "structure"},
				},
			},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	ws := checkpointFixture()

	cp, err := buildCheckpoint(ws)
	if err != nil {
		t.Fatalf("buildCheckpoint() error = %v", err)
	}
	if cp.WorkflowID != ws.ID || cp.ID == "" || cp.Digest == "" {
		t.Fatalf("checkpoint = %+v", cp)
	}

	restored, err := restoreCheckpoint(cp)
	if err != nil {
		t.Fatalf("restoreCheckpoint() error = %v", err)
	}
	if restored.Stage != ws.Stage || restored.RetryCount != ws.RetryCount {
		t.Errorf("restored stage/retry = %v/%d, want %v/%d",
			restored.Stage, restored.RetryCount, ws.Stage, ws.RetryCount)
	}
	if !reflect.DeepEqual(restored.Partial, ws.Partial) {
		t.Errorf("restored partial = %+v, want %+v", restored.Partial, ws.Partial)
	}
}

func TestRestoreCheckpointRejectsTamperedPayload(t *testing.T) {
	cp, err := buildCheckpoint(checkpointFixture())
	if err != nil {
		t.Fatalf("buildCheckpoint() error = %v", err)
	}

	cp.Payload[0] ^= 0xff
	if _, err := restoreCheckpoint(cp); !errors.Is(err, ErrCheckpointIntegrity) {
		t.Errorf("restoreCheckpoint() error = %v, want ErrCheckpointIntegrity", err)
	}
}

func TestLoadResumeStateFallsBackPastCorruptCheckpoint(t *testing.T) {
	store := state.NewMemoryStore()
	ws := checkpointFixture()
	ws.RetryCount = 0
	if err := store.CreateWorkflow(ws); err != nil {
		t.Fatalf("CreateWorkflow() error = %v", err)
	}

	good, err := buildCheckpoint(ws)
	if err != nil {
		t.Fatalf("buildCheckpoint() error = %v", err)
	}
	good.CreatedAt = time.Now().UTC().Add(-time.Minute)
	if err := store.SaveCheckpoint(good); err != nil {
		t.Fatalf("SaveCheckpoint() error = %v", err)
	}

	ws.RetryCount = 3
	bad, err := buildCheckpoint(ws)
	if err != nil {
		t.Fatalf("buildCheckpoint() error = %v", err)
	}
	bad.Payload[0] ^= 0xff
	bad.CreatedAt = time.Now().UTC()
	if err := store.SaveCheckpoint(bad); err != nil {
		t.Fatalf("SaveCheckpoint() error = %v", err)
	}

	restored, err := loadResumeState(store, ws.ID)
	if err != nil {
		t.Fatalf("loadResumeState() error = %v", err)
	}
	if restored == nil {
		t.Fatal("loadResumeState() = nil, want the earlier valid checkpoint")
	}
	if restored.RetryCount != 0 {
		t.Errorf("restored RetryCount = %d, want 0 from the valid checkpoint", restored.RetryCount)
	}

	// The corrupt checkpoint was discarded.
	cp, err := store.LoadCheckpoint(ws.ID)
	if err != nil {
		t.Fatalf("LoadCheckpoint() error = %v", err)
	}
	if cp.ID != good.ID {
		t.Errorf("remaining checkpoint = %s, want %s", cp.ID, good.ID)
	}
}

func TestLoadResumeStateNoCheckpoints(t *testing.T) {
	store := state.NewMemoryStore()
	restored, err := loadResumeState(store, "nothing")
	if err != nil {
		t.Fatalf("loadResumeState() error = %v", err)
	}
	if restored != nil {
		t.Errorf("loadResumeState() = %+v, want nil", restored)
	}
}
