package orchestrator

import (
	"errors"
	"testing"
	"time"

	"github.com/veridoc/veridoc/internal/config"
	"github.com/veridoc/veridoc/pkg/models"
)

func TestPoolRunsSubmittedWorkflows(t *testing.T) {
	orch, _ := newTestEnv(t)
	pool := NewPool(orch, testWorkflowConfig())
	defer pool.Shutdown()

	id, done, err := pool.Submit(testRequest("# Title\n"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if id == "" {
		t.Fatal("Submit() returned an empty workflow id")
	}

	select {
	case outcome := <-done:
		if outcome.Err != nil {
			t.Fatalf("workflow error = %v", outcome.Err)
		}
		if outcome.WorkflowID != id {
			t.Errorf("outcome id = %s, want %s", outcome.WorkflowID, id)
		}
		if outcome.Result == nil {
			t.Fatal("workflow produced no result")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("workflow did not finish")
	}
}

func TestPoolFIFOWithSingleSlot(t *testing.T) {
	orch, _ := newTestEnv(t)
	cfg := testWorkflowConfig()
	cfg.MaxConcurrent = 1
	pool := NewPool(orch, cfg)
	defer pool.Shutdown()

	var ids []string
	var dones []<-chan Outcome
	for i := 0; i < 3; i++ {
		id, done, err := pool.Submit(testRequest("# Title\n"))
		if err != nil {
			t.Fatalf("Submit() %d error = %v", i, err)
		}
		ids = append(ids, id)
		dones = append(dones, done)
	}

	// With one execution slot, completion order follows admission order.
	var completed []string
	for i, done := range dones {
		select {
		case outcome := <-done:
			if outcome.Err != nil {
				t.Fatalf("workflow %d error = %v", i, outcome.Err)
			}
			completed = append(completed, outcome.WorkflowID)
		case <-time.After(5 * time.Second):
			t.Fatalf("workflow %d did not finish", i)
		}
	}
	for i := range ids {
		if completed[i] != ids[i] {
			t.Fatalf("completion order %v does not match submit order %v", completed, ids)
		}
	}
}

func TestPoolBackpressure(t *testing.T) {
	orch, store := newTestEnv(t)
	orch.Pause() // workflows suspend immediately, clogging the pool

	cfg := testWorkflowConfig()
	cfg.MaxConcurrent = 1
	cfg.QueueSize = 1
	pool := NewPool(orch, cfg)
	defer func() {
		orch.Resume()
		pool.Shutdown()
	}()

	var accepted []<-chan Outcome
	rejected := 0
	for i := 0; i < 4; i++ {
		_, done, err := pool.Submit(testRequest("# Title\n"))
		if errors.Is(err, ErrQueueFull) {
			rejected++
			continue
		}
		if err != nil {
			t.Fatalf("Submit() %d error = %v", i, err)
		}
		accepted = append(accepted, done)
	}
	if rejected == 0 {
		t.Fatal("no submit received ErrQueueFull with a clogged single-slot pool")
	}

	orch.Resume()
	for i, done := range accepted {
		select {
		case outcome := <-done:
			if outcome.Err != nil {
				t.Errorf("accepted workflow %d error = %v", i, outcome.Err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("accepted workflow %d did not finish after resume", i)
		}
	}

	completed, _ := store.ListWorkflowsByStatus(models.StatusCompleted)
	if len(completed) != len(accepted) {
		t.Errorf("completed workflows = %d, want %d", len(completed), len(accepted))
	}

	// Rejected submissions must not linger as runnable-looking records.
	created, _ := store.ListWorkflowsByStatus(models.StatusCreated)
	if len(created) != 0 {
		t.Errorf("%d workflows stuck at status created after rejection", len(created))
	}
	cancelled, _ := store.ListWorkflowsByStatus(models.StatusCancelled)
	if len(cancelled) != rejected {
		t.Errorf("cancelled workflows = %d, want %d rejected submissions", len(cancelled), rejected)
	}
}

func TestPoolShutdownFailsPending(t *testing.T) {
	orch, _ := newTestEnv(t)
	orch.Pause()

	cfg := config.WorkflowConfig{MaxConcurrent: 1, QueueSize: 4, MaxAttempts: 1}
	pool := NewPool(orch, cfg)

	_, done, err := pool.Submit(testRequest("# Title\n"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	pool.Shutdown()

	select {
	case outcome := <-done:
		if outcome.Err == nil {
			t.Error("pending workflow completed after shutdown, want an error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pending workflow never reported an outcome after shutdown")
	}
}
