package orchestrator

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/veridoc/veridoc/internal/config"
	"github.com/veridoc/veridoc/pkg/models"
)

// Outcome is the terminal result of a pooled workflow.
type Outcome struct {
	// WorkflowID identifies the workflow.
	WorkflowID string
	// Result is the final validation result on success.
	Result *models.ValidationResult
	// Err is the terminal error, if the workflow did not complete.
	Err error
}

// submission is one queued workflow awaiting admission.
type submission struct {
	ws   *models.WorkflowState
	req  Request
	done chan Outcome
}

// Pool runs workflows with bounded concurrency. Admission is FIFO through
// a bounded queue; a submit against a full queue fails with ErrQueueFull
// rather than blocking.
type Pool struct {
	orch  *Orchestrator
	queue chan *submission
	// sem caps concurrently executing workflows.
	sem *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// NewPool creates a Pool over the orchestrator and starts its dispatcher.
func NewPool(orch *Orchestrator, cfg config.WorkflowConfig) *Pool {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	queueSize := cfg.QueueSize
	if queueSize < 1 {
		queueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		orch:   orch,
		queue:  make(chan *submission, queueSize),
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		ctx:    ctx,
		cancel: cancel,
	}

	p.wg.Add(1)
	go p.dispatch()
	return p
}

// Submit enqueues a workflow for execution and returns its id plus a
// channel that delivers the terminal outcome. A full queue returns
// ErrQueueFull as backpressure.
func (p *Pool) Submit(req Request) (string, <-chan Outcome, error) {
	ws, err := p.orch.NewWorkflow(req)
	if err != nil {
		return "", nil, err
	}

	sub := &submission{ws: ws, req: req, done: make(chan Outcome, 1)}
	select {
	case p.queue <- sub:
	default:
		// The record was already persisted; without this it would sit at
		// status created forever.
		ws.Status = models.StatusCancelled
		ws.FailureReason = "admission queue full"
		p.orch.persist(ws)
		return "", nil, ErrQueueFull
	}

	p.orch.emit(WorkflowEvent{
		Type:       EventWorkflowQueued,
		WorkflowID: ws.ID,
		Family:     ws.Family,
		Stage:      ws.Stage,
	})
	return ws.ID, sub.done, nil
}

// dispatch admits queued workflows in FIFO order, blocking on the
// concurrency semaphore before starting each one.
func (p *Pool) dispatch() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			p.drainQueue()
			return
		case sub := <-p.queue:
			if err := p.sem.Acquire(p.ctx, 1); err != nil {
				sub.done <- Outcome{WorkflowID: sub.ws.ID, Err: err}
				p.drainQueue()
				return
			}

			p.wg.Add(1)
			go func(sub *submission) {
				defer p.wg.Done()
				defer p.sem.Release(1)

				result, err := p.orch.Run(p.ctx, sub.ws, sub.req)
				if err != nil {
					log.Printf("[pool] workflow %s terminated: %v", sub.ws.ID, err)
				}
				sub.done <- Outcome{WorkflowID: sub.ws.ID, Result: result, Err: err}
			}(sub)
		}
	}
}

// drainQueue fails pending submissions after shutdown began.
func (p *Pool) drainQueue() {
	for {
		select {
		case sub := <-p.queue:
			sub.done <- Outcome{WorkflowID: sub.ws.ID, Err: p.ctx.Err()}
		default:
			return
		}
	}
}

// Shutdown stops admission and waits for running workflows to observe
// cancellation.
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}
