package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/veridoc/veridoc/internal/config"
	"github.com/veridoc/veridoc/internal/detect"
	"github.com/veridoc/veridoc/internal/router"
	"github.com/veridoc/veridoc/internal/semantic"
	"github.com/veridoc/veridoc/internal/state"
	"github.com/veridoc/veridoc/internal/truth"
	"github.com/veridoc/veridoc/pkg/models"
)

// Request describes one validation workflow: what content to validate,
// against which family, with which validation types.
type Request struct {
	// Family is the truth-data family to validate against.
	Family string
	// Content is the document content.
	Content string
	// ValidationTypes lists the requested validation types, in caller order.
	ValidationTypes []string
	// Path is the source path of the content, when known.
	Path string
}

// Orchestrator runs validation workflows through the stage machine:
// heuristic detection and routing run concurrently, an optional semantic
// review follows, and gating combines both into the final result.
type Orchestrator struct {
	store    state.Store
	truth    *truth.Cache
	detector *detect.Detector
	router   *router.Router

	reviewer    semantic.Reviewer
	semanticCfg config.SemanticConfig
	workflowCfg config.WorkflowConfig

	emitter *EventEmitter
	pause   *PauseController
	// semanticSem caps concurrent semantic-review calls across workflows.
	semanticSem *semaphore.Weighted
}

// New creates an Orchestrator from required dependencies plus options.
func New(req RequiredConfig, opts ...Option) *Orchestrator {
	options := &orchestratorOptions{eventBufSize: 64}
	for _, opt := range opts {
		opt(options)
	}

	emitter := options.emitter
	if emitter == nil {
		emitter = NewEventEmitter(options.eventBufSize)
	}
	pause := options.pause
	if pause == nil {
		pause = NewPauseController()
	}

	maxSemantic := options.semanticCfg.MaxConcurrent
	if maxSemantic < 1 {
		maxSemantic = 1
	}

	return &Orchestrator{
		store:       req.Store,
		truth:       req.Truth,
		detector:    req.Detector,
		router:      req.Router,
		reviewer:    options.reviewer,
		semanticCfg: options.semanticCfg,
		workflowCfg: options.workflowCfg,
		emitter:     emitter,
		pause:       pause,
		semanticSem: semaphore.NewWeighted(int64(maxSemantic)),
	}
}

// Events returns the orchestrator's event stream.
func (o *Orchestrator) Events() <-chan WorkflowEvent {
	return o.emitter.Events()
}

// Pause suspends workflow progress at the next stage boundary.
func (o *Orchestrator) Pause() { o.pause.Pause() }

// Resume resumes paused workflows.
func (o *Orchestrator) Resume() { o.pause.Resume() }

// Stop permanently stops workflow progress.
func (o *Orchestrator) Stop() { o.pause.Stop() }

// semanticEnabled reports whether the semantic stage should run at all.
func (o *Orchestrator) semanticEnabled() bool {
	return o.semanticCfg.Enabled && o.reviewer != nil
}

// NewWorkflow creates and persists a workflow record for a request.
func (o *Orchestrator) NewWorkflow(req Request) (*models.WorkflowState, error) {
	now := time.Now().UTC()
	ws := &models.WorkflowState{
		ID:              uuid.New().String()[:8],
		Family:          req.Family,
		ValidationTypes: req.ValidationTypes,
		Stage:           models.StageCreated,
		Status:          models.StatusCreated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := o.store.CreateWorkflow(ws); err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}
	return ws, nil
}

// Validate runs one workflow end to end and returns the final result.
func (o *Orchestrator) Validate(ctx context.Context, req Request) (*models.ValidationResult, error) {
	ws, err := o.NewWorkflow(req)
	if err != nil {
		return nil, err
	}
	return o.Run(ctx, ws, req)
}

// ResumeWorkflow continues a workflow from its newest valid checkpoint,
// skipping stages that already completed. With no valid checkpoint the
// workflow restarts from the beginning. Retry counters carry over.
func (o *Orchestrator) ResumeWorkflow(ctx context.Context, workflowID string, req Request) (*models.ValidationResult, error) {
	ws, err := loadResumeState(o.store, workflowID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		ws, err = o.store.GetWorkflow(workflowID)
		if err != nil {
			return nil, err
		}
		log.Printf("[orchestrator] workflow %s: no valid checkpoint, restarting from the beginning", workflowID)
		ws.Stage = models.StageCreated
		ws.Partial = models.PartialResults{}
	}
	if ws.Status.Terminal() {
		return nil, fmt.Errorf("workflow %s already %s", workflowID, ws.Status)
	}

	ws.Status = models.StatusRunning
	o.persist(ws)
	o.emit(WorkflowEvent{Type: EventWorkflowResumed, WorkflowID: ws.ID, Family: ws.Family, Stage: ws.Stage})
	return o.Run(ctx, ws, req)
}

// Run drives the workflow state machine to a terminal state. Stage
// transitions are strictly sequential; cancellation and pause are observed
// only at stage boundaries.
func (o *Orchestrator) Run(ctx context.Context, ws *models.WorkflowState, req Request) (*models.ValidationResult, error) {
	var lastCheckpoint time.Time

	for {
		if err := o.stageBoundary(ctx, ws, &lastCheckpoint); err != nil {
			return nil, err
		}

		switch ws.Stage {
		case models.StageCreated:
			ws.Status = models.StatusRunning
			o.enterStage(ws, models.StageRunningHeuristic)

		case models.StageRunningHeuristic:
			if ws.Partial.Heuristic == nil {
				out, err := o.runHeuristicWithRetry(ctx, ws, req, &lastCheckpoint)
				if err != nil {
					return nil, o.fail(ws, err)
				}
				ws.Partial.Heuristic = out
			}
			o.emit(WorkflowEvent{Type: EventStageCompleted, WorkflowID: ws.ID, Family: ws.Family, Stage: ws.Stage})

			next := models.StageGating
			if o.semanticEnabled() {
				next = models.StageRunningSemantic
			}
			o.enterStage(ws, next)
			o.saveCheckpoint(ws, &lastCheckpoint)

		case models.StageRunningSemantic:
			// A resumed workflow can land here on an orchestrator whose
			// semantic stage is off (no reviewer after a restart). Treat it
			// as unavailable and gate on the heuristic result alone.
			if ws.Partial.Review == nil && o.semanticEnabled() {
				review, err := o.runSemanticWithRetry(ctx, ws, req, &lastCheckpoint)
				if err != nil {
					return nil, o.fail(ws, err)
				}
				ws.Partial.Review = review
			}
			o.emit(WorkflowEvent{Type: EventStageCompleted, WorkflowID: ws.ID, Family: ws.Family, Stage: ws.Stage})
			o.enterStage(ws, models.StageGating)
			o.saveCheckpoint(ws, &lastCheckpoint)

		case models.StageGating:
			final := applyGating(ws.Partial.Heuristic, ws.Partial.Review, o.semanticCfg)
			ws.Partial.Final = final
			ws.Stage = models.StageCompleted
			ws.Status = models.StatusCompleted
			o.persist(ws)

			if _, err := o.store.SaveResult(final, ws); err != nil {
				log.Printf("[orchestrator] workflow %s: save result: %v", ws.ID, err)
			}
			o.emit(WorkflowEvent{Type: EventWorkflowCompleted, WorkflowID: ws.ID, Family: ws.Family, Stage: models.StageCompleted})
			log.Printf("[orchestrator] workflow %s completed: %d issues, confidence %.2f",
				ws.ID, len(final.Issues), final.Confidence)
			return final, nil

		default:
			return nil, o.fail(ws, fmt.Errorf("workflow in unexpected stage %q", ws.Stage))
		}
	}
}

// enterStage advances the state machine and persists the transition.
func (o *Orchestrator) enterStage(ws *models.WorkflowState, stage models.Stage) {
	ws.Stage = stage
	o.persist(ws)
	o.emit(WorkflowEvent{Type: EventStageStarted, WorkflowID: ws.ID, Family: ws.Family, Stage: stage})
}

// stageBoundary is the cooperative suspension point between stages: it
// observes cancellation and pause requests. In-flight stage work is never
// forcibly killed; a cancelled workflow discards its partial results here.
func (o *Orchestrator) stageBoundary(ctx context.Context, ws *models.WorkflowState, lastCheckpoint *time.Time) error {
	if ctx.Err() != nil || o.pause.IsStopped() {
		return o.cancelWorkflow(ws)
	}

	if o.pause.IsPaused() {
		o.saveCheckpoint(ws, lastCheckpoint)
		ws.Status = models.StatusPaused
		o.persist(ws)
		o.emit(WorkflowEvent{Type: EventWorkflowPaused, WorkflowID: ws.ID, Family: ws.Family, Stage: ws.Stage})

		if err := o.pause.WaitIfPaused(ctx); err != nil {
			return o.cancelWorkflow(ws)
		}

		ws.Status = models.StatusRunning
		o.persist(ws)
		o.emit(WorkflowEvent{Type: EventWorkflowResumed, WorkflowID: ws.ID, Family: ws.Family, Stage: ws.Stage})
	}
	return nil
}

// cancelWorkflow records the cancellation and returns ErrCancelled.
func (o *Orchestrator) cancelWorkflow(ws *models.WorkflowState) error {
	ws.Status = models.StatusCancelled
	o.persist(ws)
	o.emit(WorkflowEvent{Type: EventWorkflowCancelled, WorkflowID: ws.ID, Family: ws.Family, Stage: ws.Stage})
	log.Printf("[orchestrator] workflow %s cancelled at stage %s", ws.ID, ws.Stage)
	return fmt.Errorf("workflow %s: %w", ws.ID, ErrCancelled)
}

// fail moves the workflow to FAILED with a recorded reason.
func (o *Orchestrator) fail(ws *models.WorkflowState, cause error) error {
	failedStage := ws.Stage
	ws.Stage = models.StageFailed
	ws.Status = models.StatusFailed
	ws.FailureReason = fmt.Sprintf("stage %s: %v", failedStage, cause)
	o.persist(ws)
	o.emit(WorkflowEvent{Type: EventWorkflowFailed, WorkflowID: ws.ID, Family: ws.Family, Stage: models.StageFailed, Error: cause})
	log.Printf("[orchestrator] workflow %s failed: %v", ws.ID, cause)

	return &WorkflowFailedError{
		WorkflowID: ws.ID,
		Stage:      failedStage,
		Reason:     ws.FailureReason,
		Err:        cause,
	}
}

// runHeuristicWithRetry runs the heuristic stage under the retry policy.
func (o *Orchestrator) runHeuristicWithRetry(ctx context.Context, ws *models.WorkflowState, req Request, lastCheckpoint *time.Time) (*models.HeuristicOutput, error) {
	var out *models.HeuristicOutput
	err := o.withRetry(ctx, ws, lastCheckpoint, func(stageCtx context.Context) error {
		var err error
		out, err = o.runHeuristic(stageCtx, ws, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// runHeuristic runs the fuzzy detector and the validator router
// concurrently and joins on both. The two calls are independent of each
// other's output.
func (o *Orchestrator) runHeuristic(ctx context.Context, ws *models.WorkflowState, req Request) (*models.HeuristicOutput, error) {
	var (
		ix         *truth.Index
		detections []models.Detection
		routed     router.Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ix, err = o.truth.Load(ws.Family)
		if err != nil {
			return err
		}
		detections = o.detector.Detect(req.Content, ix)
		return nil
	})
	g.Go(func() error {
		routed = o.router.Execute(gctx, ws.ValidationTypes, req.Content, router.Context{
			Family: ws.Family,
			Path:   req.Path,
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	issues := routed.Issues
	issues = append(issues, combinationIssues(ix, detections)...)

	return &models.HeuristicOutput{
		Detections: detections,
		Results:    routed.Results,
		Issues:     issues,
		Confidence: heuristicConfidence(ws.ValidationTypes, routed.Results),
	}, nil
}

// combinationIssues checks the detected plugin set against the family's
// combination rules and reports each violation as an issue.
func combinationIssues(ix *truth.Index, detections []models.Detection) []models.ValidationIssue {
	if len(detections) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var pluginIDs []string
	for _, d := range detections {
		if !seen[d.PluginID] {
			seen[d.PluginID] = true
			pluginIDs = append(pluginIDs, d.PluginID)
		}
	}

	check := ix.CheckCombination(pluginIDs)
	if check.Allowed {
		return nil
	}

	issues := make([]models.ValidationIssue, 0, len(check.Violations))
	for _, v := range check.Violations {
		issues = append(issues, models.ValidationIssue{
			Level:    models.SeverityError,
			Category: "plugin_combination",
			Message:  v.Message,
			Source:   "detector",
		})
	}
	return issues
}

// heuristicConfidence combines per-validator confidences into the stage
// confidence: the mean over serviced validation types, in request order.
// With nothing serviced the stage is trivially confident.
func heuristicConfidence(types []string, results map[string]models.ValidationResult) float64 {
	total := 0.0
	n := 0
	for _, t := range types {
		if r, ok := results[t]; ok {
			total += r.Confidence
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return total / float64(n)
}

// runSemanticWithRetry runs the semantic review under the review
// concurrency cap and the retry policy. An unavailable reviewer is not a
// failure: it yields a nil review, and gating falls back to the heuristic
// result exactly.
func (o *Orchestrator) runSemanticWithRetry(ctx context.Context, ws *models.WorkflowState, req Request, lastCheckpoint *time.Time) (*models.ReviewOutcome, error) {
	var review *models.ReviewOutcome
	err := o.withRetry(ctx, ws, lastCheckpoint, func(stageCtx context.Context) error {
		callCtx := stageCtx
		var cancel context.CancelFunc
		if o.semanticCfg.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(stageCtx, o.semanticCfg.Timeout)
			defer cancel()
		}

		if err := o.semanticSem.Acquire(callCtx, 1); err != nil {
			return err
		}
		defer o.semanticSem.Release(1)

		outcome, err := o.reviewer.Review(callCtx, req.Content, ws.Partial.Heuristic.Issues)
		if err != nil {
			return err
		}
		review = outcome
		return nil
	})
	if err != nil {
		if errors.Is(err, semantic.ErrUnavailable) {
			log.Printf("[orchestrator] workflow %s: semantic reviewer unavailable, using heuristic result", ws.ID)
			return nil, nil
		}
		return nil, err
	}
	return review, nil
}

// withRetry applies the stage timeout and the exponential-backoff retry
// policy. The workflow's retry counter is the budget: it carries across
// stages and across checkpoint/resume, so retries are never silently
// reset.
func (o *Orchestrator) withRetry(ctx context.Context, ws *models.WorkflowState, lastCheckpoint *time.Time, fn func(context.Context) error) error {
	for {
		stageCtx := ctx
		var cancel context.CancelFunc
		if o.workflowCfg.StageTimeout > 0 {
			stageCtx, cancel = context.WithTimeout(ctx, o.workflowCfg.StageTimeout)
		}
		err := fn(stageCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}
		if errors.Is(err, semantic.ErrUnavailable) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isTransient(err) {
			return err
		}

		if ws.RetryCount+1 >= o.workflowCfg.MaxAttempts {
			return &RetryBudgetExhaustedError{
				Stage:    ws.Stage,
				Attempts: ws.RetryCount + 1,
				LastErr:  err,
			}
		}

		ws.RetryCount++
		o.persist(ws)
		o.maybeCheckpoint(ws, lastCheckpoint)

		delay := backoffDelay(ws.RetryCount-1, o.workflowCfg.BackoffBase, o.workflowCfg.BackoffMax)
		o.emit(WorkflowEvent{
			Type:       EventRetryScheduled,
			WorkflowID: ws.ID,
			Family:     ws.Family,
			Stage:      ws.Stage,
			Message:    fmt.Sprintf("retrying in %s", delay),
			Error:      err,
			RetryCount: ws.RetryCount,
		})
		log.Printf("[orchestrator] workflow %s: stage %s failed (%v), retry %d/%d in %s",
			ws.ID, ws.Stage, err, ws.RetryCount, o.workflowCfg.MaxAttempts-1, delay)

		if err := sleepContext(ctx, delay); err != nil {
			return err
		}
	}
}

// saveCheckpoint writes a checkpoint unconditionally (stage boundaries and
// pauses always checkpoint).
func (o *Orchestrator) saveCheckpoint(ws *models.WorkflowState, lastCheckpoint *time.Time) {
	cp, err := buildCheckpoint(ws)
	if err != nil {
		log.Printf("[orchestrator] workflow %s: build checkpoint: %v", ws.ID, err)
		return
	}
	if err := o.store.SaveCheckpoint(cp); err != nil {
		log.Printf("[orchestrator] workflow %s: save checkpoint: %v", ws.ID, err)
		return
	}
	*lastCheckpoint = time.Now()
	o.emit(WorkflowEvent{Type: EventCheckpointSaved, WorkflowID: ws.ID, Family: ws.Family, Stage: ws.Stage})
}

// maybeCheckpoint writes a periodic checkpoint if the configured interval
// has elapsed since the previous one. Used for intra-stage progress such
// as retry-counter updates.
func (o *Orchestrator) maybeCheckpoint(ws *models.WorkflowState, lastCheckpoint *time.Time) {
	interval := o.workflowCfg.CheckpointInterval
	if interval > 0 && !lastCheckpoint.IsZero() && time.Since(*lastCheckpoint) < interval {
		return
	}
	o.saveCheckpoint(ws, lastCheckpoint)
}

// persist updates the stored workflow record, logging on failure. Losing
// an intermediate update is tolerable; checkpoints carry recovery state.
func (o *Orchestrator) persist(ws *models.WorkflowState) {
	ws.UpdatedAt = time.Now().UTC()
	if err := o.store.UpdateWorkflow(ws); err != nil {
		log.Printf("[orchestrator] workflow %s: update state: %v", ws.ID, err)
	}
}

// emit forwards an event with the timestamp filled in.
func (o *Orchestrator) emit(event WorkflowEvent) {
	event.Timestamp = time.Now()
	o.emitter.Emit(event)
}
