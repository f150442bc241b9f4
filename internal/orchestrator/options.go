package orchestrator

import (
	"github.com/veridoc/veridoc/internal/config"
	"github.com/veridoc/veridoc/internal/detect"
	"github.com/veridoc/veridoc/internal/router"
	"github.com/veridoc/veridoc/internal/semantic"
	"github.com/veridoc/veridoc/internal/state"
	"github.com/veridoc/veridoc/internal/truth"
)

// RequiredConfig contains the minimal required dependencies for an
// Orchestrator. All fields are required and have no defaults.
type RequiredConfig struct {
	// Store persists workflows, results, and checkpoints.
	Store state.Store
	// Truth serves per-family truth indexes.
	Truth *truth.Cache
	// Detector is the fuzzy plugin detector.
	Detector *detect.Detector
	// Router dispatches validation types to validators.
	Router *router.Router
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

// orchestratorOptions holds all optional configuration.
type orchestratorOptions struct {
	reviewer     semantic.Reviewer
	semanticCfg  config.SemanticConfig
	workflowCfg  config.WorkflowConfig
	emitter      *EventEmitter
	pause        *PauseController
	eventBufSize int
}

// WithReviewer sets the semantic reviewer. Without one the semantic stage
// behaves as disabled.
func WithReviewer(r semantic.Reviewer) Option {
	return func(o *orchestratorOptions) { o.reviewer = r }
}

// WithSemanticConfig sets semantic-stage thresholds and weights.
func WithSemanticConfig(cfg config.SemanticConfig) Option {
	return func(o *orchestratorOptions) { o.semanticCfg = cfg }
}

// WithWorkflowConfig sets scheduling, timeout, and retry parameters.
func WithWorkflowConfig(cfg config.WorkflowConfig) Option {
	return func(o *orchestratorOptions) { o.workflowCfg = cfg }
}

// WithEmitter sets a shared event emitter, letting several orchestrators
// feed one subscriber.
func WithEmitter(e *EventEmitter) Option {
	return func(o *orchestratorOptions) { o.emitter = e }
}

// WithPauseController sets a shared pause controller.
func WithPauseController(p *PauseController) Option {
	return func(o *orchestratorOptions) { o.pause = p }
}

// WithEventBuffer sets the emitter buffer size when no emitter is shared.
func WithEventBuffer(n int) Option {
	return func(o *orchestratorOptions) { o.eventBufSize = n }
}
