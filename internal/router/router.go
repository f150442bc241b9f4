// Package router dispatches validation types to registered validators,
// isolating per-validator failures and aggregating their findings.
package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/veridoc/veridoc/pkg/models"
)

// Context carries request-scoped metadata into validators.
type Context struct {
	// Family selects the truth-data family the content belongs to.
	Family string
	// Path is the source path of the content, when known.
	Path string
	// Metadata holds free-form key/value hints for validators.
	Metadata map[string]string
}

// Validator checks content and reports issues. Implementations must honor
// ctx cancellation; the router additionally enforces a timeout around each
// call.
type Validator interface {
	ID() string
	Validate(ctx context.Context, content string, vctx Context) (*models.ValidationResult, error)
}

// Result is the aggregate outcome of one Execute call.
type Result struct {
	// Results maps each serviced validation type to its validator's result.
	Results map[string]models.ValidationResult
	// Issues concatenates all validators' issues in requested-type order,
	// preserving each validator's internal order, plus routing warnings.
	Issues []models.ValidationIssue
}

// Router resolves validation types against a static registry with a
// monolithic fallback for types no specialized validator claims.
type Router struct {
	registry map[string]Validator
	fallback *monolithicValidator
	timeout  time.Duration
}

// New builds a Router with the builtin validators registered and the
// monolithic fallback in place. Timeout bounds each validator call.
func New(timeout time.Duration) *Router {
	r := &Router{
		registry: make(map[string]Validator),
		fallback: newMonolithicValidator(),
		timeout:  timeout,
	}
	r.Register("structure", &structureValidator{})
	r.Register("frontmatter", &frontmatterValidator{})
	r.Register("links", &linkValidator{})
	return r
}

// Register maps a validation type to a validator, replacing any previous
// registration. Must be called before Execute; the registry is static
// afterward.
func (r *Router) Register(validationType string, v Validator) {
	r.registry[validationType] = v
}

// Types returns every routable validation type, sorted.
func (r *Router) Types() []string {
	seen := make(map[string]bool)
	var types []string
	for t := range r.registry {
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	for _, t := range r.fallback.supported() {
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	sort.Strings(types)
	return types
}

// Execute runs every requested validation type and aggregates results.
// A failing, panicking or hanging validator contributes an error-level
// issue tagged with its id instead of aborting the batch; an unroutable
// type contributes a single warning. Requested order is preserved.
func (r *Router) Execute(ctx context.Context, types []string, content string, vctx Context) Result {
	out := Result{Results: make(map[string]models.ValidationResult, len(types))}

	for _, validationType := range types {
		validator := r.resolve(validationType)
		if validator == nil {
			log.Printf("[router] no validator for type %q", validationType)
			out.Issues = append(out.Issues, models.ValidationIssue{
				Level:    models.SeverityWarning,
				Category: "routing",
				Message:  fmt.Sprintf("no validator available for type %q", validationType),
				Source:   "router",
			})
			continue
		}

		result := r.invoke(ctx, validator, content, vctx)
		out.Results[validationType] = result
		out.Issues = append(out.Issues, result.Issues...)
	}

	return out
}

// resolve picks the validator for a type: a specialized registration wins,
// then the monolithic fallback if it services the type, then nothing.
func (r *Router) resolve(validationType string) Validator {
	if v, ok := r.registry[validationType]; ok {
		return v
	}
	if r.fallback.services(validationType) {
		return r.fallback.forType(validationType)
	}
	return nil
}

// invoke runs one validator under the configured timeout, converting
// panics, errors and timeouts into error-level issues.
func (r *Router) invoke(ctx context.Context, v Validator, content string, vctx Context) models.ValidationResult {
	callCtx := ctx
	var cancel context.CancelFunc
	if r.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	type outcome struct {
		result *models.ValidationResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("validator panicked: %v", rec)}
			}
		}()
		res, err := v.Validate(callCtx, content, vctx)
		done <- outcome{result: res, err: err}
	}()

	var res outcome
	select {
	case res = <-done:
		if errors.Is(res.err, context.DeadlineExceeded) {
			res.err = fmt.Errorf("%w: validator %q exceeded %s", ErrValidationTimeout, v.ID(), r.timeout)
		}
	case <-callCtx.Done():
		res = outcome{err: fmt.Errorf("%w: validator %q exceeded %s", ErrValidationTimeout, v.ID(), r.timeout)}
	}
	elapsed := time.Since(start).Milliseconds()

	if res.err != nil {
		log.Printf("[router] validator %q failed: %v", v.ID(), res.err)
		return models.ValidationResult{
			Confidence: 0,
			Issues: []models.ValidationIssue{{
				Level:    models.SeverityError,
				Category: "validator_failure",
				Message:  res.err.Error(),
				Source:   v.ID(),
			}},
			ValidatorID:     v.ID(),
			ExecutionTimeMs: elapsed,
		}
	}

	result := *res.result
	result.ValidatorID = v.ID()
	result.ExecutionTimeMs = elapsed
	return result
}
