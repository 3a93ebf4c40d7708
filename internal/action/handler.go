// Package action implements the per-action_type handlers the execution
// engine dispatches to, and the registry that resolves a graph.ActionType
// to its Handler.
package action

import (
	"context"
	"errors"

	"stationflow/internal/graph"
)

var (
	// ErrHandlerNotFound is returned by a Registry when no handler is
	// registered for a step's action_type.
	ErrHandlerNotFound = errors.New("action: no handler registered for action_type")
	// ErrConfigurationError is returned when a step's own fields are
	// insufficient to execute it (missing target_tool_name, empty
	// url_template, and similar author mistakes that validation at save
	// time did not catch).
	ErrConfigurationError = errors.New("action: step is misconfigured")
	// ErrTemplateError is returned when a template field fails to
	// resolve into the shape its handler requires (e.g. a body_template
	// that doesn't resolve to a JSON object).
	ErrTemplateError = errors.New("action: template resolution failed")
	// ErrExternalService wraps a failure from a call this handler made
	// out of process (HTTP, LLM, vector store, tool invocation).
	ErrExternalService = errors.New("action: external service call failed")
)

// Status is the outcome a handler reports back to the driver loop.
type Status string

const (
	// StatusComplete means the step produced output and the loop should
	// continue to on_success.
	StatusComplete Status = "complete"
	// StatusFailed means the step failed and the loop should continue to
	// on_failure (or abort the execution if on_failure is empty).
	StatusFailed Status = "failed"
	// StatusSuspended means the step cannot complete synchronously
	// (human_input, file_ingestion, file_storage) and the engine must
	// persist the envelope and return control to the caller.
	StatusSuspended Status = "suspended"
)

// Result is what every Handler returns. Output is stored under the
// step's output_key when non-empty and Status is StatusComplete.
type Result struct {
	Status       Status
	Output       interface{}
	Err          error
	SuspendNote  string // human-facing prompt surfaced on StatusSuspended
	RouteOverride string // intelligent_router: the chosen route label (a key of step.Routes)
}

// Envelope is the read/write view of execution state a handler is given.
// internal/engine.Envelope satisfies it; handlers never see the full
// engine so they cannot bypass the driver loop's routing decisions.
type Envelope interface {
	Query() string
	ContextValue(key string) (interface{}, bool)
	InputValue(key string) (interface{}, bool)
	StateValue(key string) (interface{}, bool)
	SetInput(key string, value interface{})
	FinalResponse() string
	SetFinalResponse(string)
}

// Handler implements one action_type's contract: a typed step in, a
// Result out, nothing else touched.
type Handler interface {
	Execute(ctx context.Context, step graph.Step, env Envelope) Result
}

// Registry resolves an action_type to its Handler.
type Registry struct {
	handlers map[graph.ActionType]Handler
}

// NewRegistry builds an empty registry; call Register for every
// action_type before handing it to the engine.
func NewRegistry() *Registry {
	return &Registry{handlers: map[graph.ActionType]Handler{}}
}

// Register binds a Handler to an action_type, replacing any prior
// registration for that type.
func (r *Registry) Register(t graph.ActionType, h Handler) {
	r.handlers[t] = h
}

// Resolve returns the Handler for t, or ErrHandlerNotFound.
func (r *Registry) Resolve(t graph.ActionType) (Handler, error) {
	h, ok := r.handlers[t]
	if !ok {
		return nil, errors.Join(ErrHandlerNotFound, errors.New(string(t)))
	}
	return h, nil
}
