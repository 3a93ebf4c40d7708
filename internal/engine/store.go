package engine

import (
	"context"

	"stationflow/internal/graph"
)

// WorkflowLookup is the read access the engine needs onto the workflow
// catalog: resolving an id (workflow_call) and resolving a trigger
// string (FindByTrigger). internal/store implements it.
type WorkflowLookup interface {
	GetWorkflow(ctx context.Context, id int64) (*graph.Workflow, error)
	FindByTrigger(ctx context.Context, trigger string) (*graph.Workflow, error)
}

// ExecutionStore is the durability boundary: every suspension persists
// the full Envelope before control returns to the caller, and Resume
// loads it back verbatim (spec's round-trip law: the envelope handed to
// a handler after resume equals the one persisted at suspension plus
// the resume value merged in).
type ExecutionStore interface {
	SavePaused(ctx context.Context, env *Envelope, pendingStepID string) error
	LoadPaused(ctx context.Context, executionID string) (env *Envelope, pendingStepID string, err error)
	DeletePaused(ctx context.Context, executionID string) error
}

// EventPublisher is a best-effort sink for execution lifecycle events
// (started, resumed, suspended, completed, failed). A nil
// EventPublisher is valid: Engine treats every method as optional.
type EventPublisher interface {
	PublishExecutionEvent(ctx context.Context, executionID string, event string, payload interface{})
}

// noopEvents is used when the caller wires no EventPublisher.
type noopEvents struct{}

func (noopEvents) PublishExecutionEvent(context.Context, string, string, interface{}) {}
