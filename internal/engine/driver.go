package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stationflow/internal/action"
	"stationflow/internal/graph"
)

// OutcomeStatus is the terminal state of a Run/Resume call.
type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeSuspended OutcomeStatus = "suspended"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Outcome is returned by Run and Resume.
type Outcome struct {
	ExecutionID     string
	Status          OutcomeStatus
	FinalResponse   string
	SuspendedStepID string
	SuspendNote     string
	SuspendMeta     interface{}
	Err             error
}

// Engine drives workflows to completion, one step at a time, persisting
// and returning control at every suspension point.
type Engine struct {
	registry     *action.Registry
	workflows    WorkflowLookup
	store        ExecutionStore
	events       EventPublisher
	telemetry    *Telemetry
	summaryChat  action.ChatClient
	summaryModel string
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithEvents wires a best-effort execution event sink.
func WithEvents(p EventPublisher) Option {
	return func(e *Engine) { e.events = p }
}

// WithTelemetry wires otel span creation. Pass nil (the default) to run
// without tracing.
func WithTelemetry(t *Telemetry) Option {
	return func(e *Engine) { e.telemetry = t }
}

// WithSummaryClient wires the model the engine falls back to when a
// workflow reaches END without a step ever having set final_response:
// complete() asks chat to summarize the query and step_history into a
// user-facing response. Without this option, that fallback leaves
// final_response empty.
func WithSummaryClient(chat action.ChatClient, model string) Option {
	return func(e *Engine) {
		e.summaryChat = chat
		e.summaryModel = model
	}
}

// NewEngine builds an Engine. registry, workflows and store are required;
// events/telemetry default to no-ops.
func NewEngine(registry *action.Registry, workflows WorkflowLookup, store ExecutionStore, opts ...Option) *Engine {
	e := &Engine{
		registry:  registry,
		workflows: workflows,
		store:     store,
		events:    noopEvents{},
	}
	for _, o := range opts {
		o(e)
	}
	if e.events == nil {
		e.events = noopEvents{}
	}
	return e
}

// Run starts a fresh execution of wf from its start_step_id.
func (e *Engine) Run(ctx context.Context, executionID string, wf *graph.Workflow, query string, initialContext map[string]interface{}) *Outcome {
	env := NewEnvelope(executionID, wf.ID, query, initialContext, wf.StartStepID)
	ctx = e.telemetry.startRun(ctx, executionID, wf)
	e.events.PublishExecutionEvent(ctx, executionID, "execution.started", map[string]interface{}{"workflow_id": wf.ID})

	outcome := e.drive(ctx, wf, env, nil)
	e.telemetry.endRun(executionID, string(outcome.Status), outcome.Err)
	return outcome
}

// Resume continues a previously suspended execution with the value the
// caller supplied for the step that paused it (human answer, ingested
// file descriptor, or stored-file reference).
func (e *Engine) Resume(ctx context.Context, executionID string, resumeValue interface{}) *Outcome {
	env, pendingStepID, err := e.store.LoadPaused(ctx, executionID)
	if err != nil {
		return &Outcome{ExecutionID: executionID, Status: OutcomeFailed, Err: err}
	}

	wf, err := e.workflows.GetWorkflow(ctx, env.WorkflowID)
	if err != nil {
		return &Outcome{ExecutionID: executionID, Status: OutcomeFailed, Err: fmt.Errorf("%w: %v", ErrStateCorruption, err)}
	}
	step, ok := wf.Steps[pendingStepID]
	if !ok {
		return &Outcome{ExecutionID: executionID, Status: OutcomeFailed, Err: fmt.Errorf("%w: pending step %q no longer exists", ErrStateCorruption, pendingStepID)}
	}

	if step.OutputKey != "" {
		env.SetInput(step.OutputKey, resumeValue)
	}
	env.appendHistory(HistoryEntry{StepID: pendingStepID, Kind: "resume", Success: true, Output: resumeValue})
	env.CurrentStepID = step.EffectiveOnSuccess()

	// The paused row is cleared up front; if the path suspends again
	// before reaching END, suspend() re-creates it under the same key.
	if err := e.store.DeletePaused(ctx, executionID); err != nil {
		return &Outcome{ExecutionID: executionID, Status: OutcomeFailed, Err: fmt.Errorf("%w: %v", ErrStateCorruption, err)}
	}

	ctx = e.telemetry.startRun(ctx, executionID, wf)
	e.events.PublishExecutionEvent(ctx, executionID, "execution.resumed", map[string]interface{}{"step_id": pendingStepID})

	outcome := e.drive(ctx, wf, env, nil)
	e.telemetry.endRun(executionID, string(outcome.Status), outcome.Err)
	return outcome
}

// loopFrame is the in-memory-only bookkeeping for one active start_loop.
// It never survives a suspension: graph.Validate forbids suspending
// steps inside a loop body precisely so this stack never needs to be
// durable.
type loopFrame struct {
	startStepID string
	endStepID   string
}

// drive runs the step-by-step interpreter until the path reaches END, a
// handler reports StatusSuspended, or a handler/routing error aborts the
// execution. loopStack holds the frames of the loops this drive has
// entered; every caller (Run, Resume and a workflow_call's child drive)
// starts it as nil.
func (e *Engine) drive(ctx context.Context, wf *graph.Workflow, env *Envelope, loopStack []loopFrame) *Outcome {
	stepID := env.CurrentStepID

	for steps := 0; ; steps++ {
		if steps >= maxStepsPerRun {
			return e.fail(ctx, env, fmt.Errorf("%w: execution %s", ErrMaxStepsExceeded, env.ExecutionID))
		}
		if stepID == "" || stepID == graph.End {
			return e.complete(ctx, env)
		}

		step, ok := wf.Steps[stepID]
		if !ok {
			return e.fail(ctx, env, fmt.Errorf("%w: %q", ErrStepNotFound, stepID))
		}
		env.CurrentStepID = stepID

		next, outcome := e.step(ctx, wf, env, step, &loopStack)
		if outcome != nil {
			return outcome
		}
		stepID = next
	}
}

// step executes exactly one step, including the loop-construct special
// cases, and returns the next step id to run, or a non-nil Outcome if
// the driver loop should stop (suspend/complete/fail).
func (e *Engine) step(ctx context.Context, wf *graph.Workflow, env *Envelope, step graph.Step, loopStack *[]loopFrame) (string, *Outcome) {
	switch step.ActionType {
	case graph.ActionStartLoop:
		return e.enterLoop(ctx, wf, env, step, loopStack)
	case graph.ActionEndLoop:
		return e.exitLoop(ctx, env, step, loopStack)
	case graph.ActionWorkflowCall:
		return e.callSubWorkflow(ctx, env, step, *loopStack)
	}

	handler, err := e.registry.Resolve(step.ActionType)
	if err != nil {
		return "", e.fail(ctx, env, err)
	}

	spanCtx, span := e.telemetry.startStep(ctx, env.ExecutionID, step)
	start := time.Now()
	result := handler.Execute(spanCtx, step, env)
	endStep(span, string(result.Status), time.Since(start), result.Err)

	switch result.Status {
	case action.StatusSuspended:
		return "", e.suspend(ctx, env, step, result)
	case action.StatusFailed:
		env.appendHistory(HistoryEntry{StepID: step.StepID, Kind: "result", Success: false, Error: errString(result.Err)})
		if step.OnFailure == "" {
			err := result.Err
			if err == nil {
				err = fmt.Errorf("step %q produced a failure outcome with no on_failure target", step.StepID)
			}
			return "", e.fail(ctx, env, err)
		}
		return step.OnFailure, nil
	}

	if step.OutputKey != "" {
		env.SetInput(step.OutputKey, result.Output)
	}
	env.appendHistory(HistoryEntry{StepID: step.StepID, Kind: "result", Success: true, Output: result.Output})

	if step.ActionType == graph.ActionIntelligentRouter {
		return e.route(ctx, env, step, result)
	}

	// The final_response surfaced to the caller is whichever terminal
	// step's output ran last; display_message and llm_response both
	// produce a plain string output, which is the common case.
	if step.EffectiveOnSuccess() == graph.End {
		if s, ok := result.Output.(string); ok {
			env.SetFinalResponse(s)
		}
	}

	return step.EffectiveOnSuccess(), nil
}

func (e *Engine) route(ctx context.Context, env *Envelope, step graph.Step, result action.Result) (string, *Outcome) {
	target, ok := step.Routes[result.RouteOverride]
	if !ok {
		if step.OnFailure != "" {
			return step.OnFailure, nil
		}
		o := e.fail(ctx, env, fmt.Errorf("%w: step %q has no route %q", ErrRouting, step.StepID, result.RouteOverride))
		return "", o
	}
	return target, nil
}

func (e *Engine) suspend(ctx context.Context, env *Envelope, step graph.Step, result action.Result) *Outcome {
	env.appendHistory(HistoryEntry{StepID: step.StepID, Kind: "pause"})
	if err := e.store.SavePaused(ctx, env, step.StepID); err != nil {
		return e.fail(ctx, env, fmt.Errorf("%w: %v", ErrStateCorruption, err))
	}
	e.events.PublishExecutionEvent(ctx, env.ExecutionID, "execution.suspended", map[string]interface{}{"step_id": step.StepID})
	return &Outcome{
		ExecutionID:     env.ExecutionID,
		Status:          OutcomeSuspended,
		SuspendedStepID: step.StepID,
		SuspendNote:     result.SuspendNote,
		SuspendMeta:     result.Output,
	}
}

const summaryFinalResponseSystemPrompt = "You write a final, user-facing reply that summarizes a workflow run for the person who asked for it."

// complete finalizes an execution. When the path reached END without any
// step ever setting final_response (e.g. it ended on an http_request,
// database_save, or condition_check step rather than an llm_response or
// display_message), it synthesizes one from the query and step_history
// rather than returning an empty response.
func (e *Engine) complete(ctx context.Context, env *Envelope) *Outcome {
	if env.FinalResponse() == "" {
		env.SetFinalResponse(e.synthesizeFinalResponse(ctx, env))
	}
	e.events.PublishExecutionEvent(ctx, env.ExecutionID, "execution.completed", nil)
	return &Outcome{ExecutionID: env.ExecutionID, Status: OutcomeCompleted, FinalResponse: env.FinalResponse()}
}

func (e *Engine) synthesizeFinalResponse(ctx context.Context, env *Envelope) string {
	if e.summaryChat == nil {
		return ""
	}
	history, err := json.MarshalIndent(env.StepHistory, "", "  ")
	if err != nil {
		return ""
	}
	prompt := fmt.Sprintf(
		"Based on the user's query and the actions taken, provide a concise and helpful final summary.\n\n"+
			"User query: %s\n\nExecution history:\n---\n%s\n---",
		env.QueryText, string(history),
	)
	resp, err := e.summaryChat.Chat(ctx, e.summaryModel, summaryFinalResponseSystemPrompt, prompt)
	if err != nil {
		return fmt.Sprintf("The workflow finished, but an error occurred while generating the final response: %v", err)
	}
	return resp
}

func (e *Engine) fail(ctx context.Context, env *Envelope, err error) *Outcome {
	e.events.PublishExecutionEvent(ctx, env.ExecutionID, "execution.failed", map[string]interface{}{"error": errString(err)})
	return &Outcome{ExecutionID: env.ExecutionID, Status: OutcomeFailed, Err: err}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
