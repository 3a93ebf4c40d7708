package engine

import "errors"

var (
	// ErrStepNotFound is returned when a workflow references a step id
	// that does not exist in its Steps map at run time (should have been
	// caught by graph.Validate, but the driver checks again defensively
	// since a workflow loaded from storage may have been edited out of
	// band).
	ErrStepNotFound = errors.New("engine: step not found")
	// ErrNoMatchingWorkflow is returned when FindByTrigger finds no
	// workflow whose triggers contain the requested trigger string.
	ErrNoMatchingWorkflow = errors.New("engine: no workflow matches trigger")
	// ErrStateCorruption is returned when a paused execution_state row
	// fails to deserialise into a valid Envelope, or points at a step id
	// the owning workflow no longer has.
	ErrStateCorruption = errors.New("engine: execution state is corrupt")
	// ErrLoopMisuse is returned when an end_loop step is reached without
	// an enclosing start_loop frame, or a start_loop's input_collection
	// variable does not resolve to a list.
	ErrLoopMisuse = errors.New("engine: loop construct used incorrectly")
	// ErrAlreadyRunning guards the single-writer-per-execution invariant:
	// Resume refuses to run against an execution id that is not
	// currently paused.
	ErrAlreadyRunning = errors.New("engine: execution is not paused")
	// ErrMaxStepsExceeded bounds a single driver-loop invocation so a
	// misconfigured cyclic graph (one with no loop construct, just a
	// plain on_success cycle) cannot run forever within one call.
	ErrMaxStepsExceeded = errors.New("engine: step budget exceeded for this execution")
	// ErrRouting is returned when an intelligent_router step's chosen
	// route key is not present in its routes map and it has no
	// on_failure fallback.
	ErrRouting = errors.New("engine: no matching route")
	// ErrNestedSuspension is returned when a workflow_call's target graph
	// hits a suspending step. Sub-workflow calls run synchronously to
	// completion inside the parent's workflow_call step (with a step
	// budget of their own), so they cannot durably pause independent of
	// the parent execution.
	ErrNestedSuspension = errors.New("engine: called workflow suspended; sub-workflows must run to completion")
)

// maxStepsPerRun caps the number of steps a single Run/Resume call may
// execute before suspension or completion. It exists to bound runaway
// cyclic graphs, not to limit legitimate long workflows: every body step
// counts once per iteration and start_loop runs once per item plus once
// more to exit, so a 10-item loop whose body is 3 steps (end_loop
// included) is 41 steps, well under this.
const maxStepsPerRun = 10000
