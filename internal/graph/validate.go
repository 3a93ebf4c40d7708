package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingStart is returned when start_step_id is empty.
	ErrMissingStart = errors.New("start_step_id is required")
	// ErrUnknownStep is returned when an edge or start_step_id names a
	// step that does not exist and is not END.
	ErrUnknownStep = errors.New("references unknown step")
	// ErrDuplicateName reports a workflow name collision. The store does
	// not return it: a save under an existing name updates that workflow.
	ErrDuplicateName = errors.New("workflow name must be unique")
	// ErrSuspendInLoop is returned when a human_input/file_ingestion/
	// file_storage step is reachable through a loop body without an
	// intervening end_loop. Loop bodies resume synchronously in memory,
	// so any suspension inside one would require serializing mid-loop
	// progress, which is disallowed instead.
	ErrSuspendInLoop = errors.New("suspending steps are not allowed inside a loop body")
)

// Validate checks that start_step_id is present
// and either END or an existing step; every edge target is END or an
// existing step; no suspending step is reachable from within a loop
// body.
func Validate(wf *Workflow) error {
	if wf.StartStepID == "" {
		return ErrMissingStart
	}
	if wf.StartStepID != End {
		if _, ok := wf.Steps[wf.StartStepID]; !ok {
			return fmt.Errorf("%w: start_step_id %q", ErrUnknownStep, wf.StartStepID)
		}
	}

	for id, step := range wf.Steps {
		for _, target := range stepTargets(step) {
			if target == End || target == "" {
				continue
			}
			if _, ok := wf.Steps[target]; !ok {
				return fmt.Errorf("%w: step %q targets %q", ErrUnknownStep, id, target)
			}
		}
	}

	return validateNoSuspendInLoop(wf)
}

func stepTargets(step Step) []string {
	targets := []string{step.EffectiveOnSuccess()}
	if step.OnFailure != "" {
		targets = append(targets, step.OnFailure)
	}
	if step.ActionType == ActionStartLoop {
		targets = append(targets, step.LoopBodyStartStepID)
	}
	for _, t := range step.Routes {
		targets = append(targets, t)
	}
	return targets
}

// validateNoSuspendInLoop walks every start_loop body (from
// loop_body_start_step_id until the matching end_loop, following
// on_success, on_failure and route edges and nested loop bodies) and
// fails if a suspending step is found. The start_loop's own on_success
// (post-loop) edge is not walked.
func validateNoSuspendInLoop(wf *Workflow) error {
	for id, step := range wf.Steps {
		if step.ActionType != ActionStartLoop {
			continue
		}
		visited := map[string]bool{}
		stack := []string{step.LoopBodyStartStepID}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if cur == "" || cur == End || visited[cur] {
				continue
			}
			visited[cur] = true
			body, ok := wf.Steps[cur]
			if !ok {
				continue
			}
			switch body.ActionType {
			case ActionHumanInput, ActionFileIngestion, ActionFileStorage:
				return fmt.Errorf("%w: step %q inside loop %q", ErrSuspendInLoop, cur, id)
			case ActionEndLoop:
				// Loop body ends here; do not walk past it.
				continue
			}
			stack = append(stack, body.EffectiveOnSuccess())
			if body.OnFailure != "" {
				stack = append(stack, body.OnFailure)
			}
			if body.ActionType == ActionStartLoop {
				stack = append(stack, body.LoopBodyStartStepID)
			}
			for _, t := range body.Routes {
				stack = append(stack, t)
			}
		}
	}
	return nil
}
