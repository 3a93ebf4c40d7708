package engine

import (
	"context"
	"fmt"

	"stationflow/internal/graph"
	"stationflow/internal/template"
)

// enterLoop resolves a start_loop step's input collection and either
// enters the body with the first item bound, or (empty collection) skips
// straight to on_success with no iterations. The per-loop scratchpad
// (index/collection/results) lives only in the envelope's
// CollectedInputs for the duration of the loop and is removed on exit.
func (e *Engine) enterLoop(ctx context.Context, wf *graph.Workflow, env *Envelope, step graph.Step, loopStack *[]loopFrame) (string, *Outcome) {
	ls, active := env.getLoopState(step.StepID)
	if !active {
		raw, found := template.Resolve(env, "input."+step.InputCollectionVariable)
		if !found {
			raw, found = template.Resolve(env, "context."+step.InputCollectionVariable)
		}
		if !found {
			return "", e.fail(ctx, env, fmt.Errorf("%w: start_loop %q: collection variable %q not set", ErrLoopMisuse, step.StepID, step.InputCollectionVariable))
		}
		collection, err := toSlice(raw)
		if err != nil {
			return "", e.fail(ctx, env, fmt.Errorf("%w: start_loop %q: %v", ErrLoopMisuse, step.StepID, err))
		}
		ls = &LoopState{Collection: collection, Index: 0, Results: []interface{}{}}
		env.setLoopState(step.StepID, ls)
	}

	endStepID, ok := findEndLoop(wf, step)
	if !ok {
		return "", e.fail(ctx, env, fmt.Errorf("%w: start_loop %q has no reachable end_loop", ErrLoopMisuse, step.StepID))
	}

	if ls.Index >= len(ls.Collection) {
		finalOutput := ls.Results
		env.deleteLoopState(step.StepID)
		if step.OutputKey != "" {
			env.SetInput(step.OutputKey, finalOutput)
		}
		env.appendHistory(HistoryEntry{StepID: step.StepID, Kind: "result", Success: true, Output: finalOutput})
		return step.EffectiveOnSuccess(), nil
	}

	*loopStack = append(*loopStack, loopFrame{startStepID: step.StepID, endStepID: endStepID})
	if step.CurrentItemOutputKey != "" {
		env.SetInput(step.CurrentItemOutputKey, ls.Collection[ls.Index])
	}
	return step.LoopBodyStartStepID, nil
}

// exitLoop records the current iteration's produced value (if any) and
// loops the driver back to the owning start_loop for the next item.
func (e *Engine) exitLoop(ctx context.Context, env *Envelope, step graph.Step, loopStack *[]loopFrame) (string, *Outcome) {
	n := len(*loopStack)
	if n == 0 {
		return "", e.fail(ctx, env, fmt.Errorf("%w: end_loop %q reached with no active loop", ErrLoopMisuse, step.StepID))
	}
	frame := (*loopStack)[n-1]
	*loopStack = (*loopStack)[:n-1]

	ls, ok := env.getLoopState(frame.startStepID)
	if !ok {
		return "", e.fail(ctx, env, fmt.Errorf("%w: end_loop %q: lost loop state for %q", ErrLoopMisuse, step.StepID, frame.startStepID))
	}

	var value interface{}
	if step.ValueToReturn != "" {
		value = template.String(env, step.ValueToReturn)
	}
	ls.Results = append(ls.Results, value)
	ls.Index++
	env.setLoopState(frame.startStepID, ls)
	env.appendHistory(HistoryEntry{StepID: step.StepID, Kind: "result", Success: true, Output: value})

	return frame.startStepID, nil
}

// findEndLoop walks on_success, on_failure and route edges depth-first
// from loop_body_start_step_id until it finds the end_loop closing this
// start_loop. Branching inside a loop body (condition_check,
// intelligent_router) is expected to reconverge on the same end_loop;
// the first one the walk reaches is taken to be it.
func findEndLoop(wf *graph.Workflow, start graph.Step) (string, bool) {
	visited := map[string]bool{}
	stack := []string{start.LoopBodyStartStepID}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == "" || cur == graph.End || visited[cur] {
			continue
		}
		visited[cur] = true
		s, ok := wf.Steps[cur]
		if !ok {
			continue
		}
		if s.ActionType == graph.ActionEndLoop {
			return s.StepID, true
		}
		stack = append(stack, s.EffectiveOnSuccess())
		if s.OnFailure != "" {
			stack = append(stack, s.OnFailure)
		}
		for _, t := range s.Routes {
			stack = append(stack, t)
		}
	}
	return "", false
}

func toSlice(v interface{}) ([]interface{}, error) {
	switch t := v.(type) {
	case []interface{}:
		return t, nil
	case nil:
		return nil, fmt.Errorf("collection is unset")
	default:
		return nil, fmt.Errorf("collection value is not a list (got %T)", v)
	}
}
