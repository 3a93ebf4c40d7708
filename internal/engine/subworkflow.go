package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"stationflow/internal/action"
	"stationflow/internal/graph"
	"stationflow/internal/template"
)

// callSubWorkflow implements workflow_call: it loads the target
// workflow, builds a child envelope from input_mappings resolved against
// the parent's state, and drives the child to completion synchronously.
// The child's final_response is written back under the parent step's
// output_key. loopStack belongs to the parent and is untouched: a
// workflow_call made from inside a loop body does not itself open a new
// loop frame.
func (e *Engine) callSubWorkflow(ctx context.Context, env *Envelope, step graph.Step, loopStack []loopFrame) (string, *Outcome) {
	targetWF, err := e.workflows.GetWorkflow(ctx, step.TargetWorkflowID)
	if err != nil {
		return "", e.fail(ctx, env, fmt.Errorf("%w: workflow_call %q: target workflow %d: %v", ErrStepNotFound, step.StepID, step.TargetWorkflowID, err))
	}

	childInput, err := template.JSONObject(env, step.InputMappings)
	if err != nil {
		return "", e.fail(ctx, env, fmt.Errorf("%w: workflow_call %q: %v", action.ErrTemplateError, step.StepID, err))
	}

	childID := fmt.Sprintf("%s/%s", env.ExecutionID, uuid.NewString())
	childEnv := NewEnvelope(childID, targetWF.ID, env.QueryText, childInput, targetWF.StartStepID)

	e.events.PublishExecutionEvent(ctx, childID, "execution.started", map[string]interface{}{"workflow_id": targetWF.ID, "parent_execution_id": env.ExecutionID})
	childOutcome := e.drive(ctx, targetWF, childEnv, nil)

	switch childOutcome.Status {
	case OutcomeSuspended:
		return "", e.fail(ctx, env, fmt.Errorf("%w: workflow_call %q", ErrNestedSuspension, step.StepID))
	case OutcomeFailed:
		env.appendHistory(HistoryEntry{StepID: step.StepID, Kind: "result", Success: false, Error: errString(childOutcome.Err)})
		if step.OnFailure == "" {
			return "", e.fail(ctx, env, childOutcome.Err)
		}
		return step.OnFailure, nil
	}

	if step.OutputKey != "" {
		env.SetInput(step.OutputKey, childOutcome.FinalResponse)
	}
	env.appendHistory(HistoryEntry{StepID: step.StepID, Kind: "result", Success: true, Output: childOutcome.FinalResponse})
	if step.EffectiveOnSuccess() == graph.End {
		env.SetFinalResponse(childOutcome.FinalResponse)
	}
	return step.EffectiveOnSuccess(), nil
}
