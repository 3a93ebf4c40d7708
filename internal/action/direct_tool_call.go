package action

import (
	"context"
	"fmt"

	"stationflow/internal/graph"
	"stationflow/internal/template"
)

// DirectToolCallHandler invokes exactly one named tool with arguments
// resolved from data_template, bypassing the model entirely.
type DirectToolCallHandler struct {
	tools ToolRegistry
}

func NewDirectToolCallHandler(tools ToolRegistry) *DirectToolCallHandler {
	return &DirectToolCallHandler{tools: tools}
}

func (h *DirectToolCallHandler) Execute(ctx context.Context, step graph.Step, env Envelope) Result {
	if step.TargetToolName == "" {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: direct_tool_call %q: target_tool_name is required", ErrConfigurationError, step.StepID)}
	}

	args, err := template.JSONObject(env, step.DataTemplate)
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: direct_tool_call %q: %v", ErrTemplateError, step.StepID, err)}
	}

	out, err := h.tools.Invoke(ctx, step.TargetToolName, args)
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: direct_tool_call %q: %v", ErrExternalService, step.StepID, err)}
	}
	return Result{Status: StatusComplete, Output: out}
}
