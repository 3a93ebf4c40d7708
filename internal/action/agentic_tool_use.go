package action

import (
	"context"
	"fmt"

	"stationflow/internal/graph"
	"stationflow/internal/template"
)

const agenticSystemPrompt = "You may call any of the provided tools as needed to answer the request, then give your final answer as plain text."

// AgenticToolUseHandler lets the model decide which, if any, of the
// selected tools to call (tool_selection: auto/manual/none) before
// producing a final answer.
type AgenticToolUseHandler struct {
	chat  ChatClient
	tools ToolRegistry
}

func NewAgenticToolUseHandler(chat ChatClient, tools ToolRegistry) *AgenticToolUseHandler {
	return &AgenticToolUseHandler{chat: chat, tools: tools}
}

func (h *AgenticToolUseHandler) Execute(ctx context.Context, step graph.Step, env Envelope) Result {
	if step.ModelName == "" {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: agentic_tool_use %q: model_name is required", ErrConfigurationError, step.StepID)}
	}

	selection := step.ToolSelection
	if selection == "" {
		selection = graph.ToolSelectionAuto
	}

	var specs []ToolSpec
	if selection != graph.ToolSelectionNone {
		var err error
		specs, err = h.tools.List(selection, step.ToolNames)
		if err != nil {
			return Result{Status: StatusFailed, Err: fmt.Errorf("%w: agentic_tool_use %q: %v", ErrConfigurationError, step.StepID, err)}
		}
	}

	prompt := template.StringValue(env, step.PromptTemplate)
	resp, err := h.chat.ChatWithTools(ctx, step.ModelName, agenticSystemPrompt, prompt, specs, h.tools.Invoke)
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: agentic_tool_use %q: %v", ErrExternalService, step.StepID, err)}
	}
	return Result{Status: StatusComplete, Output: resp}
}
