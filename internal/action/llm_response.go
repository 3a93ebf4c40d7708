package action

import (
	"context"
	"fmt"

	"stationflow/internal/graph"
	"stationflow/internal/template"
)

// LLMResponseHandler resolves prompt_template against the envelope and
// sends it to model_name, returning the raw completion as output.
type LLMResponseHandler struct {
	chat ChatClient
}

func NewLLMResponseHandler(chat ChatClient) *LLMResponseHandler {
	return &LLMResponseHandler{chat: chat}
}

func (h *LLMResponseHandler) Execute(ctx context.Context, step graph.Step, env Envelope) Result {
	if step.ModelName == "" {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: llm_response %q: model_name is required", ErrConfigurationError, step.StepID)}
	}
	prompt := template.StringValue(env, step.PromptTemplate)

	resp, err := h.chat.Chat(ctx, step.ModelName, "", prompt)
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: llm_response %q: %v", ErrExternalService, step.StepID, err)}
	}
	return Result{Status: StatusComplete, Output: resp}
}
