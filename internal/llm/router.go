package llm

import (
	"context"
	"fmt"
	"strings"

	"stationflow/internal/action"
)

// Router dispatches Chat/ChatWithTools calls to the Anthropic adapter
// for model names it recognises as Claude models and to OpenAI for
// everything else, so a single ChatClient can serve every llm_response,
// condition_check, agentic_tool_use, and intelligent_router step in a
// workflow regardless of which provider each model_name belongs to.
type Router struct {
	openai    *OpenAIClient
	anthropic *AnthropicClient
}

func NewRouter(openaiClient *OpenAIClient, anthropicClient *AnthropicClient) *Router {
	return &Router{openai: openaiClient, anthropic: anthropicClient}
}

func (r *Router) pick(model string) (action.ChatClient, error) {
	if strings.HasPrefix(model, "claude") {
		if r.anthropic == nil {
			return nil, fmt.Errorf("model %q requires an anthropic client, none configured", model)
		}
		return r.anthropic, nil
	}
	if r.openai == nil {
		return nil, fmt.Errorf("model %q requires an openai client, none configured", model)
	}
	return r.openai, nil
}

func (r *Router) Chat(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	client, err := r.pick(model)
	if err != nil {
		return "", err
	}
	return client.Chat(ctx, model, systemPrompt, userPrompt)
}

func (r *Router) ChatWithTools(ctx context.Context, model, systemPrompt, userPrompt string, tools []action.ToolSpec, invoke action.ToolInvokeFunc) (string, error) {
	client, err := r.pick(model)
	if err != nil {
		return "", err
	}
	return client.ChatWithTools(ctx, model, systemPrompt, userPrompt, tools, invoke)
}
