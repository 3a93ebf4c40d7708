// Package llm implements the ChatClient/Embedder/Reranker adapters the
// engine's handlers depend on, over the OpenAI and Anthropic SDKs.
// model_name selects the provider: an Anthropic model identifier (the
// "claude-" prefix) routes to the Anthropic adapter, everything else to
// OpenAI.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"stationflow/internal/action"
)

// OpenAIClient implements action.ChatClient and action.Embedder over the
// OpenAI chat-completions and embeddings APIs.
type OpenAIClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey string, opts ...option.RequestOption) *OpenAIClient {
	allOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIClient{client: openai.NewClient(allOpts...)}
}

func (c *OpenAIClient) Chat(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	messages := chatMessages(systemPrompt, userPrompt)
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: no choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}

// ChatWithTools runs one or more turns of tool calling: it hands the
// model the tool catalog, executes whichever tools the model requests
// via invoke, feeds the results back, and repeats until the model
// answers without requesting a tool or toolCallBudget is exhausted.
func (c *OpenAIClient) ChatWithTools(ctx context.Context, model, systemPrompt, userPrompt string, tools []action.ToolSpec, invoke action.ToolInvokeFunc) (string, error) {
	const toolCallBudget = 8

	messages := chatMessages(systemPrompt, userPrompt)
	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
		Tools:    convertTools(tools),
	}

	for round := 0; round < toolCallBudget; round++ {
		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("openai chat completion: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("openai chat completion: no choices returned")
		}
		choice := completion.Choices[0]
		if len(choice.Message.ToolCalls) == 0 {
			return choice.Message.Content, nil
		}

		params.Messages = append(params.Messages, choice.Message.ToParam())
		for _, call := range choice.Message.ToolCalls {
			var args map[string]interface{}
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return "", fmt.Errorf("decode tool call arguments for %q: %w", call.Function.Name, err)
			}
			result, err := invoke(ctx, call.Function.Name, args)
			resultText := toolResultText(result, err)
			params.Messages = append(params.Messages, openai.ToolMessage(resultText, call.ID))
		}
	}
	return "", fmt.Errorf("exceeded tool-call budget of %d rounds", toolCallBudget)
}

func (c *OpenAIClient) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: model,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			vec[j] = float32(f)
		}
		out[i] = vec
	}
	return out, nil
}

func chatMessages(systemPrompt, userPrompt string) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))
	return messages
}

func convertTools(tools []action.ToolSpec) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		parameters := map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
		if len(t.InputSchema) > 0 {
			var schema map[string]interface{}
			if err := json.Unmarshal(t.InputSchema, &schema); err == nil {
				parameters = schema
			}
		}
		out = append(out, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  parameters,
			},
		})
	}
	return out
}

func toolResultText(result interface{}, err error) string {
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	b, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(b)
}
