package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"stationflow/internal/action"
)

// AnthropicClient implements action.ChatClient over the Anthropic
// Messages API.
type AnthropicClient struct {
	client anthropic.Client
}

func NewAnthropicClient(apiKey string, opts ...option.RequestOption) *AnthropicClient {
	allOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicClient{client: anthropic.NewClient(allOpts...)}
}

const defaultMaxTokens = 4096

func (c *AnthropicClient) Chat(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic message: %w", err)
	}
	return messageText(msg), nil
}

// ChatWithTools runs one or more turns of tool calling against Claude's
// tool-use protocol, executing requested tools via invoke until the
// model stops requesting them or the call budget is exhausted.
func (c *AnthropicClient) ChatWithTools(ctx context.Context, model, systemPrompt, userPrompt string, tools []action.ToolSpec, invoke action.ToolInvokeFunc) (string, error) {
	const toolCallBudget = 8

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
		Tools: convertAnthropicTools(tools),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	for round := 0; round < toolCallBudget; round++ {
		msg, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("anthropic message: %w", err)
		}

		var toolUses []anthropic.ToolUseBlock
		for _, block := range msg.Content {
			if tu := block.AsToolUse(); tu.ID != "" {
				toolUses = append(toolUses, tu)
			}
		}
		if len(toolUses) == 0 {
			return messageText(msg), nil
		}

		params.Messages = append(params.Messages, msg.ToParam())
		var results []anthropic.ContentBlockParamUnion
		for _, tu := range toolUses {
			var args map[string]interface{}
			if err := json.Unmarshal(tu.Input, &args); err != nil {
				return "", fmt.Errorf("decode tool use arguments for %q: %w", tu.Name, err)
			}
			result, err := invoke(ctx, tu.Name, args)
			results = append(results, anthropic.NewToolResultBlock(tu.ID, toolResultText(result, err), err != nil))
		}
		params.Messages = append(params.Messages, anthropic.NewUserMessage(results...))
	}
	return "", fmt.Errorf("exceeded tool-call budget of %d rounds", toolCallBudget)
}

func messageText(msg *anthropic.Message) string {
	var out string
	for _, block := range msg.Content {
		if tb := block.AsText(); tb.Text != "" {
			out += tb.Text
		}
	}
	return out
}

func convertAnthropicTools(tools []action.ToolSpec) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := anthropic.ToolInputSchemaParam{}
		if len(t.InputSchema) > 0 {
			_ = json.Unmarshal(t.InputSchema, &schema.Properties)
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schema,
			},
		})
	}
	return out
}
