package action

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"stationflow/internal/graph"
	"stationflow/internal/template"
)

var finalAnswerRe = regexp.MustCompile(`(?is)<final_answer>\s*(TRUE|FALSE)\s*</final_answer>`)

const conditionCheckSystemPrompt = `You evaluate a yes/no condition about the conversation so far. ` +
	`Respond with your reasoning, then end with exactly one line: ` +
	`<final_answer>true</final_answer> or <final_answer>false</final_answer>.`

// ConditionCheckHandler asks the model to judge a natural-language
// condition and routes to on_success (true) or on_failure (false).
type ConditionCheckHandler struct {
	chat ChatClient
}

func NewConditionCheckHandler(chat ChatClient) *ConditionCheckHandler {
	return &ConditionCheckHandler{chat: chat}
}

func (h *ConditionCheckHandler) Execute(ctx context.Context, step graph.Step, env Envelope) Result {
	model := step.ModelName
	if model == "" {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: condition_check %q: model_name is required", ErrConfigurationError, step.StepID)}
	}
	prompt := template.StringValue(env, step.PromptTemplate)

	resp, err := h.chat.Chat(ctx, model, conditionCheckSystemPrompt, prompt)
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: condition_check %q: %v", ErrExternalService, step.StepID, err)}
	}

	verdict := parseCondition(resp)
	if verdict {
		return Result{Status: StatusComplete, Output: verdict}
	}
	return Result{Status: StatusFailed, Output: verdict, Err: nil}
}

// parseCondition prefers the <final_answer> tag. Whenever the tag is
// absent, or present with content other than exactly true/false, it
// falls back to a case-insensitive substring search for "true" over
// the whole response rather than treating the response as unparseable.
func parseCondition(resp string) bool {
	if m := finalAnswerRe.FindStringSubmatch(resp); m != nil {
		return strings.EqualFold(m[1], "true")
	}
	return strings.Contains(strings.ToUpper(resp), "TRUE")
}
