package action

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"stationflow/internal/graph"
	"stationflow/internal/template"
)

// IntelligentRouterHandler asks the model to choose exactly one of the
// step's named routes. The chosen key is returned as RouteOverride; the
// driver loop maps it through step.routes to a step id, and falls back
// to on_failure if the model names a route that doesn't exist.
type IntelligentRouterHandler struct {
	chat ChatClient
}

func NewIntelligentRouterHandler(chat ChatClient) *IntelligentRouterHandler {
	return &IntelligentRouterHandler{chat: chat}
}

func (h *IntelligentRouterHandler) Execute(ctx context.Context, step graph.Step, env Envelope) Result {
	if step.ModelName == "" {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: intelligent_router %q: model_name is required", ErrConfigurationError, step.StepID)}
	}
	if len(step.Routes) == 0 {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: intelligent_router %q: no routes defined", ErrConfigurationError, step.StepID)}
	}

	names := make([]string, 0, len(step.Routes))
	for name := range step.Routes {
		names = append(names, name)
	}
	sort.Strings(names)

	system := fmt.Sprintf(
		"You route a request to exactly one destination. Valid destinations: %s. "+
			"Respond with only the destination name, nothing else.",
		strings.Join(names, ", "),
	)
	prompt := template.StringValue(env, step.PromptTemplate)

	resp, err := h.chat.Chat(ctx, step.ModelName, system, prompt)
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: intelligent_router %q: %v", ErrExternalService, step.StepID, err)}
	}

	chosen := matchRoute(resp, names)
	return Result{Status: StatusComplete, Output: resp, RouteOverride: chosen}
}

// matchRoute finds which candidate name appears in the model's response,
// tolerating surrounding punctuation/whitespace the model may add. If
// none match, the raw trimmed response is returned as-is so the driver's
// route lookup fails with the actual (unexpected) value for debugging.
func matchRoute(resp string, candidates []string) string {
	trimmed := strings.ToLower(strings.TrimSpace(resp))
	for _, c := range candidates {
		if trimmed == strings.ToLower(c) {
			return c
		}
	}
	for _, c := range candidates {
		if strings.Contains(trimmed, strings.ToLower(c)) {
			return c
		}
	}
	return strings.TrimSpace(resp)
}
