package action

import (
	"context"

	"stationflow/internal/graph"
	"stationflow/internal/template"
)

// DisplayMessageHandler resolves prompt_template to a string and returns
// it verbatim; it never calls out. Typically the last step before END,
// where its output becomes the execution's final_response.
type DisplayMessageHandler struct{}

func NewDisplayMessageHandler() *DisplayMessageHandler { return &DisplayMessageHandler{} }

func (h *DisplayMessageHandler) Execute(_ context.Context, step graph.Step, env Envelope) Result {
	return Result{Status: StatusComplete, Output: template.StringValue(env, step.PromptTemplate)}
}
