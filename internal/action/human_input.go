package action

import (
	"context"

	"stationflow/internal/graph"
	"stationflow/internal/template"
)

// HumanInputHandler always suspends: the driver loop persists the
// envelope and returns prompt_template (resolved) as the note the caller
// surfaces to the human. Resume supplies the answer under output_key.
type HumanInputHandler struct{}

func NewHumanInputHandler() *HumanInputHandler { return &HumanInputHandler{} }

func (h *HumanInputHandler) Execute(_ context.Context, step graph.Step, env Envelope) Result {
	return Result{
		Status:      StatusSuspended,
		SuspendNote: template.StringValue(env, step.PromptTemplate),
	}
}
