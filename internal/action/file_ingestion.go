package action

import (
	"context"

	"stationflow/internal/graph"
	"stationflow/internal/template"
)

// FileIngestionHandler suspends, handing the caller the accepted file
// types/count so it can render an upload form. Resume supplies the
// ingested content (already parsed into text/structured form by the
// caller) under output_key.
type FileIngestionHandler struct{}

func NewFileIngestionHandler() *FileIngestionHandler { return &FileIngestionHandler{} }

func (h *FileIngestionHandler) Execute(_ context.Context, step graph.Step, env Envelope) Result {
	return Result{
		Status:      StatusSuspended,
		SuspendNote: template.StringValue(env, step.PromptTemplate),
		Output: map[string]interface{}{
			"allowed_file_types": step.AllowedFileTypes,
			"max_files":          step.MaxFiles,
		},
	}
}
