package action

import (
	"context"

	"stationflow/internal/graph"
	"stationflow/internal/template"
)

// FileStorageHandler suspends, just like FileIngestionHandler, but the
// resume value the caller supplies is a storage reference (the path or
// URL the caller's upload endpoint persisted the file to via its own
// FileStore) rather than parsed content. storage_path tells the caller
// where within its backing store to place it.
type FileStorageHandler struct{}

func NewFileStorageHandler() *FileStorageHandler { return &FileStorageHandler{} }

func (h *FileStorageHandler) Execute(_ context.Context, step graph.Step, env Envelope) Result {
	return Result{
		Status:      StatusSuspended,
		SuspendNote: template.StringValue(env, step.PromptTemplate),
		Output: map[string]interface{}{
			"allowed_file_types": step.AllowedFileTypes,
			"max_files":          step.MaxFiles,
			"storage_path":       step.StoragePath,
		},
	}
}
