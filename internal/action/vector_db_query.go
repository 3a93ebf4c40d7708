package action

import (
	"context"
	"fmt"

	"stationflow/internal/graph"
	"stationflow/internal/template"
)

const defaultTopK = 5

// VectorDBQueryHandler embeds the resolved prompt_template and returns
// the top_k nearest chunks from collection_name.
type VectorDBQueryHandler struct {
	store VectorStore
}

func NewVectorDBQueryHandler(store VectorStore) *VectorDBQueryHandler {
	return &VectorDBQueryHandler{store: store}
}

func (h *VectorDBQueryHandler) Execute(ctx context.Context, step graph.Step, env Envelope) Result {
	if step.CollectionName == "" {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: vector_db_query %q: collection_name is required", ErrConfigurationError, step.StepID)}
	}
	queryText := template.StringValue(env, step.PromptTemplate)

	topK := step.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	matches, err := h.store.Query(ctx, step.CollectionName, step.EmbeddingModel, queryText, topK)
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: vector_db_query %q: %v", ErrExternalService, step.StepID, err)}
	}
	return Result{Status: StatusComplete, Output: matches}
}
