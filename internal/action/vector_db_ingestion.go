package action

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"stationflow/internal/graph"
	"stationflow/internal/template"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 100
)

// VectorDBIngestionHandler splits the resolved prompt_template content
// into overlapping chunks and embeds each into collection_name.
type VectorDBIngestionHandler struct {
	store VectorStore
}

func NewVectorDBIngestionHandler(store VectorStore) *VectorDBIngestionHandler {
	return &VectorDBIngestionHandler{store: store}
}

func (h *VectorDBIngestionHandler) Execute(ctx context.Context, step graph.Step, env Envelope) Result {
	if step.CollectionName == "" {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: vector_db_ingestion %q: collection_name is required", ErrConfigurationError, step.StepID)}
	}

	content := template.StringValue(env, step.PromptTemplate)
	if content == "" {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: vector_db_ingestion %q: prompt_template resolved empty", ErrConfigurationError, step.StepID)}
	}

	size := step.ChunkSize
	if size <= 0 {
		size = defaultChunkSize
	}
	overlap := step.ChunkOverlap
	if overlap < 0 || overlap >= size {
		overlap = defaultChunkOverlap
	}

	chunks := chunkText(content, size, overlap)
	docs := make([]VectorDocument, len(chunks))
	for i, c := range chunks {
		docs[i] = VectorDocument{ID: uuid.NewString(), Text: c}
	}

	if err := h.store.Ingest(ctx, step.CollectionName, step.EmbeddingModel, docs); err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: vector_db_ingestion %q: %v", ErrExternalService, step.StepID, err)}
	}
	return Result{Status: StatusComplete, Output: map[string]interface{}{"chunks_ingested": len(docs)}}
}

// chunkText splits s into overlapping rune windows of size with the
// given overlap between consecutive chunks.
func chunkText(s string, size, overlap int) []string {
	runes := []rune(s)
	if len(runes) <= size {
		return []string{s}
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
