package action

import (
	"context"

	"stationflow/internal/graph"
)

// ChatClient is the narrow surface llm_response and agentic_tool_use
// need from a language model. internal/llm's adapter implements it,
// selecting OpenAI or Anthropic by model name.
type ChatClient interface {
	Chat(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
	// ChatWithTools runs a whole tool-calling exchange: the model may
	// respond with a final answer or a list of tool invocations, which the
	// implementation makes through invoke and feeds back, repeating until
	// the model stops requesting tools or its call budget is hit.
	ChatWithTools(ctx context.Context, model, systemPrompt, userPrompt string, tools []ToolSpec, invoke ToolInvokeFunc) (string, error)
}

// ToolInvokeFunc is handed to ChatWithTools so the llm package can call
// back into the tool registry without importing internal/tools.
type ToolInvokeFunc func(ctx context.Context, name string, args map[string]interface{}) (interface{}, error)

// Embedder is the narrow surface vector_db_ingestion/vector_db_query need.
type Embedder interface {
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// Reranker is the surface cross_encoder_rerank needs.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]RerankedDocument, error)
}

// RerankedDocument is one reranked candidate, ordered best-first.
type RerankedDocument struct {
	Index int
	Text  string
	Score float64
}

// ToolSpec describes one callable tool to a model or a direct_tool_call
// handler: its name, description, and JSON Schema for arguments.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema []byte // raw JSON Schema
}

// ToolRegistry is the surface agentic_tool_use/direct_tool_call need
// from the Tool Registry (internal/tools).
type ToolRegistry interface {
	// List returns the callable tools visible to a step, filtered by
	// selection/names per the agentic_tool_use tool_selection field.
	List(selection graph.ToolSelection, names []string) ([]ToolSpec, error)
	// Invoke calls one named tool directly (direct_tool_call, and the
	// callback agentic_tool_use hands to ChatWithTools).
	Invoke(ctx context.Context, name string, args map[string]interface{}) (interface{}, error)
}

// VectorDocument is one chunk ingested into a collection.
type VectorDocument struct {
	ID       string
	Text     string
	Metadata map[string]interface{}
}

// VectorMatch is one retrieved chunk with its similarity score.
type VectorMatch struct {
	ID       string
	Text     string
	Score    float64
	Metadata map[string]interface{}
}

// VectorStore is the surface vector_db_ingestion/vector_db_query need
// from the Vector Store Adapter (internal/vector).
type VectorStore interface {
	Ingest(ctx context.Context, collection, embeddingModel string, docs []VectorDocument) error
	Query(ctx context.Context, collection, embeddingModel, queryText string, topK int) ([]VectorMatch, error)
}

// SQLDataStore is the surface database_save/database_query need from the
// Structured Data Store (internal/sqldata).
type SQLDataStore interface {
	Save(ctx context.Context, table string, primaryKeyColumns []string, row map[string]interface{}) error
	Query(ctx context.Context, sqlText string, params []interface{}) ([]map[string]interface{}, error)
}

// FileStore is the surface file_storage needs: persisting an uploaded
// blob and handing back a reference the rest of the graph can use
// (stored under the step's output_key).
type FileStore interface {
	Save(ctx context.Context, storagePath string, filename string, data []byte) (string, error)
}
