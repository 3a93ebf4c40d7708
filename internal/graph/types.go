// Package graph implements the workflow graph model: typed steps, edge
// semantics, and conversion from an authoring-graph shape into the
// canonical Workflow the execution engine drives.
package graph

import (
	"encoding/json"
	"time"
)

// End is the sentinel edge target that terminates a path. It is never a
// step id.
const End = "END"

// ActionType selects which handler a Step dispatches to.
type ActionType string

const (
	ActionHumanInput         ActionType = "human_input"
	ActionFileIngestion      ActionType = "file_ingestion"
	ActionFileStorage        ActionType = "file_storage"
	ActionLLMResponse        ActionType = "llm_response"
	ActionConditionCheck     ActionType = "condition_check"
	ActionAgenticToolUse     ActionType = "agentic_tool_use"
	ActionDirectToolCall     ActionType = "direct_tool_call"
	ActionIntelligentRouter  ActionType = "intelligent_router"
	ActionHTTPRequest        ActionType = "http_request"
	ActionDatabaseSave       ActionType = "database_save"
	ActionDatabaseQuery      ActionType = "database_query"
	ActionVectorDBIngestion  ActionType = "vector_db_ingestion"
	ActionVectorDBQuery      ActionType = "vector_db_query"
	ActionCrossEncoderRerank ActionType = "cross_encoder_rerank"
	ActionWorkflowCall       ActionType = "workflow_call"
	ActionDisplayMessage     ActionType = "display_message"
	ActionStartLoop          ActionType = "start_loop"
	ActionEndLoop            ActionType = "end_loop"
)

// ToolSelection is the tool-exposure mode for agentic_tool_use steps.
type ToolSelection string

const (
	ToolSelectionAuto   ToolSelection = "auto"
	ToolSelectionManual ToolSelection = "manual"
	ToolSelectionNone   ToolSelection = "none"
)

// Step is a single node of a Workflow. Every step carries the common
// fields plus the fields relevant to its ActionType; fields unused by a
// given ActionType are left zero-valued.
type Step struct {
	StepID      string     `json:"step_id"`
	Description string     `json:"description,omitempty"`
	ActionType  ActionType `json:"action_type"`
	OnSuccess   string     `json:"on_success,omitempty"`
	OnFailure   string     `json:"on_failure,omitempty"`
	OutputKey   string     `json:"output_key,omitempty"`

	// human_input / file_ingestion / file_storage
	PromptTemplate   string   `json:"prompt_template,omitempty"`
	AllowedFileTypes []string `json:"allowed_file_types,omitempty"`
	MaxFiles         int      `json:"max_files,omitempty"`
	StoragePath      string   `json:"storage_path,omitempty"`

	// llm_response
	ModelName string `json:"model_name,omitempty"`

	// agentic_tool_use
	ToolSelection ToolSelection `json:"tool_selection,omitempty"`
	ToolNames     []string      `json:"tool_names,omitempty"`

	// direct_tool_call, database_save (the row/argument payload template)
	TargetToolName string          `json:"target_tool_name,omitempty"`
	DataTemplate   json.RawMessage `json:"data_template,omitempty"`

	// intelligent_router
	Routes map[string]string `json:"routes,omitempty"`

	// http_request
	HTTPMethod      string          `json:"http_method,omitempty"`
	URLTemplate     string          `json:"url_template,omitempty"`
	HeadersTemplate json.RawMessage `json:"headers_template,omitempty"`
	BodyTemplate    json.RawMessage `json:"body_template,omitempty"`

	// database_save
	TableName         string   `json:"table_name,omitempty"`
	PrimaryKeyColumns []string `json:"primary_key_columns,omitempty"`

	// database_query
	QueryTemplate string `json:"query_template,omitempty"`

	// vector_db_ingestion / vector_db_query
	CollectionName string `json:"collection_name,omitempty"`
	ChunkSize      int    `json:"chunk_size,omitempty"`
	ChunkOverlap   int    `json:"chunk_overlap,omitempty"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
	TopK           int    `json:"top_k,omitempty"`

	// cross_encoder_rerank
	RerankTopN int `json:"rerank_top_n,omitempty"`

	// workflow_call
	TargetWorkflowID int64           `json:"target_workflow_id,omitempty"`
	InputMappings    json.RawMessage `json:"input_mappings,omitempty"`

	// start_loop
	InputCollectionVariable string `json:"input_collection_variable,omitempty"`
	CurrentItemOutputKey    string `json:"current_item_output_key,omitempty"`
	LoopBodyStartStepID     string `json:"loop_body_start_step_id,omitempty"`

	// end_loop
	ValueToReturn string `json:"value_to_return,omitempty"`
}

// EffectiveOnSuccess returns on_success, defaulting to END when unset.
func (s Step) EffectiveOnSuccess() string {
	if s.OnSuccess == "" {
		return End
	}
	return s.OnSuccess
}

// Workflow is a directed graph of steps plus metadata.
type Workflow struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Owner         string          `json:"owner"`
	Triggers      []string        `json:"triggers"`
	StartStepID   string          `json:"start_step_id"`
	Steps         map[string]Step `json:"steps"`
	RawDefinition json.RawMessage `json:"raw_definition"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Summary is the condensed listing shape returned by ListWorkflows.
type Summary struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Triggers    []string `json:"triggers"`
}

// ToSummary projects a Workflow down to its listing summary.
func (w *Workflow) ToSummary() Summary {
	return Summary{ID: w.ID, Name: w.Name, Description: w.Description, Triggers: w.Triggers}
}
