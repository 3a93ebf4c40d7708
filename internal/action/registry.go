package action

import "stationflow/internal/graph"

// Deps collects every collaborator a default registry's handlers need.
// start_loop, end_loop and workflow_call are deliberately absent: the
// engine special-cases those three action types itself and never
// consults the registry for them.
type Deps struct {
	Chat     ChatClient
	Tools    ToolRegistry
	HTTP     HTTPDoer
	SQLData  SQLDataStore
	Vector   VectorStore
	Reranker Reranker
}

// NewDefaultRegistry wires one handler per action_type the registry is
// responsible for, using deps for everything that calls out.
func NewDefaultRegistry(deps Deps) *Registry {
	r := NewRegistry()
	r.Register(graph.ActionHumanInput, NewHumanInputHandler())
	r.Register(graph.ActionFileIngestion, NewFileIngestionHandler())
	r.Register(graph.ActionFileStorage, NewFileStorageHandler())
	r.Register(graph.ActionLLMResponse, NewLLMResponseHandler(deps.Chat))
	r.Register(graph.ActionConditionCheck, NewConditionCheckHandler(deps.Chat))
	r.Register(graph.ActionAgenticToolUse, NewAgenticToolUseHandler(deps.Chat, deps.Tools))
	r.Register(graph.ActionDirectToolCall, NewDirectToolCallHandler(deps.Tools))
	r.Register(graph.ActionIntelligentRouter, NewIntelligentRouterHandler(deps.Chat))
	r.Register(graph.ActionHTTPRequest, NewHTTPRequestHandler(deps.HTTP))
	r.Register(graph.ActionDatabaseSave, NewDatabaseSaveHandler(deps.SQLData))
	r.Register(graph.ActionDatabaseQuery, NewDatabaseQueryHandler(deps.SQLData))
	r.Register(graph.ActionVectorDBIngestion, NewVectorDBIngestionHandler(deps.Vector))
	r.Register(graph.ActionVectorDBQuery, NewVectorDBQueryHandler(deps.Vector))
	r.Register(graph.ActionCrossEncoderRerank, NewCrossEncoderRerankHandler(deps.Reranker))
	r.Register(graph.ActionDisplayMessage, NewDisplayMessageHandler())
	return r
}
