package main

import (
	"database/sql"
	"net/http"
	"path/filepath"

	"github.com/spf13/afero"

	"stationflow/internal/action"
	"stationflow/internal/config"
	"stationflow/internal/engine"
	"stationflow/internal/llm"
	"stationflow/internal/sqldata"
	"stationflow/internal/store"
	"stationflow/internal/tools"
	"stationflow/internal/vector"
)

// app bundles every wired component a subcommand needs: repositories and
// services are built once and handed to whichever subcommand runs.
type app struct {
	cfg         *config.EngineConfig
	db          *sql.DB
	workflows   *store.WorkflowStore
	executions  *store.ExecutionStore
	toolsReg    *tools.Registry
	vectorStore *vector.Store
	sqlData     *sqldata.Store
	files       *store.FileStore
	chat        *llm.Router
	engine      *engine.Engine
	events      *engine.NATSEvents
}

// build wires every package this module ships into one running
// instance. A missing LLM API key is not fatal: workflows that never
// reach an llm_response/condition_check/agentic_tool_use/
// intelligent_router step still run fine without one.
func build(cfg *config.EngineConfig) (*app, error) {
	conn, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(conn); err != nil {
		return nil, err
	}

	workflows := store.NewWorkflowStore(conn)
	executions := store.NewExecutionStore(conn)

	toolsReg := tools.NewRegistry()
	sqlData := sqldata.New(conn, store.WriteMutex())
	vectorStore := vector.New(afero.NewOsFs(), cfg.VectorDir, nil)
	files := store.NewFileStore(afero.NewOsFs(), filepath.Join(filepath.Dir(cfg.DatabaseURL), "uploads"))

	var openaiClient *llm.OpenAIClient
	if cfg.OpenAIAPIKey != "" {
		openaiClient = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	}
	var anthropicClient *llm.AnthropicClient
	if cfg.AnthropicAPIKey != "" {
		anthropicClient = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	}
	router := llm.NewRouter(openaiClient, anthropicClient)

	if openaiClient != nil {
		vectorStore = vector.New(afero.NewOsFs(), cfg.VectorDir, openaiClient)
	}

	var reranker *llm.EmbeddingReranker
	if openaiClient != nil {
		reranker = llm.NewEmbeddingReranker(openaiClient, "text-embedding-3-small")
	}

	registry := action.NewDefaultRegistry(action.Deps{
		Chat:     router,
		Tools:    toolsReg,
		HTTP:     http.DefaultClient,
		SQLData:  sqlData,
		Vector:   vectorStore,
		Reranker: reranker,
	})

	events, err := engine.NewNATSEvents(engine.NATSEventOptions{
		Enabled:       cfg.NATS.Enabled,
		Embedded:      cfg.NATS.Embedded,
		URL:           cfg.NATS.URL,
		Stream:        cfg.NATS.Stream,
		SubjectPrefix: cfg.NATS.SubjectPrefix,
	})
	if err != nil {
		return nil, err
	}

	var telemetry *engine.Telemetry
	if cfg.Telemetry.Enabled {
		telemetry = engine.NewTelemetry()
	}

	opts := []engine.Option{engine.WithTelemetry(telemetry), engine.WithSummaryClient(router, cfg.DefaultModel)}
	if events != nil {
		opts = append(opts, engine.WithEvents(events))
	}
	eng := engine.NewEngine(registry, workflows, executions, opts...)

	return &app{
		cfg:         cfg,
		db:          conn,
		workflows:   workflows,
		executions:  executions,
		toolsReg:    toolsReg,
		vectorStore: vectorStore,
		sqlData:     sqlData,
		files:       files,
		chat:        router,
		engine:      eng,
		events:      events,
	}, nil
}

func (a *app) Close() {
	a.events.Close()
	a.db.Close()
}
