package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"stationflow/internal/action"
	"stationflow/internal/graph"
	"stationflow/internal/vector"

	"github.com/spf13/afero"
)

// fakeChat is a scripted ChatClient: it inspects the system prompt to
// tell which handler is calling (intelligent_router vs condition_check)
// and answers from the resolved user prompt's content, the way a real
// model would given those exact instructions, without actually calling
// out to a provider.
type fakeChat struct {
	route func(prompt string) string
}

func (f *fakeChat) Chat(_ context.Context, _, systemPrompt, userPrompt string) (string, error) {
	switch {
	case strings.Contains(systemPrompt, "route a request"):
		return f.route(userPrompt), nil
	case strings.Contains(systemPrompt, "yes/no condition"):
		if strings.Contains(userPrompt, "outage") {
			return "<final_answer>true</final_answer>", nil
		}
		return "<final_answer>false</final_answer>", nil
	default:
		return "tech", nil
	}
}

func (f *fakeChat) ChatWithTools(_ context.Context, _, _, _ string, _ []action.ToolSpec, _ action.ToolInvokeFunc) (string, error) {
	return "", nil
}

// fakeTools is a scripted ToolRegistry backing direct_tool_call steps.
type fakeTools struct {
	invoked []string
}

func (f *fakeTools) List(_ graph.ToolSelection, _ []string) ([]action.ToolSpec, error) { return nil, nil }

func (f *fakeTools) Invoke(_ context.Context, name string, args map[string]interface{}) (interface{}, error) {
	f.invoked = append(f.invoked, name)
	switch name {
	case "check_known_outages":
		service, _ := args["service"].(string)
		if strings.Contains(service, "VPN Service") {
			return "outage", nil
		}
		return "ok", nil
	case "create_ticket":
		return "IT-1042", nil
	}
	return nil, nil
}

// itSupportWorkflow triages by intelligent_router into a hardware or
// software branch; the software branch checks known outages before
// creating a ticket, mirroring the seed scenarios.
func itSupportWorkflow() *graph.Workflow {
	return &graph.Workflow{
		ID:          10,
		Name:        "it-support",
		StartStepID: "triage",
		Steps: map[string]graph.Step{
			"triage": {
				StepID:     "triage",
				ActionType: graph.ActionIntelligentRouter,
				ModelName:  "gpt-4o-mini",
				PromptTemplate: "{query}",
				Routes:     map[string]string{"hardware": "ticket_hw", "software": "check_outage"},
			},
			"ticket_hw": {
				StepID:         "ticket_hw",
				ActionType:     graph.ActionDirectToolCall,
				TargetToolName: "create_ticket",
				DataTemplate:   []byte(`{"category":"hardware","summary":"{query}","username":"{context.username}"}`),
				OutputKey:      "ticket",
				OnSuccess:      "respond",
			},
			"check_outage": {
				StepID:         "check_outage",
				ActionType:     graph.ActionDirectToolCall,
				TargetToolName: "check_known_outages",
				DataTemplate:   []byte(`{"service":"{query}"}`),
				OutputKey:      "outage_result",
				OnSuccess:      "evaluate_outage",
			},
			"evaluate_outage": {
				StepID:         "evaluate_outage",
				ActionType:     graph.ActionConditionCheck,
				ModelName:      "gpt-4o-mini",
				PromptTemplate: "Outage lookup result: {input.outage_result}",
				OnSuccess:      "outage_response",
				OnFailure:      "ticket_sw",
			},
			"outage_response": {
				StepID:         "outage_response",
				ActionType:     graph.ActionDisplayMessage,
				PromptTemplate: "We're aware of an outage affecting {query}. No ticket needed.",
				OnSuccess:      graph.End,
			},
			"ticket_sw": {
				StepID:         "ticket_sw",
				ActionType:     graph.ActionDirectToolCall,
				TargetToolName: "create_ticket",
				DataTemplate:   []byte(`{"category":"software","summary":"{query}","username":"{context.username}"}`),
				OutputKey:      "ticket",
				OnSuccess:      "respond",
			},
			"respond": {
				StepID:         "respond",
				ActionType:     graph.ActionDisplayMessage,
				PromptTemplate: "Your ticket is {input.ticket}. Thanks, {context.username}.",
				OnSuccess:      graph.End,
			},
		},
	}
}

func newITSupportEngine(t *testing.T, chat *fakeChat, tools *fakeTools) *Engine {
	t.Helper()
	reg := action.NewDefaultRegistry(action.Deps{Chat: chat, Tools: tools})
	wf := itSupportWorkflow()
	return NewEngine(reg, &fakeWorkflows{byID: map[int64]*graph.Workflow{wf.ID: wf}}, newFakeStore())
}

// 1. Three-branch triage: a cracked-screen query routes to the hardware
// branch and completes with a ticket id of the form IT-####.
func TestScenario_ThreeBranchTriage(t *testing.T) {
	chat := &fakeChat{route: func(prompt string) string {
		if strings.Contains(prompt, "screen is cracked") {
			return "hardware"
		}
		return "software"
	}}
	tools := &fakeTools{}
	e := newITSupportEngine(t, chat, tools)

	outcome := e.Run(context.Background(), "exec-triage", itSupportWorkflow(), "Hi, j.doe here. My laptop screen is cracked.", map[string]interface{}{"username": "j.doe"})
	require.Equal(t, OutcomeCompleted, outcome.Status)
	require.Regexp(t, `IT-\d+`, outcome.FinalResponse)
	require.Contains(t, tools.invoked, "create_ticket")
	require.NotContains(t, tools.invoked, "check_known_outages")
}

// 2. Outage short-circuit: a known-outage service routes through the
// software branch and terminates via the outage-response branch without
// ever invoking create_ticket.
func TestScenario_OutageShortCircuit(t *testing.T) {
	chat := &fakeChat{route: func(prompt string) string {
		return "software"
	}}
	tools := &fakeTools{}
	e := newITSupportEngine(t, chat, tools)

	outcome := e.Run(context.Background(), "exec-outage", itSupportWorkflow(), "VPN Service is down", nil)
	require.Equal(t, OutcomeCompleted, outcome.Status)
	require.Contains(t, outcome.FinalResponse, "outage")
	require.Contains(t, tools.invoked, "check_known_outages")
	require.NotContains(t, tools.invoked, "create_ticket")
}

// 3. Human-in-the-loop resume: the execution suspends at a human_input
// step and resuming it with an answer completes with that answer quoted
// back in the final response.
func TestScenario_HumanInputResume(t *testing.T) {
	wf := &graph.Workflow{
		ID:          11,
		Name:        "hitl",
		StartStepID: "ask_software",
		Steps: map[string]graph.Step{
			"ask_software": {
				StepID:         "ask_software",
				ActionType:     graph.ActionHumanInput,
				PromptTemplate: "Which software are you using?",
				OutputKey:      "software_name",
				OnSuccess:      "respond",
			},
			"respond": {
				StepID:         "respond",
				ActionType:     graph.ActionDisplayMessage,
				PromptTemplate: "Noted: you're using {input.software_name}.",
				OnSuccess:      graph.End,
			},
		},
	}

	reg := action.NewRegistry()
	reg.Register(graph.ActionHumanInput, action.NewHumanInputHandler())
	reg.Register(graph.ActionDisplayMessage, action.NewDisplayMessageHandler())
	store := newFakeStore()
	e := NewEngine(reg, &fakeWorkflows{byID: map[int64]*graph.Workflow{wf.ID: wf}}, store)

	started := e.Run(context.Background(), "exec-hitl", wf, "hi", nil)
	require.Equal(t, OutcomeSuspended, started.Status)
	require.Equal(t, "ask_software", started.SuspendedStepID)

	resumed := e.Resume(context.Background(), "exec-hitl", "Outlook")
	require.Equal(t, OutcomeCompleted, resumed.Status)
	require.Contains(t, resumed.FinalResponse, "Outlook")
}

// fakeEmbedder turns each text into a small deterministic vector (word
// count, rune count, and count of the letter "o") so cosine similarity
// is well defined without calling an embedding provider.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{
			float32(len(strings.Fields(t))),
			float32(len([]rune(t))),
			float32(strings.Count(strings.ToLower(t), "o")),
		}
	}
	return out, nil
}

// 4. File ingestion into RAG: a file_ingestion step resumed with two
// extracted text blocks feeds a vector_db_ingestion whose prompt_template
// is the whole {input.documents} placeholder; a subsequent
// vector_db_query then returns non-empty matches.
func TestScenario_FileIngestionIntoRAG(t *testing.T) {
	wf := &graph.Workflow{
		ID:          12,
		Name:        "rag-ingest",
		StartStepID: "ingest_files",
		Steps: map[string]graph.Step{
			"ingest_files": {
				StepID:         "ingest_files",
				ActionType:     graph.ActionFileIngestion,
				PromptTemplate: "Upload your documents.",
				OutputKey:      "documents",
				OnSuccess:      "store_docs",
			},
			"store_docs": {
				StepID:         "store_docs",
				ActionType:     graph.ActionVectorDBIngestion,
				CollectionName: "docs",
				PromptTemplate: "{input.documents}",
				OnSuccess:      "query_docs",
			},
			"query_docs": {
				StepID:         "query_docs",
				ActionType:     graph.ActionVectorDBQuery,
				CollectionName: "docs",
				PromptTemplate: "topic",
				OutputKey:      "retrieved_docs",
				OnSuccess:      "respond",
			},
			"respond": {
				StepID:         "respond",
				ActionType:     graph.ActionDisplayMessage,
				PromptTemplate: "{input.retrieved_docs}",
				OnSuccess:      graph.End,
			},
		},
	}

	store := vector.New(afero.NewMemMapFs(), "/vectors", fakeEmbedder{})
	reg := action.NewDefaultRegistry(action.Deps{Vector: store})

	execStore := newFakeStore()
	e := NewEngine(reg, &fakeWorkflows{byID: map[int64]*graph.Workflow{wf.ID: wf}}, execStore)

	started := e.Run(context.Background(), "exec-rag", wf, "hi", nil)
	require.Equal(t, OutcomeSuspended, started.Status)
	require.Equal(t, "ingest_files", started.SuspendedStepID)

	documents := []string{"the topic of this document is apples", "an unrelated second document about oranges"}
	finished := e.Resume(context.Background(), "exec-rag", documents)
	require.Equal(t, OutcomeCompleted, finished.Status)
	require.NotEqual(t, "[]", finished.FinalResponse)
	require.Contains(t, finished.FinalResponse, "apples")
}

// 5. Loop with aggregation: start_loop over three names whose body
// greets each one and whose end_loop.value_to_return collects the
// greeting; the aggregated result lands on the start_loop history entry.
func TestScenario_LoopWithAggregation(t *testing.T) {
	wf := &graph.Workflow{
		ID:          13,
		Name:        "loop-greet",
		StartStepID: "loop_names",
		Steps: map[string]graph.Step{
			"loop_names": {
				StepID:                  "loop_names",
				ActionType:              graph.ActionStartLoop,
				InputCollectionVariable: "names",
				CurrentItemOutputKey:    "current_item",
				LoopBodyStartStepID:     "greet_one",
				OutputKey:               "greetings",
				OnSuccess:               "summarize",
			},
			"greet_one": {
				StepID:         "greet_one",
				ActionType:     graph.ActionDisplayMessage,
				PromptTemplate: "Hello {input.current_item}",
				OutputKey:      "greeting",
				OnSuccess:      "loop_end",
			},
			"loop_end": {
				StepID:        "loop_end",
				ActionType:    graph.ActionEndLoop,
				ValueToReturn: "{input.greeting}",
			},
			"summarize": {
				StepID:         "summarize",
				ActionType:     graph.ActionDisplayMessage,
				PromptTemplate: "{input.greetings}",
				OnSuccess:      graph.End,
			},
		},
	}

	reg := action.NewRegistry()
	reg.Register(graph.ActionDisplayMessage, action.NewDisplayMessageHandler())
	e := NewEngine(reg, &fakeWorkflows{byID: map[int64]*graph.Workflow{wf.ID: wf}}, newFakeStore())

	outcome := e.Run(context.Background(), "exec-loop", wf, "hi", map[string]interface{}{
		"names": []interface{}{"a", "b", "c"},
	})
	require.Equal(t, OutcomeCompleted, outcome.Status)
	require.Contains(t, outcome.FinalResponse, "Hello a")
	require.Contains(t, outcome.FinalResponse, "Hello b")
	require.Contains(t, outcome.FinalResponse, "Hello c")
}

// 6. Intelligent routing override: a router whose model picks "tech"
// follows that route even though on_failure names a different step.
func TestScenario_IntelligentRoutingOverride(t *testing.T) {
	wf := &graph.Workflow{
		ID:          14,
		Name:        "router-override",
		StartStepID: "route",
		Steps: map[string]graph.Step{
			"route": {
				StepID:         "route",
				ActionType:     graph.ActionIntelligentRouter,
				ModelName:      "gpt-4o-mini",
				PromptTemplate: "{query}",
				Routes:         map[string]string{"billing": "ask_bill", "tech": "create_tech"},
				OnFailure:      "ask_bill",
			},
			"ask_bill": {
				StepID:         "ask_bill",
				ActionType:     graph.ActionDisplayMessage,
				PromptTemplate: "Routed to billing.",
				OnSuccess:      graph.End,
			},
			"create_tech": {
				StepID:         "create_tech",
				ActionType:     graph.ActionDisplayMessage,
				PromptTemplate: "Routed to tech.",
				OnSuccess:      graph.End,
			},
		},
	}

	chat := &fakeChat{route: func(string) string { return "tech" }}
	reg := action.NewDefaultRegistry(action.Deps{Chat: chat})
	e := NewEngine(reg, &fakeWorkflows{byID: map[int64]*graph.Workflow{wf.ID: wf}}, newFakeStore())

	outcome := e.Run(context.Background(), "exec-router", wf, "I have a question", nil)
	require.Equal(t, OutcomeCompleted, outcome.Status)
	require.Equal(t, "Routed to tech.", outcome.FinalResponse)
}
