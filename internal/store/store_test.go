package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"stationflow/internal/engine"
)

func TestWorkflowStore_SaveAndLookupByTriggerAndID(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "stationflow.db"))
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, Migrate(conn))

	ws := NewWorkflowStore(conn)
	raw := []byte(`{
		"nodes": [
			{"id": "start", "type": "start"},
			{"id": "greet", "type": "display_messageNode", "data": {"prompt_template": "hi", "action_type": "display_message"}},
			{"id": "end", "type": "end"}
		],
		"edges": [
			{"source": "start", "target": "greet"},
			{"source": "greet", "target": "end"}
		]
	}`)

	wf, err := ws.SaveFromAuthoring(context.Background(), "greeter", "says hi", "ops", []string{"greet_trigger"}, raw)
	require.NoError(t, err)
	require.NotZero(t, wf.ID)

	byID, err := ws.GetWorkflow(context.Background(), wf.ID)
	require.NoError(t, err)
	require.Equal(t, "greeter", byID.Name)
	require.Equal(t, "greet", byID.StartStepID)

	byTrigger, err := ws.FindByTrigger(context.Background(), "greet_trigger")
	require.NoError(t, err)
	require.Equal(t, wf.ID, byTrigger.ID)

	summaries, err := ws.ListWorkflows(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	// Saving again under the same name upserts rather than duplicating.
	wf2, err := ws.SaveFromAuthoring(context.Background(), "greeter", "says hi again", "ops", []string{"greet_trigger"}, raw)
	require.NoError(t, err)
	require.Equal(t, wf.ID, wf2.ID)

	require.NoError(t, ws.DeleteWorkflow(context.Background(), wf.ID))
	_, err = ws.GetWorkflow(context.Background(), wf.ID)
	require.Error(t, err)
}

func TestExecutionStore_SaveLoadDeleteRoundTrip(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "stationflow.db"))
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, Migrate(conn))

	ws := NewWorkflowStore(conn)
	raw := []byte(`{
		"nodes": [
			{"id": "start", "type": "start"},
			{"id": "ask", "type": "human_inputNode", "data": {"prompt_template": "name?", "action_type": "human_input", "output_key": "name"}},
			{"id": "end", "type": "end"}
		],
		"edges": [
			{"source": "start", "target": "ask"},
			{"source": "ask", "target": "end"}
		]
	}`)
	wf, err := ws.SaveFromAuthoring(context.Background(), "asker", "", "", nil, raw)
	require.NoError(t, err)

	es := NewExecutionStore(conn)
	env := engine.NewEnvelope("exec-1", wf.ID, "hi", nil, "ask")
	require.NoError(t, es.SavePaused(context.Background(), env, "ask"))

	loaded, pendingStepID, err := es.LoadPaused(context.Background(), "exec-1")
	require.NoError(t, err)
	require.Equal(t, "ask", pendingStepID)
	require.Equal(t, env.ExecutionID, loaded.ExecutionID)
	require.Equal(t, env.WorkflowID, loaded.WorkflowID)

	require.NoError(t, es.DeletePaused(context.Background(), "exec-1"))
	_, _, err = es.LoadPaused(context.Background(), "exec-1")
	require.Error(t, err)
}
