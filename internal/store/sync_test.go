package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkflowStore_SyncWorkflowFilesLoadsJSONAndYAML(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "stationflow.db"))
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, Migrate(conn))

	dir := t.TempDir()
	jsonFile := `{
		"name": "json-flow",
		"triggers": ["json_trigger"],
		"graph": {
			"nodes": [
				{"id": "start", "type": "start"},
				{"id": "greet", "type": "display_messageNode", "data": {"prompt_template": "hi", "action_type": "display_message"}},
				{"id": "end", "type": "end"}
			],
			"edges": [
				{"source": "start", "target": "greet"},
				{"source": "greet", "target": "end"}
			]
		}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "json-flow.json"), []byte(jsonFile), 0o644))

	yamlFile := `
name: yaml-flow
triggers: ["yaml_trigger"]
graph:
  nodes:
    - id: start
      type: start
    - id: greet
      type: display_messageNode
      data: {"prompt_template": "yo", "action_type": "display_message"}
    - id: end
      type: end
  edges:
    - source: start
      target: greet
    - source: greet
      target: end
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "yaml-flow.yaml"), []byte(yamlFile), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.txt"), []byte("not a workflow"), 0o644))

	ws := NewWorkflowStore(conn)
	result, err := ws.SyncWorkflowFiles(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, 2, result.FilesProcessed)
	require.ElementsMatch(t, []string{"json-flow", "yaml-flow"}, result.Synced)
	require.Empty(t, result.Errors)

	byTrigger, err := ws.FindByTrigger(context.Background(), "yaml_trigger")
	require.NoError(t, err)
	require.Equal(t, "yaml-flow", byTrigger.Name)
}
