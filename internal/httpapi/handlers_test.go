package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"stationflow/internal/action"
	"stationflow/internal/engine"
	"stationflow/internal/graph"
)

type fakeCatalog struct {
	byID   map[int64]*graph.Workflow
	byName map[string]*graph.Workflow
	saved  *graph.Workflow
}

func (f *fakeCatalog) GetWorkflow(_ context.Context, id int64) (*graph.Workflow, error) {
	if wf, ok := f.byID[id]; ok {
		return wf, nil
	}
	return nil, engine.ErrStepNotFound
}

func (f *fakeCatalog) FindByTrigger(_ context.Context, trigger string) (*graph.Workflow, error) {
	for _, wf := range f.byName {
		for _, t := range wf.Triggers {
			if t == trigger {
				return wf, nil
			}
		}
	}
	return nil, engine.ErrNoMatchingWorkflow
}

func (f *fakeCatalog) SaveFromAuthoring(_ context.Context, name, description, owner string, triggers []string, raw json.RawMessage) (*graph.Workflow, error) {
	wf := &graph.Workflow{ID: 99, Name: name, Description: description, Owner: owner, Triggers: triggers, StartStepID: "greet",
		Steps: map[string]graph.Step{"greet": {StepID: "greet", ActionType: graph.ActionDisplayMessage, OnSuccess: graph.End}}}
	f.saved = wf
	f.byID[wf.ID] = wf
	f.byName[wf.Name] = wf
	return wf, nil
}

func (f *fakeCatalog) GetByName(_ context.Context, name string) (*graph.Workflow, error) {
	if wf, ok := f.byName[name]; ok {
		return wf, nil
	}
	return nil, engine.ErrStepNotFound
}

func (f *fakeCatalog) ListWorkflows(_ context.Context) ([]graph.Summary, error) {
	var out []graph.Summary
	for _, wf := range f.byID {
		out = append(out, wf.ToSummary())
	}
	return out, nil
}

func (f *fakeCatalog) DeleteWorkflow(_ context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return engine.ErrStepNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeTools struct{}

func (fakeTools) List(_ graph.ToolSelection, _ []string) ([]action.ToolSpec, error) {
	return []action.ToolSpec{{Name: "lookup_customer", Description: "look up a customer record"}}, nil
}

func (fakeTools) Invoke(_ context.Context, _ string, _ map[string]interface{}) (interface{}, error) {
	return nil, nil
}

type fakeFiles struct{ saved map[string][]byte }

func (f *fakeFiles) Save(_ context.Context, storagePath, filename string, data []byte) (string, error) {
	key := storagePath + "/" + filename
	f.saved[key] = data
	return key, nil
}

func setup(t *testing.T) (*httptest.Server, *fakeCatalog) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	wf := &graph.Workflow{ID: 1, Name: "greeter", Triggers: []string{"greet"}, StartStepID: "greet",
		Steps: map[string]graph.Step{"greet": {StepID: "greet", ActionType: graph.ActionDisplayMessage, OutputKey: "msg", OnSuccess: graph.End}}}
	catalog := &fakeCatalog{byID: map[int64]*graph.Workflow{1: wf}, byName: map[string]*graph.Workflow{"greeter": wf}}

	reg := action.NewRegistry()
	reg.Register(graph.ActionDisplayMessage, stubHandler{})
	eng := engine.NewEngine(reg, catalog, newStubStore())

	h := New(eng, catalog, fakeTools{}, &fakeFiles{saved: map[string][]byte{}})

	router := gin.New()
	h.RegisterRoutes(router.Group("/api"))
	return httptest.NewServer(router), catalog
}

type stubHandler struct{}

func (stubHandler) Execute(_ context.Context, _ graph.Step, _ action.Envelope) action.Result {
	return action.Result{Status: action.StatusComplete, Output: "hello there"}
}

type stubStore struct{ paused map[string]*stubPaused }
type stubPaused struct {
	env  *engine.Envelope
	step string
}

func newStubStore() *stubStore { return &stubStore{paused: map[string]*stubPaused{}} }

func (s *stubStore) SavePaused(_ context.Context, env *engine.Envelope, pendingStepID string) error {
	clone, err := env.Clone()
	if err != nil {
		return err
	}
	s.paused[env.ExecutionID] = &stubPaused{env: clone, step: pendingStepID}
	return nil
}

func (s *stubStore) LoadPaused(_ context.Context, executionID string) (*engine.Envelope, string, error) {
	p, ok := s.paused[executionID]
	if !ok {
		return nil, "", engine.ErrStateCorruption
	}
	delete(s.paused, executionID)
	return p.env, p.step, nil
}

func (s *stubStore) DeletePaused(_ context.Context, executionID string) error {
	delete(s.paused, executionID)
	return nil
}

func TestHandlers_ListWorkflows(t *testing.T) {
	srv, _ := setup(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/workflows")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Workflows []graph.Summary `json:"workflows"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Workflows, 1)
	require.Equal(t, "greeter", body.Workflows[0].Name)
}

func TestHandlers_StartExecutionByTrigger(t *testing.T) {
	srv, _ := setup(t)
	defer srv.Close()

	reqBody, _ := json.Marshal(map[string]interface{}{"trigger": "greet", "query": "hi"})
	resp, err := http.Post(srv.URL+"/api/executions", "application/json", bytes.NewReader(reqBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "completed", body["status"])
	require.Equal(t, "hello there", body["final_response"])
}

func TestHandlers_StartExecutionUnknownTrigger(t *testing.T) {
	srv, _ := setup(t)
	defer srv.Close()

	reqBody, _ := json.Marshal(map[string]interface{}{"trigger": "nope"})
	resp, err := http.Post(srv.URL+"/api/executions", "application/json", bytes.NewReader(reqBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlers_SaveWorkflow(t *testing.T) {
	srv, catalog := setup(t)
	defer srv.Close()

	reqBody, _ := json.Marshal(map[string]interface{}{
		"name":       "new-flow",
		"triggers":   []string{"new"},
		"definition": json.RawMessage(`{"start_step_id":"greet","steps":[{"step_id":"greet","action_type":"display_message","on_success":"END"}]}`),
	})
	resp, err := http.Post(srv.URL+"/api/workflows", "application/json", bytes.NewReader(reqBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, catalog.saved)
	require.Equal(t, "new-flow", catalog.saved.Name)
}

func TestHandlers_ListTools(t *testing.T) {
	srv, _ := setup(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/tools")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Tools []action.ToolSpec `json:"tools"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Tools, 1)
	require.Equal(t, "lookup_customer", body.Tools[0].Name)
}

func TestHandlers_UploadFileResumesExecution(t *testing.T) {
	gin.SetMode(gin.TestMode)

	wf := &graph.Workflow{ID: 3, Name: "ingest", StartStepID: "store",
		Steps: map[string]graph.Step{
			"store": {StepID: "store", ActionType: graph.ActionFileStorage, OutputKey: "ref", OnSuccess: "greet"},
			"greet": {StepID: "greet", ActionType: graph.ActionDisplayMessage, OnSuccess: graph.End},
		}}
	catalog := &fakeCatalog{byID: map[int64]*graph.Workflow{3: wf}, byName: map[string]*graph.Workflow{}}

	reg := action.NewRegistry()
	reg.Register(graph.ActionFileStorage, action.NewFileStorageHandler())
	reg.Register(graph.ActionDisplayMessage, stubHandler{})
	store := newStubStore()
	eng := engine.NewEngine(reg, catalog, store)

	files := &fakeFiles{saved: map[string][]byte{}}
	h := New(eng, catalog, fakeTools{}, files)
	router := gin.New()
	h.RegisterRoutes(router.Group("/api"))
	srv := httptest.NewServer(router)
	defer srv.Close()

	outcome := eng.Run(context.Background(), "exec-up", wf, "ingest this", nil)
	require.Equal(t, engine.OutcomeSuspended, outcome.Status)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "report.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte("report contents"))
	require.NoError(t, w.WriteField("storage_path", "uploads"))
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/executions/exec-up/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "completed", body["status"])
	require.Equal(t, []byte("report contents"), files.saved["uploads/report.txt"])
}
