// Package httpapi exposes the engine's control surface over HTTP: save
// and inspect workflows, start and resume executions, list tools, and
// accept the uploads that unblock a suspended file_ingestion/
// file_storage step.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stationflow/internal/action"
	"stationflow/internal/engine"
	"stationflow/internal/graph"
	"stationflow/pkg/models"
)

// Handlers wires the engine, the workflow catalog, the tool registry,
// and a file store into a gin route group.
type Handlers struct {
	engine    *engine.Engine
	workflows workflowCatalog
	tools     action.ToolRegistry
	files     action.FileStore
}

// workflowCatalog narrows what httpapi actually calls on internal/store
// so this package doesn't need to import it directly.
type workflowCatalog interface {
	engine.WorkflowLookup
	SaveFromAuthoring(ctx context.Context, name, description, owner string, triggers []string, raw json.RawMessage) (*graph.Workflow, error)
	GetByName(ctx context.Context, name string) (*graph.Workflow, error)
	ListWorkflows(ctx context.Context) ([]graph.Summary, error)
	DeleteWorkflow(ctx context.Context, id int64) error
}

func New(eng *engine.Engine, workflows workflowCatalog, tools action.ToolRegistry, files action.FileStore) *Handlers {
	return &Handlers{engine: eng, workflows: workflows, tools: tools, files: files}
}

// RegisterRoutes wires every endpoint under group.
func (h *Handlers) RegisterRoutes(group *gin.RouterGroup) {
	workflowGroup := group.Group("/workflows")
	workflowGroup.GET("", h.listWorkflows)
	workflowGroup.POST("", h.saveWorkflow)
	workflowGroup.GET("/:id", h.getWorkflow)
	workflowGroup.DELETE("/:id", h.deleteWorkflow)

	execGroup := group.Group("/executions")
	execGroup.POST("", h.startExecution)
	execGroup.POST("/:id/resume", h.resumeExecution)
	execGroup.POST("/:id/upload", h.uploadFile)

	toolsGroup := group.Group("/tools")
	toolsGroup.GET("", h.listTools)
}

type saveWorkflowRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Owner       string          `json:"owner"`
	Triggers    []string        `json:"triggers"`
	Definition  json.RawMessage `json:"definition" binding:"required"`
}

func (h *Handlers) saveWorkflow(c *gin.Context) {
	var req saveWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wf, err := h.workflows.SaveFromAuthoring(c.Request.Context(), req.Name, req.Description, req.Owner, req.Triggers, req.Definition)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflow": wf})
}

func (h *Handlers) listWorkflows(c *gin.Context) {
	summaries, err := h.workflows.ListWorkflows(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflows": summaries})
}

func (h *Handlers) getWorkflow(c *gin.Context) {
	wf, err := h.workflows.GetByName(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflow": wf})
}

func (h *Handlers) deleteWorkflow(c *gin.Context) {
	wf, err := h.workflows.GetByName(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err := h.workflows.DeleteWorkflow(c.Request.Context(), wf.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "workflow disabled", "id": wf.ID})
}

func (h *Handlers) startExecution(c *gin.Context) {
	var req models.StartExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var wf *graph.Workflow
	var err error
	switch {
	case req.WorkflowID != 0:
		wf, err = h.workflows.GetWorkflow(c.Request.Context(), req.WorkflowID)
	case req.Trigger != "":
		wf, err = h.workflows.FindByTrigger(c.Request.Context(), req.Trigger)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "workflow_id or trigger is required"})
		return
	}
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	executionID := uuid.NewString()
	outcome := h.engine.Run(c.Request.Context(), executionID, wf, req.Query, req.InitialContext)
	c.JSON(http.StatusOK, toExecutionResponse(outcome))
}

func (h *Handlers) resumeExecution(c *gin.Context) {
	var req models.ResumeExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	outcome := h.engine.Resume(c.Request.Context(), c.Param("id"), req.ResumeValue)
	c.JSON(http.StatusOK, toExecutionResponse(outcome))
}

// uploadFile accepts an uploaded blob for a suspended file_ingestion/
// file_storage step: it persists the bytes through FileStore and
// resumes the execution with the resulting reference, since those
// handlers only suspend and never touch storage themselves.
func (h *Handlers) uploadFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	storagePath := c.PostForm("storage_path")

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	data := make([]byte, fileHeader.Size)
	if _, err := f.Read(data); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ref, err := h.files.Save(c.Request.Context(), storagePath, fileHeader.Filename, data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	outcome := h.engine.Resume(c.Request.Context(), c.Param("id"), ref)
	c.JSON(http.StatusOK, toExecutionResponse(outcome))
}

func (h *Handlers) listTools(c *gin.Context) {
	specs, err := h.tools.List(graph.ToolSelectionAuto, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tools": specs})
}

func toExecutionResponse(o *engine.Outcome) models.ExecutionResponse {
	resp := models.ExecutionResponse{
		ExecutionID:     o.ExecutionID,
		Status:          string(o.Status),
		FinalResponse:   o.FinalResponse,
		SuspendedStepID: o.SuspendedStepID,
		SuspendNote:     o.SuspendNote,
		SuspendMeta:     o.SuspendMeta,
	}
	if o.Err != nil {
		resp.Error = o.Err.Error()
	}
	return resp
}
