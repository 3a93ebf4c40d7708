// Package models holds wire/DB-facing structs kept outside the packages
// that implement them; internal/httpapi uses its request and response
// types.
package models

import (
	"encoding/json"
	"time"
)

// WorkflowRecord is the row shape persisted in the workflows table.
type WorkflowRecord struct {
	ID            int64           `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Description   string          `json:"description" db:"description"`
	Owner         string          `json:"owner" db:"owner"`
	Triggers      json.RawMessage `json:"triggers" db:"triggers"`
	Definition    json.RawMessage `json:"definition" db:"raw_definition"`
	Status        string          `json:"status" db:"status"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// ExecutionStateRecord is the row shape persisted in the
// execution_states table: one row per currently-paused execution.
type ExecutionStateRecord struct {
	ExecutionID   string          `json:"execution_id" db:"execution_id"`
	WorkflowID    int64           `json:"workflow_id" db:"workflow_id"`
	PendingStepID string          `json:"pending_step_id" db:"pending_step_id"`
	Envelope      json.RawMessage `json:"envelope" db:"envelope"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// StartExecutionRequest is the payload for starting a new execution,
// either against a known workflow id or a trigger to resolve.
type StartExecutionRequest struct {
	WorkflowID     int64                  `json:"workflow_id,omitempty"`
	Trigger        string                 `json:"trigger,omitempty"`
	Query          string                 `json:"query"`
	InitialContext map[string]interface{} `json:"initial_context,omitempty"`
}

// ResumeExecutionRequest is the payload for resuming a paused execution.
type ResumeExecutionRequest struct {
	ExecutionID string      `json:"execution_id"`
	ResumeValue interface{} `json:"resume_value"`
}

// ExecutionResponse is the HTTP-facing projection of an engine.Outcome.
type ExecutionResponse struct {
	ExecutionID     string      `json:"execution_id"`
	Status          string      `json:"status"`
	FinalResponse   string      `json:"final_response,omitempty"`
	SuspendedStepID string      `json:"suspended_step_id,omitempty"`
	SuspendNote     string      `json:"suspend_note,omitempty"`
	SuspendMeta     interface{} `json:"suspend_meta,omitempty"`
	Error           string      `json:"error,omitempty"`
}
