// Package engine implements the execution engine: the state-machine
// interpreter that drives a graph.Workflow to completion, handling
// branching, dynamic re-routing, sub-graph calls, loops, suspensions,
// and durable state snapshotting.
package engine

import (
	"encoding/json"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// HistoryEntry is one append-only record in an execution's step_history.
type HistoryEntry struct {
	ID        string          `json:"id"`
	StepID    string          `json:"step_id"`
	Kind      string          `json:"kind"` // "result" | "pause" | "resume"
	Success   bool            `json:"success,omitempty"`
	Output    interface{}     `json:"output,omitempty"`
	Error     string          `json:"error,omitempty"`
	Meta      json.RawMessage `json:"meta,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Envelope is the durable state of one execution. It is
// owned by the engine while a step executes and by the store while
// suspended; it is read and mutated by exactly one goroutine at a time.
type Envelope struct {
	ExecutionID     string                 `json:"execution_id"`
	WorkflowID      int64                  `json:"workflow_id"`
	QueryText       string                 `json:"query"`
	InitialContext  map[string]interface{} `json:"initial_context"`
	CollectedInputs map[string]interface{} `json:"collected_inputs"`
	StepHistory     []HistoryEntry         `json:"step_history"`
	CurrentStepID     string                 `json:"current_step_id"`
	FinalResponseText string                 `json:"final_response"`
}

// NewEnvelope builds a fresh envelope at the start of an execution.
func NewEnvelope(executionID string, workflowID int64, query string, initialContext map[string]interface{}, startStepID string) *Envelope {
	if initialContext == nil {
		initialContext = map[string]interface{}{}
	}
	return &Envelope{
		ExecutionID:     executionID,
		WorkflowID:      workflowID,
		QueryText:       query,
		InitialContext:  initialContext,
		CollectedInputs: map[string]interface{}{},
		StepHistory:     []HistoryEntry{},
		CurrentStepID:   startStepID,
	}
}

// template.Envelope implementation.

func (e *Envelope) Query() string { return e.QueryText }

func (e *Envelope) ContextValue(key string) (interface{}, bool) {
	v, ok := e.InitialContext[key]
	return v, ok
}

func (e *Envelope) InputValue(key string) (interface{}, bool) {
	v, ok := e.CollectedInputs[key]
	return v, ok
}

// StateValue resolves {state.KEY} against the envelope's own top-level
// fields: execution_id, workflow_id, query, current_step_id, and
// final_response.
func (e *Envelope) StateValue(key string) (interface{}, bool) {
	switch key {
	case "execution_id":
		return e.ExecutionID, true
	case "workflow_id":
		return e.WorkflowID, true
	case "query":
		return e.QueryText, true
	case "current_step_id":
		return e.CurrentStepID, true
	case "final_response":
		return e.FinalResponseText, true
	default:
		return nil, false
	}
}

// action.Envelope implementation (adds write access on top of the
// read-only template.Envelope view).

func (e *Envelope) SetInput(key string, value interface{}) {
	e.CollectedInputs[key] = value
}

func (e *Envelope) FinalResponse() string { return e.FinalResponseText }

func (e *Envelope) SetFinalResponse(v string) { e.FinalResponseText = v }

// historyEntropy backs the monotonic ULIDs appendHistory stamps onto
// step_history entries; shared across appends so entries minted within
// the same timestamp tick still sort in append order.
var historyEntropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)

func (e *Envelope) appendHistory(entry HistoryEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.ID == "" {
		entry.ID = ulid.MustNew(ulid.Timestamp(entry.Timestamp), historyEntropy).String()
	}
	e.StepHistory = append(e.StepHistory, entry)
}

func (e *Envelope) loopStateKey(startLoopStepID string) string {
	return "__loop_state_" + startLoopStepID
}

// LoopState is the hidden scratchpad a start_loop step owns in
// CollectedInputs.
type LoopState struct {
	Collection []interface{} `json:"collection"`
	Index      int           `json:"index"`
	Results    []interface{} `json:"results"`
}

func (e *Envelope) getLoopState(startLoopStepID string) (*LoopState, bool) {
	raw, ok := e.CollectedInputs[e.loopStateKey(startLoopStepID)]
	if !ok {
		return nil, false
	}
	ls, ok := raw.(*LoopState)
	if ok {
		return ls, true
	}
	// Survives a JSON round-trip (resume path) as a generic map.
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, false
	}
	var out LoopState
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, false
	}
	return &out, true
}

func (e *Envelope) setLoopState(startLoopStepID string, ls *LoopState) {
	e.CollectedInputs[e.loopStateKey(startLoopStepID)] = ls
}

func (e *Envelope) deleteLoopState(startLoopStepID string) {
	delete(e.CollectedInputs, e.loopStateKey(startLoopStepID))
}

// Clone returns a deep copy. A JSON round-trip is sufficient since the
// envelope is JSON-serialisable by construction.
func (e *Envelope) Clone() (*Envelope, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var out Envelope
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
