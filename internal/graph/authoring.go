package graph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AuthoringNode is one element of the authoring-graph "nodes" array, the
// shape produced by the interactive authoring assistant (out of scope —
// only its data shape matters here).
type AuthoringNode struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data"`
	Position json.RawMessage `json:"position,omitempty"`
}

// AuthoringEdge is one element of the authoring-graph "edges" array.
type AuthoringEdge struct {
	Source        string `json:"source"`
	Target        string `json:"target"`
	SourceHandle  string `json:"sourceHandle"`
}

// AuthoringGraph is the raw shape saved by the authoring client.
type AuthoringGraph struct {
	Nodes []AuthoringNode `json:"nodes"`
	Edges []AuthoringEdge `json:"edges"`
}

// ErrMalformedGraph is returned when the authoring graph cannot be
// canonicalised (bad JSON, missing start). An edge whose target is not a
// step is not caught here; Validate reports it as ErrUnknownStep.
var ErrMalformedGraph = fmt.Errorf("malformed authoring graph")

// FromAuthoring canonicalises an authoring-graph JSON payload
// into a Workflow whose id/name/description/owner are filled by the
// caller (SaveWorkflow) and whose RawDefinition preserves raw verbatim
// for lossless editor round-trip.
func FromAuthoring(raw json.RawMessage) (*Workflow, error) {
	var g AuthoringGraph
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGraph, err)
	}

	wf := &Workflow{
		Steps:         make(map[string]Step, len(g.Nodes)),
		RawDefinition: raw,
	}

	nodeTypes := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		nodeTypes[n.ID] = n.Type
		switch n.Type {
		case "start", "end":
			continue
		}
		step, err := nodeToStep(n)
		if err != nil {
			return nil, err
		}
		wf.Steps[step.StepID] = step
	}

	for _, e := range g.Edges {
		target := normalizeTarget(e.Target, nodeTypes)
		sourceType := nodeTypes[e.Source]

		if sourceType == "start" {
			wf.StartStepID = target
			continue
		}
		if sourceType == "end" {
			continue
		}

		step, ok := wf.Steps[e.Source]
		if !ok {
			continue
		}
		routeEdge(&step, string(step.ActionType), e.SourceHandle, target)
		wf.Steps[e.Source] = step
	}

	if wf.StartStepID == "" {
		return nil, fmt.Errorf("%w: no edge out of the start node", ErrMalformedGraph)
	}

	return wf, nil
}

// nodeToStep builds a Step from an authoring node, stripping any "Node"
// suffix from the type to recover action_type and populating fields
// from data. action_type is set from the node type when data omits it.
func nodeToStep(n AuthoringNode) (Step, error) {
	actionType := strings.TrimSuffix(n.Type, "Node")

	var step Step
	if len(n.Data) > 0 {
		if err := json.Unmarshal(n.Data, &step); err != nil {
			return Step{}, fmt.Errorf("%w: node %s: %v", ErrMalformedGraph, n.ID, err)
		}
	}
	step.StepID = n.ID
	if step.ActionType == "" {
		step.ActionType = ActionType(actionType)
	}
	return step, nil
}

func normalizeTarget(target string, nodeTypes map[string]string) string {
	if nodeTypes[target] == "end" || target == "end" {
		return End
	}
	return target
}

// routeEdge assigns a single authoring edge to the correct Step field
// based on the source node's action type and the edge's sourceHandle.
func routeEdge(step *Step, sourceType, handle, target string) {
	switch ActionType(sourceType) {
	case ActionConditionCheck:
		switch handle {
		case "onSuccess":
			step.OnSuccess = target
		case "onFailure":
			step.OnFailure = target
		}
	case ActionIntelligentRouter:
		if handle != "" && handle != "default" && handle != "onFailure" {
			if step.Routes == nil {
				step.Routes = make(map[string]string)
			}
			step.Routes[handle] = target
		} else if handle == "onFailure" {
			step.OnFailure = target
		}
	case ActionStartLoop:
		switch handle {
		case "loopBody":
			step.LoopBodyStartStepID = target
		case "onSuccess":
			step.OnSuccess = target
		case "onFailure":
			step.OnFailure = target
		}
	default:
		switch handle {
		case "onFailure":
			step.OnFailure = target
		default:
			step.OnSuccess = target
		}
	}
}
