// Package tools implements the Tool Registry: the catalog of callables
// an agentic_tool_use or direct_tool_call step can invoke, sourced from
// natively registered Go functions and from MCP servers.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"stationflow/internal/action"
	"stationflow/internal/graph"
)

// ErrToolNotFound is returned by Invoke when no registered tool matches.
var ErrToolNotFound = errors.New("tool not found")

// Func is a natively registered tool implementation.
type Func func(ctx context.Context, args map[string]interface{}) (interface{}, error)

type entry struct {
	spec     action.ToolSpec
	schema   *gojsonschema.Schema
	invoke   Func
}

// Registry is a name-keyed catalog of tools, safe for concurrent use. It
// implements action.ToolRegistry.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{tools: map[string]entry{}}
}

// RegisterFunc adds a natively implemented tool. inputSchema may be nil,
// in which case arguments are passed through unvalidated.
func (r *Registry) RegisterFunc(name, description string, inputSchema json.RawMessage, fn Func) error {
	e := entry{
		spec: action.ToolSpec{Name: name, Description: description, InputSchema: inputSchema},
		invoke: fn,
	}
	if len(inputSchema) > 0 {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(inputSchema))
		if err != nil {
			return fmt.Errorf("compile schema for tool %q: %w", name, err)
		}
		e.schema = schema
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = e
	return nil
}

// Merge adopts every tool from other into r, overwriting on name
// collision. Used to fold MCP-discovered tools into the catalog.
func (r *Registry) Merge(other map[string]action.ToolSpec, invoke func(name string) Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, spec := range other {
		r.tools[name] = entry{spec: spec, invoke: invoke(name)}
	}
}

// List satisfies action.ToolRegistry. ToolSelectionNone yields no tools;
// ToolSelectionManual filters to names; ToolSelectionAuto (or the zero
// value) returns the full catalog, sorted by name for determinism.
func (r *Registry) List(selection graph.ToolSelection, names []string) ([]action.ToolSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if selection == graph.ToolSelectionNone {
		return nil, nil
	}

	var allowed map[string]bool
	if selection == graph.ToolSelectionManual {
		allowed = make(map[string]bool, len(names))
		for _, n := range names {
			allowed[n] = true
		}
	}

	specs := make([]action.ToolSpec, 0, len(r.tools))
	for name, e := range r.tools {
		if allowed != nil && !allowed[name] {
			continue
		}
		specs = append(specs, e.spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs, nil
}

// Invoke satisfies action.ToolRegistry: it validates args against the
// tool's input schema (when one was registered) before calling it.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}

	if e.schema != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("marshal arguments for tool %q: %w", name, err)
		}
		result, err := e.schema.Validate(gojsonschema.NewBytesLoader(b))
		if err != nil {
			return nil, fmt.Errorf("validate arguments for tool %q: %w", name, err)
		}
		if !result.Valid() {
			return nil, fmt.Errorf("arguments for tool %q failed validation: %v", name, result.Errors())
		}
	}

	return e.invoke(ctx, args)
}
