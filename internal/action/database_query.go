package action

import (
	"context"
	"fmt"

	"stationflow/internal/graph"
	"stationflow/internal/template"
)

// DatabaseQueryHandler resolves query_template in SQL-parameterisation
// mode (every placeholder becomes a bound `?`, never interpolated
// directly into the statement) and runs it against the Structured Data
// Store.
type DatabaseQueryHandler struct {
	store SQLDataStore
}

func NewDatabaseQueryHandler(store SQLDataStore) *DatabaseQueryHandler {
	return &DatabaseQueryHandler{store: store}
}

func (h *DatabaseQueryHandler) Execute(ctx context.Context, step graph.Step, env Envelope) Result {
	if step.QueryTemplate == "" {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: database_query %q: query_template is required", ErrConfigurationError, step.StepID)}
	}

	sqlText, params := template.SQL(env, step.QueryTemplate)
	rows, err := h.store.Query(ctx, sqlText, params)
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: database_query %q: %v", ErrExternalService, step.StepID, err)}
	}
	return Result{Status: StatusComplete, Output: rows}
}
