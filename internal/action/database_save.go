package action

import (
	"context"
	"fmt"

	"stationflow/internal/graph"
	"stationflow/internal/template"
)

// DatabaseSaveHandler upserts one row, keyed by primary_key_columns,
// into table_name in the Structured Data Store.
type DatabaseSaveHandler struct {
	store SQLDataStore
}

func NewDatabaseSaveHandler(store SQLDataStore) *DatabaseSaveHandler {
	return &DatabaseSaveHandler{store: store}
}

func (h *DatabaseSaveHandler) Execute(ctx context.Context, step graph.Step, env Envelope) Result {
	if step.TableName == "" {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: database_save %q: table_name is required", ErrConfigurationError, step.StepID)}
	}

	row, err := template.JSONObject(env, step.DataTemplate)
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: database_save %q: %v", ErrTemplateError, step.StepID, err)}
	}

	if err := h.store.Save(ctx, step.TableName, step.PrimaryKeyColumns, row); err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: database_save %q: %v", ErrExternalService, step.StepID, err)}
	}
	return Result{Status: StatusComplete, Output: row}
}
