package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stationflow/internal/engine"
	"stationflow/internal/graph"
)

// WorkflowStore persists the workflow catalog. It implements
// engine.WorkflowLookup for the execution engine and exposes the
// broader CRUD surface the HTTP API needs on top of that.
type WorkflowStore struct {
	db *sql.DB
}

func NewWorkflowStore(db *sql.DB) *WorkflowStore {
	return &WorkflowStore{db: db}
}

// GetWorkflow satisfies engine.WorkflowLookup.
func (s *WorkflowStore) GetWorkflow(ctx context.Context, id int64) (*graph.Workflow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, owner, triggers, raw_definition, created_at, updated_at
		FROM workflows WHERE id = ? AND status = 'active'`, id)
	return scanWorkflow(row)
}

// FindByTrigger satisfies engine.WorkflowLookup: it returns the first
// active workflow whose triggers array contains trigger.
func (s *WorkflowStore) FindByTrigger(ctx context.Context, trigger string) (*graph.Workflow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, owner, triggers, raw_definition, created_at, updated_at
		FROM workflows WHERE status = 'active'`)
	if err != nil {
		return nil, fmt.Errorf("query workflows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		wf, err := scanWorkflowRows(rows)
		if err != nil {
			return nil, err
		}
		for _, t := range wf.Triggers {
			if t == trigger {
				return wf, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", engine.ErrNoMatchingWorkflow, trigger)
}

// SaveFromAuthoring canonicalises an authoring-graph payload, validates
// it, and upserts it by name: a save against an existing name replaces
// that workflow's definition rather than creating a new row, since the
// catalog has no versioning concept.
func (s *WorkflowStore) SaveFromAuthoring(ctx context.Context, name, description, owner string, triggers []string, raw json.RawMessage) (*graph.Workflow, error) {
	wf, err := graph.FromAuthoring(raw)
	if err != nil {
		return nil, err
	}
	wf.Name = name
	wf.Description = description
	wf.Owner = owner
	wf.Triggers = triggers

	if err := graph.Validate(wf); err != nil {
		return nil, err
	}

	triggersJSON, err := json.Marshal(triggers)
	if err != nil {
		return nil, fmt.Errorf("marshal triggers: %w", err)
	}

	writeMu.Lock()
	defer writeMu.Unlock()

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO workflows (name, description, owner, triggers, raw_definition, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			owner = excluded.owner,
			triggers = excluded.triggers,
			raw_definition = excluded.raw_definition,
			status = 'active',
			updated_at = excluded.updated_at`,
		name, description, owner, string(triggersJSON), string(raw), now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert workflow %q: %w", name, err)
	}

	id, err := res.LastInsertId()
	if err != nil || id == 0 {
		// ON CONFLICT UPDATE path: LastInsertId is unset, look the row up.
		return s.GetByName(ctx, name)
	}
	wf.ID = id
	wf.CreatedAt, wf.UpdatedAt = now, now
	return wf, nil
}

// GetByName looks up an active workflow by its unique name.
func (s *WorkflowStore) GetByName(ctx context.Context, name string) (*graph.Workflow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, owner, triggers, raw_definition, created_at, updated_at
		FROM workflows WHERE name = ? AND status = 'active'`, name)
	return scanWorkflow(row)
}

// ListWorkflows returns every active workflow's summary.
func (s *WorkflowStore) ListWorkflows(ctx context.Context) ([]graph.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, owner, triggers, raw_definition, created_at, updated_at
		FROM workflows WHERE status = 'active' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var out []graph.Summary
	for rows.Next() {
		wf, err := scanWorkflowRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wf.ToSummary())
	}
	return out, rows.Err()
}

// DeleteWorkflow soft-deletes a workflow by marking it disabled; paused
// executions referencing it are left intact so an in-flight resume
// still finds its definition.
func (s *WorkflowStore) DeleteWorkflow(ctx context.Context, id int64) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE workflows SET status = 'disabled', updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("disable workflow %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("workflow %d not found", id)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM execution_states WHERE workflow_id = ?`, id); err != nil {
		return fmt.Errorf("delete paused executions of workflow %d: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkflow(row *sql.Row) (*graph.Workflow, error) {
	return scanWorkflowScanner(row)
}

func scanWorkflowRows(rows *sql.Rows) (*graph.Workflow, error) {
	return scanWorkflowScanner(rows)
}

func scanWorkflowScanner(s scanner) (*graph.Workflow, error) {
	var (
		id                     int64
		name, description, own string
		triggersJSON           string
		rawDefinition          string
		createdAt, updatedAt   time.Time
	)
	if err := s.Scan(&id, &name, &description, &own, &triggersJSON, &rawDefinition, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan workflow row: %w", err)
	}

	var triggers []string
	if err := json.Unmarshal([]byte(triggersJSON), &triggers); err != nil {
		return nil, fmt.Errorf("unmarshal triggers: %w", err)
	}

	wf, err := graph.FromAuthoring(json.RawMessage(rawDefinition))
	if err != nil {
		return nil, fmt.Errorf("decode stored definition for workflow %d: %w", id, err)
	}
	wf.ID = id
	wf.Name = name
	wf.Description = description
	wf.Owner = own
	wf.Triggers = triggers
	wf.CreatedAt = createdAt
	wf.UpdatedAt = updatedAt
	return wf, nil
}
