package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stationflow/internal/engine"
)

// ExecutionStore persists paused executions. It implements
// engine.ExecutionStore: SavePaused/LoadPaused/DeletePaused form the
// engine's durability boundary.
type ExecutionStore struct {
	db *sql.DB
}

func NewExecutionStore(db *sql.DB) *ExecutionStore {
	return &ExecutionStore{db: db}
}

func (s *ExecutionStore) SavePaused(ctx context.Context, env *engine.Envelope, pendingStepID string) error {
	envJSON, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	writeMu.Lock()
	defer writeMu.Unlock()

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO execution_states (execution_id, workflow_id, pending_step_id, envelope, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(execution_id) DO UPDATE SET
			pending_step_id = excluded.pending_step_id,
			envelope = excluded.envelope,
			updated_at = excluded.updated_at`,
		env.ExecutionID, env.WorkflowID, pendingStepID, string(envJSON), now, now)
	if err != nil {
		return fmt.Errorf("save paused execution %q: %w", env.ExecutionID, err)
	}
	return nil
}

func (s *ExecutionStore) LoadPaused(ctx context.Context, executionID string) (*engine.Envelope, string, error) {
	var envJSON, pendingStepID string
	err := s.db.QueryRowContext(ctx, `
		SELECT envelope, pending_step_id FROM execution_states WHERE execution_id = ?`, executionID).
		Scan(&envJSON, &pendingStepID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", fmt.Errorf("%w: no paused execution %q", engine.ErrAlreadyRunning, executionID)
		}
		return nil, "", fmt.Errorf("load paused execution %q: %w", executionID, err)
	}

	var env engine.Envelope
	if err := json.Unmarshal([]byte(envJSON), &env); err != nil {
		return nil, "", fmt.Errorf("unmarshal envelope for execution %q: %w", executionID, err)
	}
	return &env, pendingStepID, nil
}

func (s *ExecutionStore) DeletePaused(ctx context.Context, executionID string) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM execution_states WHERE execution_id = ?`, executionID); err != nil {
		return fmt.Errorf("delete paused execution %q: %w", executionID, err)
	}
	return nil
}
