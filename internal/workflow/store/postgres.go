package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"verity/internal/workflow/models"
	id "verity/pkg/domain"
	"verity/pkg/platform/sentinel"
	"verity/pkg/platform/tx"
)

// PostgresStore persists plans in workflow_steps, one row per step.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const upsertStep = `
	INSERT INTO workflow_steps (application_id, position, name, status, required_actions,
		estimated_duration_ms, criteria, started_at, completed_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (application_id, position) DO UPDATE SET
		status = EXCLUDED.status,
		required_actions = EXCLUDED.required_actions,
		estimated_duration_ms = EXCLUDED.estimated_duration_ms,
		criteria = EXCLUDED.criteria,
		started_at = EXCLUDED.started_at,
		completed_at = EXCLUDED.completed_at,
		updated_at = EXCLUDED.updated_at`

// Save writes every step. Callers wanting atomicity with other stores run it
// inside tx.Runner; on its own each row is upserted independently.
func (s *PostgresStore) Save(ctx context.Context, appID id.ApplicationID, plan models.Plan) error {
	exec := tx.ExecutorFrom(ctx, s.db)
	for _, step := range plan {
		criteria, err := json.Marshal(step.Criteria)
		if err != nil {
			return fmt.Errorf("encode criteria: %w", err)
		}
		if _, err := exec.ExecContext(ctx, upsertStep,
			appID.String(),
			step.Position,
			string(step.Name),
			string(step.Status),
			pq.Array(step.RequiredActions),
			step.EstimatedDuration.Milliseconds(),
			criteria,
			step.StartedAt,
			step.CompletedAt,
			step.UpdatedAt,
		); err != nil {
			return fmt.Errorf("save workflow step %s: %w", step.Name, err)
		}
	}
	return nil
}

const selectSteps = `
	SELECT position, name, status, required_actions, estimated_duration_ms, criteria,
		started_at, completed_at, updated_at
	FROM workflow_steps
	WHERE application_id = $1
	ORDER BY position`

func (s *PostgresStore) Load(ctx context.Context, appID id.ApplicationID) (models.Plan, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, selectSteps, appID.String())
	if err != nil {
		return nil, fmt.Errorf("load workflow: %w", err)
	}
	defer rows.Close()

	var plan models.Plan
	for rows.Next() {
		var (
			step        models.Step
			name        string
			status      string
			durationMS  int64
			criteria    []byte
			startedAt   sql.NullTime
			completedAt sql.NullTime
		)
		if err := rows.Scan(&step.Position, &name, &status, pq.Array(&step.RequiredActions),
			&durationMS, &criteria, &startedAt, &completedAt, &step.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan workflow step: %w", err)
		}
		step.ApplicationID = appID
		step.Name = models.StepName(name)
		step.Status = models.StepStatus(status)
		step.EstimatedDuration = time.Duration(durationMS) * time.Millisecond
		if err := json.Unmarshal(criteria, &step.Criteria); err != nil {
			return nil, fmt.Errorf("decode criteria: %w", err)
		}
		if startedAt.Valid {
			step.StartedAt = &startedAt.Time
		}
		if completedAt.Valid {
			step.CompletedAt = &completedAt.Time
		}
		plan = append(plan, &step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflow steps: %w", err)
	}
	if len(plan) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return plan, nil
}
