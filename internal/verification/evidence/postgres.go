package evidence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"verity/internal/verification/models"
	wfmodels "verity/internal/workflow/models"
	id "verity/pkg/domain"
	"verity/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const upsertEvidence = `
	INSERT INTO verification_evidence (application_id, key, step, result, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (application_id, key) DO UPDATE SET
		step = EXCLUDED.step,
		result = EXCLUDED.result,
		updated_at = EXCLUDED.updated_at`

func (s *PostgresStore) Put(ctx context.Context, appID id.ApplicationID, step wfmodels.StepName, results []models.CallResult, now time.Time) error {
	exec := tx.ExecutorFrom(ctx, s.db)
	for _, r := range results {
		raw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode evidence %s: %w", r.Key, err)
		}
		if _, err := exec.ExecContext(ctx, upsertEvidence, appID.String(), r.Key, string(step), raw, now); err != nil {
			return fmt.Errorf("save evidence %s: %w", r.Key, err)
		}
	}
	return nil
}

const selectEvidence = `
	SELECT step, result, updated_at
	FROM verification_evidence
	WHERE application_id = $1
	ORDER BY key`

func (s *PostgresStore) List(ctx context.Context, appID id.ApplicationID) ([]models.Record, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, selectEvidence, appID.String())
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var (
			rec  models.Record
			step string
			raw  []byte
		)
		if err := rows.Scan(&step, &raw, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		if err := json.Unmarshal(raw, &rec.Result); err != nil {
			return nil, fmt.Errorf("decode evidence: %w", err)
		}
		rec.ApplicationID = appID
		rec.Step = wfmodels.StepName(step)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence: %w", err)
	}
	return out, nil
}
