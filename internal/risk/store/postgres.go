package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"verity/internal/platform/postgres"
	"verity/internal/risk/models"
	id "verity/pkg/domain"
	"verity/pkg/platform/sentinel"
	"verity/pkg/platform/tx"
)

// PostgresStore writes to risk_assessments, which rejects UPDATE and DELETE
// at the database level.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const insertAssessment = `
	INSERT INTO risk_assessments (id, application_id, version, factors, score, level,
		ci_low, ci_high, fraud_score, fraud_critical, fraud_indicators, algorithm_version,
		trigger, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

func (s *PostgresStore) Append(ctx context.Context, a *models.Assessment) error {
	factors, err := json.Marshal(a.Factors)
	if err != nil {
		return fmt.Errorf("encode factors: %w", err)
	}
	_, err = tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, insertAssessment,
		a.ID.String(),
		a.ApplicationID.String(),
		a.Version,
		factors,
		a.Score,
		string(a.Level),
		a.Confidence.Low,
		a.Confidence.High,
		a.FraudScore,
		a.FraudCritical,
		pq.Array(a.FraudIndicators),
		a.AlgorithmVersion,
		a.Trigger,
		a.CreatedAt,
	)
	if postgres.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("append risk assessment: %w", err)
	}
	return nil
}

const selectAssessments = `
	SELECT id, version, factors, score, level, ci_low, ci_high, fraud_score, fraud_critical,
		fraud_indicators, algorithm_version, trigger, created_at
	FROM risk_assessments
	WHERE application_id = $1`

func (s *PostgresStore) List(ctx context.Context, appID id.ApplicationID) ([]models.Assessment, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, selectAssessments+" ORDER BY version", appID.String())
	if err != nil {
		return nil, fmt.Errorf("list risk assessments: %w", err)
	}
	defer rows.Close()

	out := []models.Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows, appID)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate risk assessments: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Latest(ctx context.Context, appID id.ApplicationID) (*models.Assessment, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, selectAssessments+" ORDER BY version DESC LIMIT 1", appID.String())
	a, err := scanAssessment(row, appID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return a, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row scanner, appID id.ApplicationID) (*models.Assessment, error) {
	var (
		a       models.Assessment
		rawID   string
		level   string
		factors []byte
	)
	if err := row.Scan(&rawID, &a.Version, &factors, &a.Score, &level, &a.Confidence.Low,
		&a.Confidence.High, &a.FraudScore, &a.FraudCritical, pq.Array(&a.FraudIndicators),
		&a.AlgorithmVersion, &a.Trigger, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan risk assessment: %w", err)
	}
	parsed, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan risk assessment id: %w", err)
	}
	a.ID = id.AssessmentID(parsed)
	a.ApplicationID = appID
	a.Level = models.Level(level)
	if err := json.Unmarshal(factors, &a.Factors); err != nil {
		return nil, fmt.Errorf("decode factors: %w", err)
	}
	return &a, nil
}
