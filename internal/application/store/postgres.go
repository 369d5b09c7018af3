package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"verity/internal/application/models"
	"verity/internal/platform/postgres"
	id "verity/pkg/domain"
	"verity/pkg/platform/sentinel"
	"verity/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const applicationColumns = `id, applicant_id, type, status, risk_level, risk_score, manual_review, metadata,
	cancellation_reason, rejection_reason, reviewed_by, resubmission_count, client_ip, user_agent,
	created_at, updated_at, submitted_at, reviewed_at`

const insertApplication = `
	INSERT INTO applications (` + applicationColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

func applicationArgs(app *models.Application) ([]any, error) {
	metadata, err := json.Marshal(app.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return []any{
		app.ID.String(),
		app.ApplicantID.String(),
		string(app.Type),
		string(app.Status),
		app.RiskLevel,
		app.RiskScore,
		app.ManualReview,
		metadata,
		app.CancellationReason,
		app.RejectionReason,
		app.ReviewedBy,
		app.Resubmissions,
		app.ClientIP,
		app.UserAgent,
		app.CreatedAt,
		app.UpdatedAt,
		app.SubmittedAt,
		app.ReviewedAt,
	}, nil
}

// Create relies on the partial unique index over open applications.
func (s *PostgresStore) Create(ctx context.Context, app *models.Application) error {
	args, err := applicationArgs(app)
	if err != nil {
		return err
	}
	_, err = tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, insertApplication, args...)
	if postgres.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

const selectApplication = `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

func (s *PostgresStore) Get(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, selectApplication, appID.String())
	return scanApplication(row)
}

const updateApplication = `
	UPDATE applications SET
		status = $2, risk_level = $3, risk_score = $4, manual_review = $5, metadata = $6,
		cancellation_reason = $7, rejection_reason = $8, reviewed_by = $9,
		resubmission_count = $10, client_ip = $11, user_agent = $12,
		updated_at = $13, submitted_at = $14, reviewed_at = $15
	WHERE id = $1 AND status = $16`

// Update writes app only if the stored status is still from.
func (s *PostgresStore) Update(ctx context.Context, app *models.Application, from models.Status) error {
	metadata, err := json.Marshal(app.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, updateApplication,
		app.ID.String(),
		string(app.Status),
		app.RiskLevel,
		app.RiskScore,
		app.ManualReview,
		metadata,
		app.CancellationReason,
		app.RejectionReason,
		app.ReviewedBy,
		app.Resubmissions,
		app.ClientIP,
		app.UserAgent,
		app.UpdatedAt,
		app.SubmittedAt,
		app.ReviewedAt,
		string(from),
	)
	if postgres.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	return s.checkAffected(ctx, res, app.ID)
}

// checkAffected tells a missing row from a failed status condition.
func (s *PostgresStore) checkAffected(ctx context.Context, res sql.Result, appID id.ApplicationID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.Get(ctx, appID); err != nil {
		return err
	}
	return sentinel.ErrInvalidState
}

const cancelApplication = `
	UPDATE applications SET status = 'cancelled', cancellation_reason = $2, updated_at = $3
	WHERE id = $1 AND status = ANY($4)
	RETURNING ` + applicationColumns

func (s *PostgresStore) Cancel(ctx context.Context, appID id.ApplicationID, reason string, now time.Time) (*models.Application, error) {
	statuses := make([]string, len(openStatuses))
	for i, st := range openStatuses {
		statuses[i] = string(st)
	}
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, cancelApplication, appID.String(), reason, now, pq.Array(statuses))
	app, err := scanApplication(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		if _, gerr := s.Get(ctx, appID); gerr != nil {
			return nil, gerr
		}
		return nil, sentinel.ErrInvalidState
	}
	return app, err
}

const mirrorRisk = `
	UPDATE applications SET risk_level = $2, risk_score = $3, manual_review = manual_review OR $4, updated_at = $5
	WHERE id = $1 AND status <> 'cancelled'`

func (s *PostgresStore) MirrorRisk(ctx context.Context, appID id.ApplicationID, level string, score float64, flag bool, now time.Time) error {
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, mirrorRisk, appID.String(), level, score, flag, now)
	if err != nil {
		return fmt.Errorf("mirror risk: %w", err)
	}
	return s.checkAffected(ctx, res, appID)
}

const flagApplication = `
	UPDATE applications SET manual_review = TRUE, updated_at = $2
	WHERE id = $1 AND status <> 'cancelled'`

func (s *PostgresStore) Flag(ctx context.Context, appID id.ApplicationID, now time.Time) error {
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, flagApplication, appID.String(), now)
	if err != nil {
		return fmt.Errorf("flag application: %w", err)
	}
	return s.checkAffected(ctx, res, appID)
}

func scanApplication(row interface{ Scan(...any) error }) (*models.Application, error) {
	var (
		app                     models.Application
		rawID, rawApplicant     string
		appType, status         string
		riskScore               sql.NullFloat64
		metadata                []byte
		submittedAt, reviewedAt sql.NullTime
	)
	err := row.Scan(&rawID, &rawApplicant, &appType, &status, &app.RiskLevel, &riskScore, &app.ManualReview,
		&metadata, &app.CancellationReason, &app.RejectionReason, &app.ReviewedBy, &app.Resubmissions,
		&app.ClientIP, &app.UserAgent, &app.CreatedAt, &app.UpdatedAt, &submittedAt, &reviewedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan application: %w", err)
	}
	appUUID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan application id: %w", err)
	}
	applicantUUID, err := uuid.Parse(rawApplicant)
	if err != nil {
		return nil, fmt.Errorf("scan applicant id: %w", err)
	}
	app.ID = id.ApplicationID(appUUID)
	app.ApplicantID = id.ApplicantID(applicantUUID)
	app.Type = id.ApplicationType(appType)
	app.Status = models.Status(status)
	if riskScore.Valid {
		app.RiskScore = &riskScore.Float64
	}
	if err := json.Unmarshal(metadata, &app.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if submittedAt.Valid {
		app.SubmittedAt = &submittedAt.Time
	}
	if reviewedAt.Valid {
		app.ReviewedAt = &reviewedAt.Time
	}
	return &app, nil
}
