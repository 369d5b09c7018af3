package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/internal/risk/models"
	id "verity/pkg/domain"
	"verity/pkg/platform/sentinel"
)

func assessment(appID id.ApplicationID, version int) *models.Assessment {
	return &models.Assessment{
		ID:               id.NewAssessmentID(),
		ApplicationID:    appID,
		Version:          version,
		Factors:          map[models.Factor]float64{models.FactorDocument: 0.1},
		Score:            0.1,
		Level:            models.LevelLow,
		Confidence:       models.Interval{Low: 0, High: 0.3},
		FraudIndicators:  []string{"name_mismatch"},
		AlgorithmVersion: "verity-risk/1.0",
		Trigger:          "risk_assessment",
		CreatedAt:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	appID := id.NewApplicationID()

	_, err := s.Latest(ctx, appID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, s.Append(ctx, assessment(appID, 2)))
	require.NoError(t, s.Append(ctx, assessment(appID, 1)))
	assert.ErrorIs(t, s.Append(ctx, assessment(appID, 1)), sentinel.ErrConflict)

	list, err := s.List(ctx, appID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].Version)

	list[0].Factors[models.FactorDocument] = 0.99
	latest, err := s.Latest(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	again, _ := s.List(ctx, appID)
	assert.InDelta(t, 0.1, again[0].Factors[models.FactorDocument], 1e-9, "records are immutable from the outside")
}

func TestPostgresStore_AppendDuplicateVersionConflicts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO risk_assessments")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = NewPostgres(db).Append(context.Background(), assessment(id.NewApplicationID(), 1))
	assert.ErrorIs(t, err, sentinel.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Latest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	appID := id.NewApplicationID()
	a := assessment(appID, 3)
	rows := sqlmock.NewRows([]string{"id", "version", "factors", "score", "level", "ci_low", "ci_high",
		"fraud_score", "fraud_critical", "fraud_indicators", "algorithm_version", "trigger", "created_at"}).
		AddRow(a.ID.String(), 3, []byte(`{"document":0.1,"identity":0.6}`), 0.35, "medium", 0.2, 0.5,
			0.05, false, "{name_mismatch}", "verity-risk/1.0", "reprocess", a.CreatedAt)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY version DESC LIMIT 1")).WithArgs(appID.String()).WillReturnRows(rows)

	got, err := NewPostgres(db).Latest(context.Background(), appID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, models.LevelMedium, got.Level)
	assert.InDelta(t, 0.6, got.Factors[models.FactorIdentity], 1e-9)
	assert.Equal(t, []string{"name_mismatch"}, got.FraudIndicators)
	assert.Equal(t, a.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM risk_assessments")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = NewPostgres(db).Latest(context.Background(), id.NewApplicationID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
