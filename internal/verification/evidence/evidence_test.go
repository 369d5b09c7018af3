package evidence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/internal/verification/adapters"
	"verity/internal/verification/models"
	wfmodels "verity/internal/workflow/models"
	id "verity/pkg/domain"
)

func TestInMemoryStore_LatestResultPerKeyWins(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	appID := id.NewApplicationID()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	first := models.CallResult{Key: models.RegistryKey("national_id"), Status: models.CallUnresolved}
	require.NoError(t, s.Put(ctx, appID, wfmodels.StepRegistryVerification, []models.CallResult{first}, now))

	second := first
	second.Status = models.CallResolved
	second.Registry = &adapters.RegistryCheck{IsValid: true, Confidence: 0.9}
	other := models.CallResult{Key: models.FraudKey("behavioral-anomaly"), Status: models.CallResolved}
	require.NoError(t, s.Put(ctx, appID, wfmodels.StepRiskAssessment, []models.CallResult{second, other}, now.Add(time.Minute)))

	recs, err := s.List(ctx, appID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "fraud:behavioral-anomaly", recs[0].Result.Key)
	assert.Equal(t, models.CallResolved, recs[1].Result.Status)
	assert.Equal(t, now.Add(time.Minute), recs[1].UpdatedAt)
}

func TestPostgresStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	appID := id.NewApplicationID()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	res := models.CallResult{Key: "registry:tax_id", Kind: adapters.KindRegistry, Status: models.CallError, ErrorCategory: adapters.ErrorBadData}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO verification_evidence")).
		WithArgs(appID.String(), "registry:tax_id", "registry_verification", sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM verification_evidence")).
		WithArgs(appID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"step", "result", "updated_at"}).
			AddRow("registry_verification", []byte(`{"key":"registry:tax_id","kind":"registry","status":"error","error_category":"bad_data"}`), now))

	store := NewPostgres(db)
	require.NoError(t, store.Put(context.Background(), appID, wfmodels.StepRegistryVerification, []models.CallResult{res}, now))
	recs, err := store.List(context.Background(), appID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, res.Key, recs[0].Result.Key)
	assert.Equal(t, adapters.ErrorBadData, recs[0].Result.ErrorCategory)
	assert.Equal(t, wfmodels.StepRegistryVerification, recs[0].Step)
	assert.NoError(t, mock.ExpectationsWereMet())
}
