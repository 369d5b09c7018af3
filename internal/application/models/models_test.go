package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/internal/verification/adapters"
	vmodels "verity/internal/verification/models"
	wfmodels "verity/internal/workflow/models"
	id "verity/pkg/domain"
	dErrors "verity/pkg/domain-errors"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func TestStatusTransitions(t *testing.T) {
	allowed := map[Status][]Status{
		StatusDraft:       {StatusUnderReview, StatusCancelled},
		StatusUnderReview: {StatusApproved, StatusRejected, StatusCancelled},
		StatusRejected:    {StatusDraft},
	}
	all := []Status{StatusDraft, StatusUnderReview, StatusApproved, StatusRejected, StatusCancelled}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, contains(allowed[from], to), from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.True(t, StatusApproved.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusRejected.IsTerminal())
}

func contains(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestNewApplication(t *testing.T) {
	applicant := id.ApplicantID(id.NewApplicationID())

	t.Run("validates identifiers", func(t *testing.T) {
		_, err := NewApplication(applicant, id.ApplicationTypeIndividual, map[string]string{"national_id": "ab-12"}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = NewApplication(applicant, id.ApplicationTypeIndividual, map[string]string{"country": "Great Britain"}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = NewApplication(applicant, id.ApplicationType("trust"), nil, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("starts as a draft", func(t *testing.T) {
		app, err := NewApplication(applicant, id.ApplicationTypeBusiness, map[string]string{"legal_name": " Acme Ltd "}, now)
		require.NoError(t, err)
		assert.Equal(t, StatusDraft, app.Status)
		assert.Equal(t, "Acme Ltd", app.Metadata["legal_name"])
	})
}

func TestApplyUpdateRemovesEmptyFields(t *testing.T) {
	app, err := NewApplication(id.ApplicantID(id.NewApplicationID()), id.ApplicationTypeIndividual,
		map[string]string{"full_name": "Ada", "country": "GB"}, now)
	require.NoError(t, err)

	require.NoError(t, app.ApplyUpdate(map[string]string{"full_name": "", "date_of_birth": "1815-12-10"}, now.Add(time.Hour)))
	assert.NotContains(t, app.Metadata, "full_name")
	assert.Equal(t, "1815-12-10", app.Metadata["date_of_birth"])
	assert.Equal(t, now.Add(time.Hour), app.UpdatedAt)
}

func TestResubmissionClearsReviewState(t *testing.T) {
	app := &Application{Status: StatusUnderReview, ManualReview: true}
	app.ApplyRejection("ops@example.com", "blurry passport", now)
	require.NoError(t, app.CanResubmit())

	app.ApplyResubmission(now)
	assert.Equal(t, StatusDraft, app.Status)
	assert.Empty(t, app.RejectionReason)
	assert.False(t, app.ManualReview)
	assert.Nil(t, app.ReviewedAt)
	assert.Equal(t, 1, app.Resubmissions)
	assert.True(t, dErrors.HasCode(app.CanResubmit(), dErrors.CodeInvalidState))
}

func TestMissingItems(t *testing.T) {
	app := &Application{Type: id.ApplicationTypeVendor, Metadata: map[string]string{"legal_name": "Acme", "country": "DE"}}
	reg, _ := NewDocument(app.ID, id.DocumentBusinessRegistration, "s3://a", "h1", now)
	old, _ := NewDocument(app.ID, id.DocumentBankStatement, "s3://b", "h2", now)
	old.ApplySupersede(now)

	missing := MissingItems(app, []*Document{reg, old})
	assert.Equal(t, []string{"document:bank_statement", "field:registration_number", "field:tax_id"}, missing)

	individual := &Application{Type: id.ApplicationTypeIndividual, Metadata: map[string]string{}}
	assert.Contains(t, MissingItems(individual, nil), "document:identity_document")
}

func TestDocumentApplyExtraction(t *testing.T) {
	criteria := wfmodels.Criteria{MinConfidence: map[string]float64{"extraction": 0.6, "authenticity": 0.6}}
	doc, err := NewDocument(id.NewApplicationID(), id.DocumentPassport, "s3://p", "h", now)
	require.NoError(t, err)

	doc.ApplyExtraction(vmodels.CallResult{Status: vmodels.CallResolved, Extraction: &adapters.Extraction{
		Fields: map[string]string{"full_name": "Ada"}, Confidence: 0.9, AuthenticityScore: 0.9, QualityScore: 0.8,
	}}, criteria, now)
	assert.Equal(t, DocumentVerified, doc.Status)
	assert.Equal(t, "Ada", doc.ExtractedFields["full_name"])

	doc.ApplyExtraction(vmodels.CallResult{Status: vmodels.CallResolved, Extraction: &adapters.Extraction{Confidence: 0.3, AuthenticityScore: 0.9}}, criteria, now)
	assert.Equal(t, DocumentRejected, doc.Status)

	doc.ApplyExtraction(vmodels.CallResult{Status: vmodels.CallUnresolved}, criteria, now)
	assert.Equal(t, DocumentUnresolved, doc.Status)

	doc.ApplyReset(now)
	assert.Equal(t, DocumentPending, doc.Status)
	assert.Nil(t, doc.ExtractedFields)
	assert.Nil(t, doc.ProcessedAt)

	_, err = NewDocument(id.NewApplicationID(), id.DocumentPassport, "s3://p", " ", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
