package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "verity/pkg/domain-errors"
)

func TestParseApplicationID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseApplicationID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseApplicationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseApplicationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseApplicationID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, ApplicationID(valid), id)
	})
}

func TestParseID_HostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE applications;--", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocumentID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	valid := uuid.New().String()
	for _, input := range []string{"", "invalid", uuid.Nil.String()} {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errApp := ParseApplicationID(input)
			_, errApplicant := ParseApplicantID(input)
			_, errDoc := ParseDocumentID(input)
			_, errAssessment := ParseAssessmentID(input)
			require.Error(t, errApp)
			require.Error(t, errApplicant)
			require.Error(t, errDoc)
			require.Error(t, errAssessment)
		})
	}

	_, errApp := ParseApplicationID(valid)
	_, errApplicant := ParseApplicantID(valid)
	require.NoError(t, errApp)
	require.NoError(t, errApplicant)
}

func TestDomainPrimitives(t *testing.T) {
	t.Run("national id pattern", func(t *testing.T) {
		_, err := ParseNationalID("AB12345")
		require.NoError(t, err)

		_, err = ParseNationalID("ab-123")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("application type is case-insensitive", func(t *testing.T) {
		typ, err := ParseApplicationType(" Business ")
		require.NoError(t, err)
		assert.Equal(t, ApplicationTypeBusiness, typ)

		_, err = ParseApplicationType("charity")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("identity documents", func(t *testing.T) {
		assert.True(t, DocumentPassport.IsIdentityDocument())
		assert.False(t, DocumentBankStatement.IsIdentityDocument())
	})
}

func TestIDs_JSONRoundTrip(t *testing.T) {
	type payload struct {
		Application ApplicationID         `json:"application"`
		Applicant   ApplicantID           `json:"applicant"`
		Document    DocumentID            `json:"document"`
		Assessment  AssessmentID          `json:"assessment"`
		Keyed       map[DocumentID]string `json:"keyed"`
	}
	doc := NewDocumentID()
	in := payload{
		Application: NewApplicationID(),
		Applicant:   ApplicantID(uuid.New()),
		Document:    doc,
		Assessment:  NewAssessmentID(),
		Keyed:       map[DocumentID]string{doc: "passport"},
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"application":"`+in.Application.String()+`"`)

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)

	t.Run("rejects malformed text", func(t *testing.T) {
		var got ApplicationID
		assert.Error(t, json.Unmarshal([]byte(`"not-a-uuid"`), &got))
	})
}
