package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "verity/pkg/domain-errors"
)

// Typed identifiers. Distinct types keep an application ID from being passed
// where a document ID is expected.
type (
	ApplicationID uuid.UUID
	ApplicantID   uuid.UUID
	DocumentID    uuid.UUID
	AssessmentID  uuid.UUID
)

func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }
func NewDocumentID() DocumentID       { return DocumentID(uuid.New()) }
func NewAssessmentID() AssessmentID   { return AssessmentID(uuid.New()) }

func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id ApplicantID) String() string   { return uuid.UUID(id).String() }
func (id DocumentID) String() string    { return uuid.UUID(id).String() }
func (id AssessmentID) String() string  { return uuid.UUID(id).String() }

func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ApplicantID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AssessmentID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

func (id ApplicationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ApplicantID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id DocumentID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id AssessmentID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }

func (id *ApplicationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ApplicantID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DocumentID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *AssessmentID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseApplicationID parses an application ID at a trust boundary.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s, "application_id")
	return ApplicationID(u), err
}

// ParseApplicantID parses an applicant ID at a trust boundary.
func ParseApplicantID(s string) (ApplicantID, error) {
	u, err := parseUUID(s, "applicant_id")
	return ApplicantID(u), err
}

// ParseDocumentID parses a document ID at a trust boundary.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document_id")
	return DocumentID(u), err
}

// ParseAssessmentID parses an assessment ID at a trust boundary.
func ParseAssessmentID(s string) (AssessmentID, error) {
	u, err := parseUUID(s, "assessment_id")
	return AssessmentID(u), err
}

// parseUUID rejects empty, malformed and nil UUIDs with CodeInvalidInput.
func parseUUID(s, field string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be nil")
	}
	return u, nil
}
