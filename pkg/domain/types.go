package domain

import (
	"regexp"
	"strings"

	dErrors "verity/pkg/domain-errors"
)

// ApplicationType identifies who is being onboarded.
// Invariant: one of the supported values; construct via ParseApplicationType.
type ApplicationType string

const (
	ApplicationTypeIndividual ApplicationType = "individual"
	ApplicationTypeBusiness   ApplicationType = "business"
	ApplicationTypeVendor     ApplicationType = "vendor"
)

var validApplicationTypes = map[ApplicationType]bool{
	ApplicationTypeIndividual: true,
	ApplicationTypeBusiness:   true,
	ApplicationTypeVendor:     true,
}

// ParseApplicationType constructs an ApplicationType from external input.
func ParseApplicationType(s string) (ApplicationType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "application type cannot be empty")
	}
	t := ApplicationType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unsupported application type: "+s)
	}
	return t, nil
}

func (t ApplicationType) IsValid() bool  { return validApplicationTypes[t] }
func (t ApplicationType) String() string { return string(t) }

// DocumentType identifies an uploaded document.
type DocumentType string

const (
	DocumentIdentityCard         DocumentType = "identity_card"
	DocumentPassport             DocumentType = "passport"
	DocumentLicense              DocumentType = "license"
	DocumentBusinessRegistration DocumentType = "business_registration"
	DocumentTaxCertificate       DocumentType = "tax_certificate"
	DocumentBankStatement        DocumentType = "bank_statement"
	DocumentUtilityBill          DocumentType = "utility_bill"
	DocumentPhoto                DocumentType = "photo"
)

var validDocumentTypes = map[DocumentType]bool{
	DocumentIdentityCard:         true,
	DocumentPassport:             true,
	DocumentLicense:              true,
	DocumentBusinessRegistration: true,
	DocumentTaxCertificate:       true,
	DocumentBankStatement:        true,
	DocumentUtilityBill:          true,
	DocumentPhoto:                true,
}

// ParseDocumentType constructs a DocumentType from external input.
func ParseDocumentType(s string) (DocumentType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "document type cannot be empty")
	}
	t := DocumentType(strings.ToLower(strings.TrimSpace(s)))
	if !validDocumentTypes[t] {
		return "", dErrors.New(dErrors.CodeValidation, "unsupported document type: "+s)
	}
	return t, nil
}

// IsIdentityDocument reports whether the document carries a portrait usable for
// biometric comparison.
func (t DocumentType) IsIdentityDocument() bool {
	return t == DocumentIdentityCard || t == DocumentPassport || t == DocumentLicense
}

func (t DocumentType) String() string { return string(t) }

// NationalID is a validated national identifier.
//
// Invariants:
//   - Alphanumeric only (A-Z, 0-9)
//   - Length between 6 and 20 characters
type NationalID struct {
	value string
}

var nationalIDPattern = regexp.MustCompile(`^[A-Z0-9]{6,20}$`)

// ParseNationalID validates a national identifier.
func ParseNationalID(value string) (NationalID, error) {
	if !nationalIDPattern.MatchString(value) {
		return NationalID{}, dErrors.New(dErrors.CodeValidation, "invalid national_id: must be 6-20 uppercase alphanumeric characters")
	}
	return NationalID{value: value}, nil
}

func (n NationalID) String() string { return n.value }
func (n NationalID) IsZero() bool   { return n.value == "" }

var countryPattern = regexp.MustCompile(`^[A-Z]{2}$`)

// ParseCountryCode validates an ISO 3166-1 alpha-2 country code.
func ParseCountryCode(value string) (string, error) {
	if !countryPattern.MatchString(value) {
		return "", dErrors.New(dErrors.CodeValidation, "invalid country: must be an ISO 3166-1 alpha-2 code")
	}
	return value, nil
}
