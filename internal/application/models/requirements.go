package models

import (
	"slices"

	id "verity/pkg/domain"
)

// DocumentRequirement is satisfied by any one active document of the listed
// types. Name is what a missing-items list reports.
type DocumentRequirement struct {
	Name  string
	AnyOf []id.DocumentType
}

type Requirements struct {
	Documents []DocumentRequirement
	Fields    []string
}

func single(t id.DocumentType) DocumentRequirement {
	return DocumentRequirement{Name: string(t), AnyOf: []id.DocumentType{t}}
}

// RequirementsFor lists what an application type needs before submission.
var RequirementsFor = map[id.ApplicationType]Requirements{
	id.ApplicationTypeIndividual: {
		Documents: []DocumentRequirement{{
			Name:  "identity_document",
			AnyOf: []id.DocumentType{id.DocumentIdentityCard, id.DocumentPassport, id.DocumentLicense},
		}},
		Fields: []string{"full_name", "date_of_birth", "national_id", "country"},
	},
	id.ApplicationTypeBusiness: {
		Documents: []DocumentRequirement{single(id.DocumentBusinessRegistration), single(id.DocumentTaxCertificate)},
		Fields:    []string{"legal_name", "registration_number", "country"},
	},
	id.ApplicationTypeVendor: {
		Documents: []DocumentRequirement{single(id.DocumentBusinessRegistration), single(id.DocumentBankStatement)},
		Fields:    []string{"legal_name", "registration_number", "country", "tax_id"},
	},
}

// MissingItems lists each unmet requirement as document:<name> or
// field:<name>, documents first.
func MissingItems(app *Application, docs []*Document) []string {
	req := RequirementsFor[app.Type]
	var missing []string
	for _, dr := range req.Documents {
		found := slices.ContainsFunc(docs, func(d *Document) bool {
			return d.IsActive() && slices.Contains(dr.AnyOf, d.Type)
		})
		if !found {
			missing = append(missing, "document:"+dr.Name)
		}
	}
	for _, f := range req.Fields {
		if app.Metadata[f] == "" {
			missing = append(missing, "field:"+f)
		}
	}
	return missing
}
