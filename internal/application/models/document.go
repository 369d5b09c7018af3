package models

import (
	"maps"
	"strings"
	"time"

	vmodels "verity/internal/verification/models"
	wfmodels "verity/internal/workflow/models"
	id "verity/pkg/domain"
	dErrors "verity/pkg/domain-errors"
)

// DocumentStatus is the verification state of one uploaded document.
type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "pending"
	DocumentVerified   DocumentStatus = "verified"
	DocumentRejected   DocumentStatus = "rejected"
	DocumentUnresolved DocumentStatus = "unresolved"
	DocumentSuperseded DocumentStatus = "superseded"
)

type Document struct {
	ID                   id.DocumentID     `json:"id"`
	ApplicationID        id.ApplicationID  `json:"application_id"`
	Type                 id.DocumentType   `json:"type"`
	FileRef              string            `json:"file_ref"`
	ContentHash          string            `json:"content_hash"`
	Status               DocumentStatus    `json:"status"`
	ExtractedFields      map[string]string `json:"extracted_fields,omitempty"`
	ExtractionConfidence float64           `json:"extraction_confidence"`
	AuthenticityScore    float64           `json:"authenticity_score"`
	QualityScore         float64           `json:"quality_score"`
	Tampered             bool              `json:"tampered"`
	UploadedAt           time.Time         `json:"uploaded_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	ProcessedAt          *time.Time        `json:"processed_at,omitempty"`
}

func NewDocument(appID id.ApplicationID, docType id.DocumentType, fileRef, contentHash string, now time.Time) (*Document, error) {
	fileRef = strings.TrimSpace(fileRef)
	contentHash = strings.TrimSpace(contentHash)
	if fileRef == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "file_ref is required")
	}
	if contentHash == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "content_hash is required")
	}
	return &Document{
		ID:            id.NewDocumentID(),
		ApplicationID: appID,
		Type:          docType,
		FileRef:       fileRef,
		ContentHash:   contentHash,
		Status:        DocumentPending,
		UploadedAt:    now,
		UpdatedAt:     now,
	}, nil
}

// IsActive is false once a newer upload of the same type replaced it.
func (d *Document) IsActive() bool { return d.Status != DocumentSuperseded }

func (d *Document) ApplySupersede(now time.Time) {
	d.Status = DocumentSuperseded
	d.UpdatedAt = now
}

// ApplyReset clears processing results so the document can be re-extracted.
func (d *Document) ApplyReset(now time.Time) {
	d.Status = DocumentPending
	d.ExtractedFields = nil
	d.ExtractionConfidence = 0
	d.AuthenticityScore = 0
	d.QualityScore = 0
	d.Tampered = false
	d.ProcessedAt = nil
	d.UpdatedAt = now
}

// ApplyExtraction records an extraction call. A resolved result verifies the
// document unless it is tampered or falls below the criteria thresholds.
func (d *Document) ApplyExtraction(res vmodels.CallResult, criteria wfmodels.Criteria, now time.Time) {
	d.UpdatedAt = now
	d.ProcessedAt = &now
	switch {
	case res.Status == vmodels.CallUnresolved:
		d.Status = DocumentUnresolved
		return
	case res.Status == vmodels.CallError || res.Extraction == nil:
		d.Status = DocumentRejected
		return
	}
	e := res.Extraction
	d.ExtractedFields = maps.Clone(e.Fields)
	d.ExtractionConfidence = e.Confidence
	d.AuthenticityScore = e.AuthenticityScore
	d.QualityScore = e.QualityScore
	d.Tampered = e.Tampered
	if e.Tampered || e.Confidence < criteria.Min("extraction") || e.AuthenticityScore < criteria.Min("authenticity") {
		d.Status = DocumentRejected
		return
	}
	d.Status = DocumentVerified
}

// Ref is the pipeline's view of the document.
func (d *Document) Ref() vmodels.DocumentRef {
	return vmodels.DocumentRef{ID: d.ID, Type: d.Type, FileRef: d.FileRef, ContentHash: d.ContentHash}
}

func (d *Document) Clone() *Document {
	c := *d
	c.ExtractedFields = maps.Clone(d.ExtractedFields)
	if d.ProcessedAt != nil {
		v := *d.ProcessedAt
		c.ProcessedAt = &v
	}
	return &c
}
