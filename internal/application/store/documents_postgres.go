package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"verity/internal/application/models"
	id "verity/pkg/domain"
	"verity/pkg/platform/sentinel"
	"verity/pkg/platform/tx"
)

const documentColumns = `id, application_id, type, file_ref, content_hash, status, extracted_fields,
	extraction_confidence, authenticity_score, quality_score, tampered, uploaded_at, updated_at, processed_at`

const supersedeDocuments = `
	UPDATE documents SET status = 'superseded', updated_at = $3
	WHERE application_id = $1 AND type = $2 AND status <> 'superseded'`

const insertDocument = `
	INSERT INTO documents (` + documentColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

// AddDocument supersedes older uploads of the same type and inserts doc.
// Run it inside tx.Runner to make the two statements atomic.
func (s *PostgresStore) AddDocument(ctx context.Context, doc *models.Document) error {
	exec := tx.ExecutorFrom(ctx, s.db)
	if _, err := exec.ExecContext(ctx, supersedeDocuments, doc.ApplicationID.String(), string(doc.Type), doc.UploadedAt); err != nil {
		return fmt.Errorf("supersede documents: %w", err)
	}
	fields, err := json.Marshal(doc.ExtractedFields)
	if err != nil {
		return fmt.Errorf("encode extracted fields: %w", err)
	}
	if _, err := exec.ExecContext(ctx, insertDocument,
		doc.ID.String(), doc.ApplicationID.String(), string(doc.Type), doc.FileRef, doc.ContentHash,
		string(doc.Status), fields, doc.ExtractionConfidence, doc.AuthenticityScore, doc.QualityScore,
		doc.Tampered, doc.UploadedAt, doc.UpdatedAt, doc.ProcessedAt,
	); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

const updateDocument = `
	UPDATE documents SET status = $2, extracted_fields = $3, extraction_confidence = $4,
		authenticity_score = $5, quality_score = $6, tampered = $7, updated_at = $8, processed_at = $9
	WHERE id = $1`

func (s *PostgresStore) SaveDocument(ctx context.Context, doc *models.Document) error {
	fields, err := json.Marshal(doc.ExtractedFields)
	if err != nil {
		return fmt.Errorf("encode extracted fields: %w", err)
	}
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, updateDocument,
		doc.ID.String(), string(doc.Status), fields, doc.ExtractionConfidence, doc.AuthenticityScore,
		doc.QualityScore, doc.Tampered, doc.UpdatedAt, doc.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, docID.String())
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return doc, err
}

func (s *PostgresStore) ListDocuments(ctx context.Context, appID id.ApplicationID) ([]*models.Document, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE application_id = $1 ORDER BY uploaded_at, id`, appID.String())
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func scanDocument(row interface{ Scan(...any) error }) (*models.Document, error) {
	var (
		doc             models.Document
		rawID, rawApp   string
		docType, status string
		fields          []byte
		processedAt     sql.NullTime
	)
	if err := row.Scan(&rawID, &rawApp, &docType, &doc.FileRef, &doc.ContentHash, &status, &fields,
		&doc.ExtractionConfidence, &doc.AuthenticityScore, &doc.QualityScore, &doc.Tampered,
		&doc.UploadedAt, &doc.UpdatedAt, &processedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	docUUID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan document id: %w", err)
	}
	appUUID, err := uuid.Parse(rawApp)
	if err != nil {
		return nil, fmt.Errorf("scan document application id: %w", err)
	}
	doc.ID = id.DocumentID(docUUID)
	doc.ApplicationID = id.ApplicationID(appUUID)
	doc.Type = id.DocumentType(docType)
	doc.Status = models.DocumentStatus(status)
	if err := json.Unmarshal(fields, &doc.ExtractedFields); err != nil {
		return nil, fmt.Errorf("decode extracted fields: %w", err)
	}
	if processedAt.Valid {
		doc.ProcessedAt = &processedAt.Time
	}
	return &doc, nil
}
