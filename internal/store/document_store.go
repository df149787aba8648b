package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/raglegal/api/internal/model"
)

// DocumentStore persists uploaded documents and their review state.
type DocumentStore struct {
	db *sqlx.DB
}

func NewDocumentStore(db *sqlx.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Create(ctx context.Context, d *model.Document) error {
	const query = `
		INSERT INTO documents (uploader_id, filename, stored_path, type, issuer_agency, document_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := s.db.QueryRowxContext(ctx, query,
		d.UploaderID, d.Filename, d.StoredPath, d.Type, d.IssuerAgency, d.DocumentType, d.Status,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (s *DocumentStore) GetByID(ctx context.Context, id int64) (*model.Document, error) {
	const query = `
		SELECT id, uploader_id, reviewer_id, filename, stored_path, type,
		       issuer_agency, document_type, parsed_content, status, created_at
		FROM documents
		WHERE id = $1`

	var d model.Document
	if err := s.db.GetContext(ctx, &d, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &d, nil
}

func (s *DocumentStore) ListByStatus(ctx context.Context, status model.DocumentStatus) ([]model.Document, error) {
	const query = `
		SELECT id, uploader_id, reviewer_id, filename, stored_path, type,
		       issuer_agency, document_type, parsed_content, status, created_at
		FROM documents
		WHERE status = $1
		ORDER BY created_at DESC`

	var docs []model.Document
	if err := s.db.SelectContext(ctx, &docs, query, status); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// StoreParsedContent saves extracted text and advances status
// pending -> processed in one statement. A reviewer decision
// (approved/rejected) is never overwritten, and re-running the same
// update is harmless, which keeps redelivered ingest jobs safe.
func (s *DocumentStore) StoreParsedContent(ctx context.Context, id int64, content string) error {
	const query = `
		UPDATE documents
		SET parsed_content = $1,
		    status = CASE WHEN status = 'pending' THEN 'processed' ELSE status END
		WHERE id = $2`

	res, err := s.db.ExecContext(ctx, query, content, id)
	if err != nil {
		return fmt.Errorf("failed to store parsed content: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Review records an approve/reject decision. Only pending or processed
// documents can be reviewed.
func (s *DocumentStore) Review(ctx context.Context, id, reviewerID int64, status model.DocumentStatus) (*model.Document, error) {
	const query = `
		UPDATE documents
		SET status = $1, reviewer_id = $2
		WHERE id = $3 AND status IN ('pending', 'processed')
		RETURNING id, uploader_id, reviewer_id, filename, stored_path, type,
		          issuer_agency, document_type, parsed_content, status, created_at`

	var d model.Document
	if err := s.db.GetContext(ctx, &d, query, status, reviewerID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to review document: %w", err)
	}
	return &d, nil
}
