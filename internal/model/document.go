package model

import "time"

// Document represents an uploaded legal document going through the
// review workflow.
type Document struct {
	ID            int64          `db:"id" json:"id"`
	UploaderID    int64          `db:"uploader_id" json:"uploaderId"`
	ReviewerID    *int64         `db:"reviewer_id" json:"reviewerId,omitempty"`
	Filename      string         `db:"filename" json:"filename"`
	StoredPath    string         `db:"stored_path" json:"-"`
	Type          string         `db:"type" json:"type"`
	IssuerAgency  string         `db:"issuer_agency" json:"issuerAgency"`
	DocumentType  string         `db:"document_type" json:"documentType"`
	ParsedContent *string        `db:"parsed_content" json:"-"`
	Status        DocumentStatus `db:"status" json:"status"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
}

// DocumentUploadResponse is returned by POST /api/documents/upload.
// TaskID identifies the background ingestion job.
type DocumentUploadResponse struct {
	Document *Document `json:"document"`
	TaskID   string    `json:"taskId"`
}
