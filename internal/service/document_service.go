package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/raglegal/api/internal/config"
	"github.com/raglegal/api/internal/model"
	"github.com/raglegal/api/internal/store"
)

var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// DocumentRepository is the persistence contract for documents.
type DocumentRepository interface {
	Create(ctx context.Context, d *model.Document) error
	GetByID(ctx context.Context, id int64) (*model.Document, error)
	ListByStatus(ctx context.Context, status model.DocumentStatus) ([]model.Document, error)
	Review(ctx context.Context, id, reviewerID int64, status model.DocumentStatus) (*model.Document, error)
}

var supportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".doc":  true,
}

// DocumentService handles the upload/review workflow. Ingestion itself
// runs in the background: upload only stores the file, inserts a pending
// record, and hands a job to the queue.
type DocumentService struct {
	documents DocumentRepository
	tasks     TaskEnqueuer
	uploadDir string
}

func NewDocumentService(documents DocumentRepository, tasks TaskEnqueuer, cfg *config.UploadConfig) *DocumentService {
	return &DocumentService{
		documents: documents,
		tasks:     tasks,
		uploadDir: cfg.Dir,
	}
}

// Upload stores the file under a generated name, records the document as
// pending and enqueues its ingestion job.
func (s *DocumentService) Upload(ctx context.Context, uploaderID int64, filename, issuerAgency, documentType string, src io.Reader) (*model.DocumentUploadResponse, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !supportedExtensions[ext] {
		return nil, ErrUnsupportedFileType
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	storedPath := filepath.Join(s.uploadDir, uuid.New().String()+ext)
	dst, err := os.Create(storedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(storedPath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(storedPath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	doc := &model.Document{
		UploaderID:   uploaderID,
		Filename:     filename,
		StoredPath:   storedPath,
		Type:         ext,
		IssuerAgency: issuerAgency,
		DocumentType: documentType,
		Status:       model.DocumentStatusPending,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		os.Remove(storedPath)
		return nil, err
	}

	taskID, err := s.tasks.EnqueueIngest(ctx, &model.IngestPayload{
		FilePath:   storedPath,
		DocumentID: doc.ID,
	})
	if err != nil {
		// The document stays pending; an operator can requeue it.
		log.Printf("Failed to enqueue ingestion for document %d: %v", doc.ID, err)
		return nil, fmt.Errorf("failed to enqueue ingestion: %w", err)
	}

	return &model.DocumentUploadResponse{
		Document: doc,
		TaskID:   taskID,
	}, nil
}

// Pending lists documents awaiting review.
func (s *DocumentService) Pending(ctx context.Context) ([]model.Document, error) {
	return s.documents.ListByStatus(ctx, model.DocumentStatusPending)
}

// Get returns one document.
func (s *DocumentService) Get(ctx context.Context, id int64) (*model.Document, error) {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// Review records an approve or reject decision by a reviewer.
func (s *DocumentService) Review(ctx context.Context, id, reviewerID int64, approve bool) (*model.Document, error) {
	status := model.DocumentStatusRejected
	if approve {
		status = model.DocumentStatusApproved
	}

	doc, err := s.documents.Review(ctx, id, reviewerID, status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}
