package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/raglegal/api/internal/model"
	"github.com/raglegal/api/internal/parser"
	"github.com/raglegal/api/internal/store"
)

type stubDocumentStore struct {
	err     error
	gotID   int64
	content string
	calls   int
}

func (s *stubDocumentStore) StoreParsedContent(_ context.Context, id int64, content string) error {
	s.calls++
	s.gotID = id
	s.content = content
	return s.err
}

func writeTempUpload(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("placeholder"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func ingestTask(t *testing.T, payload model.IngestPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return asynq.NewTask("document:ingest", data)
}

func TestIngestWorkerStoresContentAndKeepsFile(t *testing.T) {
	docs := &stubDocumentStore{}
	w := NewIngestWorker(docs, parser.New("soffice", time.Second))
	path := writeTempUpload(t, "upload.txt")

	err := w.ProcessTask(context.Background(), ingestTask(t, model.IngestPayload{
		FilePath:   path,
		DocumentID: 42,
	}))
	if err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}

	if docs.gotID != 42 {
		t.Errorf("stored content for document %d, want 42", docs.gotID)
	}

	// The input is the document's stored copy; the preview endpoint
	// streams it after ingestion, so success must leave it in place.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("stored file gone after successful ingestion: %v", err)
	}
}

func TestIngestWorkerBadPayloadSkipsRetry(t *testing.T) {
	docs := &stubDocumentStore{}
	w := NewIngestWorker(docs, parser.New("soffice", time.Second))

	err := w.ProcessTask(context.Background(), asynq.NewTask("document:ingest", []byte("not json")))
	if err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("error %v should wrap asynq.SkipRetry", err)
	}
	if docs.calls != 0 {
		t.Errorf("store called %d times for malformed payload", docs.calls)
	}
}

func TestIngestWorkerMissingDocumentCompletesAsSkipped(t *testing.T) {
	docs := &stubDocumentStore{err: store.ErrNotFound}
	w := NewIngestWorker(docs, parser.New("soffice", time.Second))
	path := writeTempUpload(t, "orphan.txt")

	err := w.ProcessTask(context.Background(), ingestTask(t, model.IngestPayload{
		FilePath:   path,
		DocumentID: 7,
	}))
	if err != nil {
		t.Fatalf("missing document must not fail the job, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("temp file %s not removed for missing document", path)
	}
}

func TestIngestWorkerTransientErrorRetriesKeepingFile(t *testing.T) {
	docs := &stubDocumentStore{err: errors.New("connection reset")}
	w := NewIngestWorker(docs, parser.New("soffice", time.Second))
	path := writeTempUpload(t, "retry.txt")

	err := w.ProcessTask(context.Background(), ingestTask(t, model.IngestPayload{
		FilePath:   path,
		DocumentID: 7,
	}))
	if err == nil {
		t.Fatal("transient store failure must return an error so the task retries")
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Errorf("transient failure must stay retryable, got %v", err)
	}

	// The document stays pending with its file on disk, so an operator
	// can requeue it no matter how many attempts failed.
	if _, statErr := os.Stat(path); statErr != nil {
		t.Errorf("stored file must survive a failed attempt: %v", statErr)
	}
}

func TestIngestWorkerReExecutionIsSafe(t *testing.T) {
	docs := &stubDocumentStore{}
	w := NewIngestWorker(docs, parser.New("soffice", time.Second))

	// Redelivery after the first run already removed the file: parsing
	// yields error text, the conditional update is a no-op, and the job
	// still completes.
	path := filepath.Join(t.TempDir(), "gone.pdf")
	task := ingestTask(t, model.IngestPayload{FilePath: path, DocumentID: 42})

	if err := w.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("re-execution must complete cleanly, got %v", err)
	}
	if docs.calls != 1 {
		t.Fatalf("store called %d times, want 1", docs.calls)
	}
}
