package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/hibiken/asynq"

	"github.com/raglegal/api/internal/model"
	"github.com/raglegal/api/internal/parser"
	"github.com/raglegal/api/internal/store"
)

// DocumentContentStore is what ingestion needs from the document store.
type DocumentContentStore interface {
	StoreParsedContent(ctx context.Context, id int64, content string) error
}

// IngestWorker processes document ingestion jobs: extract text from the
// uploaded file and store it on the document record. The input file is
// the document's canonical stored copy, served later by the preview
// endpoint, so the worker never deletes it for a live document; only an
// orphaned file (the record is gone) gets cleaned up. Re-execution after
// redelivery is safe: parsing is pure and the content update never
// regresses a reviewer decision.
type IngestWorker struct {
	documents DocumentContentStore
	parser    *parser.Parser
}

func NewIngestWorker(documents DocumentContentStore, p *parser.Parser) *IngestWorker {
	return &IngestWorker{
		documents: documents,
		parser:    p,
	}
}

// ProcessTask handles one ingest_document task.
func (w *IngestWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid ingest payload: %v: %w", err, asynq.SkipRetry)
	}

	log.Printf("Ingesting document %d from %s", payload.DocumentID, payload.FilePath)

	// Parsing never fails the job: conversion or parse errors come back
	// as "[FORMAT ERROR] ..." content, preferable to losing the upload.
	content := w.parser.ParseFile(ctx, payload.FilePath)

	if err := w.documents.StoreParsedContent(ctx, payload.DocumentID, content); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The record will never appear; complete as skipped instead
			// of retrying forever, and drop the orphaned file.
			writeResult(t, &model.IngestResult{
				Status:     "skipped",
				Reason:     "document not found",
				DocumentID: payload.DocumentID,
			})
			w.removeFile(payload.FilePath)
			return nil
		}

		// Transaction failure: retry the whole job. The document stays
		// pending and keeps its file, so an operator can requeue it even
		// after the last attempt.
		return fmt.Errorf("failed to store parsed content for document %d: %w", payload.DocumentID, err)
	}

	writeResult(t, &model.IngestResult{
		Status:     "processed",
		DocumentID: payload.DocumentID,
	})

	log.Printf("Document %d ingested (%d chars)", payload.DocumentID, len(content))
	return nil
}

func (w *IngestWorker) removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove temp file %s: %v", path, err)
	}
}

// writeResult stores a JSON result on the task for the polling read
// path. The writer is only present when running inside a worker server.
func writeResult(t *asynq.Task, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Failed to marshal task result: %v", err)
		return
	}
	if rw := t.ResultWriter(); rw != nil {
		if _, err := rw.Write(data); err != nil {
			log.Printf("Failed to write task result: %v", err)
		}
	}
}
