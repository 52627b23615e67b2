// Package queue defines the asynq background tasks: knowledge-document
// re-ingestion runs off the request path so uploads return quickly.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"docchat-backend/internal/logger"
)

const TaskIngestPDF = "ingest:pdf"

type IngestPDFPayload struct {
	Path    string `json:"path"`
	Replace bool   `json:"replace"`
}

// NewIngestPDFTask builds a task that (re)ingests the PDF at path.
// When replace is true the existing index is dropped first.
func NewIngestPDFTask(path string, replace bool) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPDFPayload{Path: path, Replace: replace})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestPDF,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// PDFIngestor ingests the PDF at path into the vector index.
type PDFIngestor interface {
	IngestPDF(ctx context.Context, path string, replace bool) (int, error)
}

// ReloadNotifier tells serving processes to refresh their in-memory
// index after a completed ingest.
type ReloadNotifier interface {
	NotifyReload(ctx context.Context) error
}

// TaskProcessor holds the handlers' dependencies.
type TaskProcessor struct {
	ingestor PDFIngestor
	notifier ReloadNotifier
}

func NewTaskProcessor(ingestor PDFIngestor, notifier ReloadNotifier) *TaskProcessor {
	return &TaskProcessor{ingestor: ingestor, notifier: notifier}
}

// ProcessIngestPDF handles TaskIngestPDF. Ingestion for the same document
// never runs concurrently with itself: the task sits in the critical
// queue and asynq deduplicates retries per task. After a successful
// ingest the serving processes are told to reload; a failed notification
// fails the task so the retry re-delivers the signal (ingestion is
// idempotent by chunk id).
func (p *TaskProcessor) ProcessIngestPDF(ctx context.Context, t *asynq.Task) error {
	var payload IngestPDFPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	logger.Info("Ingesting knowledge PDF", "path", payload.Path, "replace", payload.Replace)

	chunks, err := p.ingestor.IngestPDF(ctx, payload.Path, payload.Replace)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", payload.Path, err)
	}

	if p.notifier != nil {
		if err := p.notifier.NotifyReload(ctx); err != nil {
			return fmt.Errorf("notifying reload for %s: %w", payload.Path, err)
		}
	}

	logger.Info("Knowledge PDF ingested", "path", payload.Path, "chunks", chunks)
	return nil
}
