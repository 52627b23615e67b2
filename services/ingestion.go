package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"docchat-backend/internal/logger"
	"docchat-backend/models"
)

// embedBatchLimit is the largest number of texts sent per embedding call.
const embedBatchLimit = 100

// Ingestor turns a knowledge document into index entries:
// chunk -> embed in batches -> single upsert. Nothing is written to the
// index until every chunk has an embedding, so a mid-ingest failure
// never leaves a partially indexed document.
type Ingestor struct {
	chunker      *Chunker
	embedder     Embedder
	index        SearchIndex
	maxAttempts  int
	embedTimeout time.Duration
}

func NewIngestor(chunker *Chunker, embedder Embedder, index SearchIndex, maxAttempts int, embedTimeout time.Duration) *Ingestor {
	return &Ingestor{
		chunker:      chunker,
		embedder:     embedder,
		index:        index,
		maxAttempts:  maxAttempts,
		embedTimeout: embedTimeout,
	}
}

// IngestDocument chunks and indexes doc, returning the number of chunks
// written.
func (ing *Ingestor) IngestDocument(ctx context.Context, doc models.Document) (int, error) {
	chunks := ing.chunker.Split(doc)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document %s has no text to ingest", doc.ID)
	}

	vectors := make([][]float32, len(chunks))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(4)

	for start := 0; start < len(chunks); start += embedBatchLimit {
		start := start
		end := start + embedBatchLimit
		if end > len(chunks) {
			end = len(chunks)
		}
		group.Go(func() error {
			texts := make([]string, end-start)
			for i, chunk := range chunks[start:end] {
				texts[i] = chunk.Text
			}
			batch, err := retryTransient(groupCtx, ing.maxAttempts, func() ([][]float32, error) {
				callCtx, cancel := context.WithTimeout(groupCtx, ing.embedTimeout)
				defer cancel()
				return ing.embedder.EmbedBatch(callCtx, texts)
			})
			if err != nil {
				return fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return 0, err
	}

	entries := make([]models.IndexEntry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = models.IndexEntry{
			ChunkID:   chunk.ID,
			Embedding: vectors[i],
			Text:      chunk.Text,
			Metadata: map[string]string{
				"document_id": chunk.DocumentID,
				"order":       fmt.Sprintf("%d", chunk.Order),
			},
		}
	}

	if err := ing.index.Upsert(ctx, entries); err != nil {
		return 0, fmt.Errorf("indexing document %s: %w", doc.ID, err)
	}

	logger.Info("Document ingested", "document_id", doc.ID, "chunks", len(chunks))
	return len(chunks), nil
}

// IngestPDF extracts the text of the PDF at path and indexes it. When
// replace is true the existing index is dropped first, so the new
// document fully supersedes the old knowledge corpus.
func (ing *Ingestor) IngestPDF(ctx context.Context, path string, replace bool) (int, error) {
	text, err := ExtractPDFText(path)
	if err != nil {
		return 0, fmt.Errorf("extracting PDF text: %w", err)
	}

	if replace {
		if err := ing.index.Clear(ctx); err != nil {
			return 0, err
		}
	}

	doc := models.Document{
		ID:   documentID(path),
		Name: filepath.Base(path),
		Text: text,
	}
	return ing.IngestDocument(ctx, doc)
}

// documentID derives a stable id from the file name, keeping chunk ids
// deterministic across re-ingestion of the same document.
func documentID(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ToLower(strings.ReplaceAll(base, " ", "-"))
	if base == "" {
		base = "document"
	}
	return base
}
