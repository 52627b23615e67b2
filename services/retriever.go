package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"docchat-backend/models"
)

// Embedder turns text into fixed-dimension vectors via an external service.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// SearchIndex stores chunk embeddings and answers nearest-neighbor queries.
type SearchIndex interface {
	Upsert(ctx context.Context, entries []models.IndexEntry) error
	Query(ctx context.Context, embedding []float32, k int) ([]models.ScoredEntry, error)
	Size() int
	Clear(ctx context.Context) error
}

// Retriever fetches the top-k chunks relevant to a query: embed the
// query, search the index, drop everything below the relevance threshold.
type Retriever struct {
	embedder     Embedder
	index        SearchIndex
	topK         int
	threshold    float64
	maxAttempts  int
	embedTimeout time.Duration
	queryTimeout time.Duration
}

func NewRetriever(embedder Embedder, index SearchIndex, topK int, threshold float64, maxAttempts int, embedTimeout, queryTimeout time.Duration) *Retriever {
	return &Retriever{
		embedder:     embedder,
		index:        index,
		topK:         topK,
		threshold:    threshold,
		maxAttempts:  maxAttempts,
		embedTimeout: embedTimeout,
		queryTimeout: queryTimeout,
	}
}

// Retrieve returns the ranked chunks relevant to query. When every chunk
// falls below the threshold the result is empty rather than padded with
// noise. Transient embedding failures are retried with backoff before
// surfacing as ErrRetrievalUnavailable.
func (r *Retriever) Retrieve(ctx context.Context, query string) (models.RetrievalResult, error) {
	tracer := otel.Tracer("retriever")
	ctx, span := tracer.Start(ctx, "retriever.retrieve")
	defer span.End()

	embedding, err := retryTransient(ctx, r.maxAttempts, func() ([]float32, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.embedTimeout)
		defer cancel()
		return r.embedder.Embed(callCtx, query)
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("retriever.embed_failed", true))
		return models.RetrievalResult{}, fmt.Errorf("%w: embedding query: %v", ErrRetrievalUnavailable, err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()
	scored, err := r.index.Query(queryCtx, embedding, r.topK)
	if err != nil {
		span.SetAttributes(attribute.Bool("retriever.query_failed", true))
		return models.RetrievalResult{}, fmt.Errorf("%w: querying index: %v", ErrRetrievalUnavailable, err)
	}

	kept := make([]models.ScoredEntry, 0, len(scored))
	for _, se := range scored {
		if se.Score >= r.threshold {
			kept = append(kept, se)
		}
	}

	span.SetAttributes(
		attribute.Int("retriever.candidates", len(scored)),
		attribute.Int("retriever.kept", len(kept)),
	)
	return models.RetrievalResult{Entries: kept}, nil
}
