// Package vectorstore holds the chunk embedding index: an in-process
// cosine-similarity scan over entries that are durably persisted in
// MongoDB and reloaded on startup.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docchat-backend/models"
)

// Persistence is the durable backing for index entries.
type Persistence interface {
	SaveEntries(ctx context.Context, entries []indexRecord) error
	LoadEntries(ctx context.Context) ([]indexRecord, error)
	DropEntries(ctx context.Context) error
}

// indexRecord is an entry plus its insertion sequence number, which fixes
// result ordering for equal scores across restarts.
type indexRecord struct {
	models.IndexEntry `bson:",inline"`
	Seq               int64 `bson:"seq"`
}

// Index answers nearest-neighbor queries over chunk embeddings.
// Reads take a shared lock so concurrent lookups never block each other.
type Index struct {
	mu      sync.RWMutex
	records []indexRecord // kept sorted by Seq (insertion order)
	byID    map[string]int
	nextSeq int64
	dim     int
	store   Persistence
}

// NewIndex creates an empty index. store may be nil for a purely
// in-memory index (tests, ephemeral runs).
func NewIndex(store Persistence) *Index {
	return &Index{
		byID:  make(map[string]int),
		store: store,
	}
}

// Load hydrates the index from persistence. Safe to call once at startup.
func (ix *Index) Load(ctx context.Context) error {
	if ix.store == nil {
		return nil
	}
	records, err := ix.store.LoadEntries(ctx)
	if err != nil {
		return fmt.Errorf("loading index entries: %w", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.records = records
	ix.byID = make(map[string]int, len(records))
	for i, rec := range records {
		ix.byID[rec.ChunkID] = i
		if rec.Seq >= ix.nextSeq {
			ix.nextSeq = rec.Seq + 1
		}
		if ix.dim == 0 {
			ix.dim = len(rec.Embedding)
		}
	}
	return nil
}

// Upsert adds or replaces entries by chunk id. Replacing keeps the
// original insertion position. All entries must share the embedder's
// fixed dimension.
func (ix *Index) Upsert(ctx context.Context, entries []models.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ix.mu.Lock()
	dim := ix.dim
	for _, e := range entries {
		if len(e.Embedding) == 0 {
			ix.mu.Unlock()
			return fmt.Errorf("entry %s has no embedding", e.ChunkID)
		}
		if dim == 0 {
			dim = len(e.Embedding)
		}
		if len(e.Embedding) != dim {
			ix.mu.Unlock()
			return fmt.Errorf("entry %s dimension %d does not match index dimension %d", e.ChunkID, len(e.Embedding), dim)
		}
	}
	ix.dim = dim

	changed := make([]indexRecord, 0, len(entries))
	for _, e := range entries {
		if pos, ok := ix.byID[e.ChunkID]; ok {
			rec := indexRecord{IndexEntry: e, Seq: ix.records[pos].Seq}
			ix.records[pos] = rec
			changed = append(changed, rec)
			continue
		}
		rec := indexRecord{IndexEntry: e, Seq: ix.nextSeq}
		ix.nextSeq++
		ix.byID[e.ChunkID] = len(ix.records)
		ix.records = append(ix.records, rec)
		changed = append(changed, rec)
	}
	ix.mu.Unlock()

	if ix.store != nil {
		if err := ix.store.SaveEntries(ctx, changed); err != nil {
			return fmt.Errorf("persisting index entries: %w", err)
		}
	}
	return nil
}

// Query returns the min(k, size) most similar entries, descending by
// cosine similarity. Equal scores keep insertion order. An empty index
// yields an empty result, never an error.
func (ix *Index) Query(ctx context.Context, embedding []float32, k int) ([]models.ScoredEntry, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be > 0, got %d", k)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.records) == 0 {
		return []models.ScoredEntry{}, nil
	}
	if len(embedding) != ix.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(embedding), ix.dim)
	}

	scored := make([]models.ScoredEntry, len(ix.records))
	for i, rec := range ix.records {
		scored[i] = models.ScoredEntry{
			Entry: rec.IndexEntry,
			Score: cosineSimilarity(embedding, rec.Embedding),
		}
	}

	// Records start in insertion order, so a stable sort keeps ties
	// deterministic.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Size returns the number of indexed entries.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Clear drops all entries, in memory and in persistence. Used when a
// new knowledge document replaces the old one.
func (ix *Index) Clear(ctx context.Context) error {
	ix.mu.Lock()
	ix.records = nil
	ix.byID = make(map[string]int)
	ix.nextSeq = 0
	ix.dim = 0
	ix.mu.Unlock()

	if ix.store != nil {
		if err := ix.store.DropEntries(ctx); err != nil {
			return fmt.Errorf("dropping index entries: %w", err)
		}
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
