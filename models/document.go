package models

// Document is a raw knowledge source loaded at ingestion time.
// It is never mutated after creation.
type Document struct {
	ID   string `bson:"_id" json:"id"`
	Name string `bson:"name" json:"name"`
	Text string `bson:"text" json:"text"`
}

// Chunk is a contiguous slice of a Document. Chunks from the same
// document form an ordered sequence with controlled overlap so no
// information is lost at boundaries.
type Chunk struct {
	ID          string `bson:"chunk_id" json:"chunk_id"`
	DocumentID  string `bson:"document_id" json:"document_id"`
	Text        string `bson:"text" json:"text"`
	Order       int    `bson:"order" json:"order"`
	StartOffset int    `bson:"start_offset" json:"start_offset"`
	EndOffset   int    `bson:"end_offset" json:"end_offset"`
}

// IndexEntry is the persisted unit inside the vector index:
// one entry per chunk, embedding dimension fixed by the embedder.
type IndexEntry struct {
	ChunkID   string            `bson:"chunk_id" json:"chunk_id"`
	Embedding []float32         `bson:"embedding" json:"embedding"`
	Text      string            `bson:"text" json:"text"`
	Metadata  map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// ScoredEntry pairs an index entry with its similarity to a query.
type ScoredEntry struct {
	Entry IndexEntry `json:"entry"`
	Score float64    `json:"score"`
}

// RetrievalResult is an ordered sequence of scored entries, ranked
// descending by score, at most top-k long. Ephemeral, produced per query.
type RetrievalResult struct {
	Entries []ScoredEntry `json:"entries"`
}

// ChunkIDs returns the chunk ids in rank order.
func (r RetrievalResult) ChunkIDs() []string {
	ids := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		ids[i] = e.Entry.ChunkID
	}
	return ids
}

// Empty reports whether retrieval produced no entries above threshold.
func (r RetrievalResult) Empty() bool {
	return len(r.Entries) == 0
}

// Answer is the pipeline's final product: the generated text plus the
// chunk ids that were part of the prompt, for citation downstream.
type Answer struct {
	Text         string   `json:"text"`
	UsedChunkIDs []string `json:"used_chunk_ids"`
}
