package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat-backend/internal/vectorstore"
	"docchat-backend/models"
)

func seedIndex(t *testing.T, texts map[string]string) *vectorstore.Index {
	t.Helper()
	ix := vectorstore.NewIndex(nil)
	var entries []models.IndexEntry
	for id, text := range texts {
		entries = append(entries, models.IndexEntry{
			ChunkID:   id,
			Embedding: keywordVector(text),
			Text:      text,
		})
	}
	require.NoError(t, ix.Upsert(context.Background(), entries))
	return ix
}

func TestRetrieveRanksRelevantChunkFirst(t *testing.T) {
	ix := seedIndex(t, map[string]string{
		"doc-0000": "We are open daily, hours 9am to 9pm.",
		"doc-0001": "Our menu features pizza and salad.",
		"doc-0002": "Call us for delivery to your address.",
	})
	embedder := &fakeEmbedder{}
	retriever := NewRetriever(embedder, ix, 3, 0.35, 3, time.Second, time.Second)

	result, err := retriever.Retrieve(context.Background(), "when do you open? what are your hours?")
	require.NoError(t, err)
	require.False(t, result.Empty())
	assert.Equal(t, "doc-0000", result.Entries[0].Entry.ChunkID)
}

func TestRetrieveBelowThresholdIsEmptyNotError(t *testing.T) {
	ix := seedIndex(t, map[string]string{
		"doc-0000": "Our menu features pizza and salad.",
	})
	embedder := &fakeEmbedder{}
	retriever := NewRetriever(embedder, ix, 3, 0.35, 3, time.Second, time.Second)

	result, err := retriever.Retrieve(context.Background(), "do you offer delivery?")
	require.NoError(t, err)
	assert.True(t, result.Empty())
	assert.Empty(t, result.ChunkIDs())
}

func TestRetrieveRetriesTransientFailures(t *testing.T) {
	ix := seedIndex(t, map[string]string{
		"doc-0000": "We are open daily, hours 9am to 9pm.",
	})
	embedder := &fakeEmbedder{failures: []error{
		transientErr("rate limited"),
		transientErr("rate limited"),
	}}
	retriever := NewRetriever(embedder, ix, 3, 0.35, 3, time.Second, time.Second)

	result, err := retriever.Retrieve(context.Background(), "what are your opening hours?")
	require.NoError(t, err)
	assert.False(t, result.Empty())
	assert.Equal(t, 3, embedder.Calls())
}

func TestRetrieveExhaustedRetriesSurfacesUnavailable(t *testing.T) {
	ix := seedIndex(t, map[string]string{
		"doc-0000": "We are open daily, hours 9am to 9pm.",
	})
	embedder := &fakeEmbedder{failures: []error{
		transientErr("rate limited"),
		transientErr("rate limited"),
		transientErr("rate limited"),
	}}
	retriever := NewRetriever(embedder, ix, 3, 0.35, 3, time.Second, time.Second)

	_, err := retriever.Retrieve(context.Background(), "what are your opening hours?")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRetrievalUnavailable))
	assert.Equal(t, 3, embedder.Calls())
}

func TestRetrievePermanentFailureIsNotRetried(t *testing.T) {
	ix := seedIndex(t, map[string]string{
		"doc-0000": "We are open daily, hours 9am to 9pm.",
	})
	embedder := &fakeEmbedder{failures: []error{
		permanentErr("invalid request"),
	}}
	retriever := NewRetriever(embedder, ix, 3, 0.35, 3, time.Second, time.Second)

	_, err := retriever.Retrieve(context.Background(), "what are your opening hours?")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRetrievalUnavailable))
	assert.Equal(t, 1, embedder.Calls())
}

func TestRetrieveRespectsTopK(t *testing.T) {
	ix := seedIndex(t, map[string]string{
		"doc-0000": "open hours 9am",
		"doc-0001": "open hours 9pm",
		"doc-0002": "open daily",
		"doc-0003": "open daily hours",
	})
	embedder := &fakeEmbedder{}
	retriever := NewRetriever(embedder, ix, 2, 0.0, 3, time.Second, time.Second)

	result, err := retriever.Retrieve(context.Background(), "what are your opening hours?")
	require.NoError(t, err)
	assert.Len(t, result.Entries, 2)
}
