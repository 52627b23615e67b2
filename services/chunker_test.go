package services

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat-backend/internal/config"
	"docchat-backend/models"
)

func reconstruct(chunks []models.Chunk, overlap int) string {
	var sb strings.Builder
	for i, chunk := range chunks {
		runes := []rune(chunk.Text)
		if i == 0 {
			sb.WriteString(chunk.Text)
			continue
		}
		sb.WriteString(string(runes[overlap:]))
	}
	return sb.String()
}

func randomText(r *rand.Rand, n int) string {
	words := []string{"store", "hours", "menu", "daily", "open", "close", "special", "café", "pizza", "salad"}
	var sb strings.Builder
	for sb.Len() < n {
		sb.WriteString(words[r.Intn(len(words))])
		switch r.Intn(8) {
		case 0:
			sb.WriteString(". ")
		case 1:
			sb.WriteString("\n\n")
		default:
			sb.WriteString(" ")
		}
	}
	return sb.String()
}

func TestChunkerRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	cases := []struct {
		chunkSize int
		overlap   int
		textLen   int
	}{
		{chunkSize: 100, overlap: 0, textLen: 1000},
		{chunkSize: 100, overlap: 20, textLen: 1000},
		{chunkSize: 1000, overlap: 100, textLen: 5000},
		{chunkSize: 50, overlap: 49, textLen: 400},
		{chunkSize: 200, overlap: 30, textLen: 150}, // doc shorter than chunk
	}

	for _, tc := range cases {
		chunker, err := NewChunker(tc.chunkSize, tc.overlap)
		require.NoError(t, err)

		doc := models.Document{ID: "doc", Text: randomText(r, tc.textLen)}
		chunks := chunker.Split(doc)
		require.NotEmpty(t, chunks)

		assert.Equal(t, doc.Text, reconstruct(chunks, tc.overlap),
			"round trip failed for chunkSize=%d overlap=%d", tc.chunkSize, tc.overlap)
	}
}

func TestChunkerOffsets(t *testing.T) {
	chunker, err := NewChunker(100, 25)
	require.NoError(t, err)

	doc := models.Document{ID: "doc", Text: randomText(rand.New(rand.NewSource(7)), 2000)}
	runes := []rune(doc.Text)
	chunks := chunker.Split(doc)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		assert.NotEmpty(t, chunk.Text, "chunk %d is empty", i)
		assert.Equal(t, string(runes[chunk.StartOffset:chunk.EndOffset]), chunk.Text)
		assert.Equal(t, i, chunk.Order)
		if i > 0 {
			assert.Equal(t, chunks[i-1].EndOffset-25, chunk.StartOffset,
				"chunk %d start must be previous end minus overlap", i)
		}
	}
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, len(runes), chunks[len(chunks)-1].EndOffset)
}

func TestChunkerDeterministic(t *testing.T) {
	chunker, err := NewChunker(80, 10)
	require.NoError(t, err)

	doc := models.Document{ID: "doc", Text: randomText(rand.New(rand.NewSource(3)), 1500)}
	first := chunker.Split(doc)
	second := chunker.Split(doc)
	assert.Equal(t, first, second)
}

func TestChunkerInvalidConfiguration(t *testing.T) {
	cases := []struct {
		chunkSize int
		overlap   int
	}{
		{chunkSize: 0, overlap: 0},
		{chunkSize: -5, overlap: 0},
		{chunkSize: 10, overlap: 10},
		{chunkSize: 10, overlap: 15},
		{chunkSize: 10, overlap: -1},
	}

	for _, tc := range cases {
		_, err := NewChunker(tc.chunkSize, tc.overlap)
		require.Error(t, err, "chunkSize=%d overlap=%d", tc.chunkSize, tc.overlap)
		assert.True(t, errors.Is(err, config.ErrInvalidConfiguration))
	}
}

func TestChunkerEmptyDocument(t *testing.T) {
	chunker, err := NewChunker(100, 10)
	require.NoError(t, err)

	chunks := chunker.Split(models.Document{ID: "doc", Text: ""})
	assert.Empty(t, chunks)
}
