package services

import (
	"fmt"

	"docchat-backend/internal/config"
	"docchat-backend/models"
)

// Chunker splits a document into overlapping segments sized for embedding.
// Splits prefer paragraph and sentence boundaries, falling back to a fixed
// width, and are fully deterministic for identical input and settings.
type Chunker struct {
	chunkSize int // in runes
	overlap   int // in runes
}

func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be > 0, got %d", config.ErrInvalidConfiguration, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must satisfy 0 <= overlap < chunk size, got %d", config.ErrInvalidConfiguration, overlap)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split covers the whole document with no gaps: each chunk is a verbatim
// slice, chunk i+1 starts exactly overlap runes before chunk i ends, and
// the final chunk may be shorter than the configured size but never empty.
// Concatenating the chunks with overlaps removed reconstructs the document.
func (c *Chunker) Split(doc models.Document) []models.Chunk {
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return []models.Chunk{}
	}

	var chunks []models.Chunk
	start := 0
	order := 0
	for start < len(runes) {
		end := start + c.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.cutPoint(runes, start, end)
		}

		chunks = append(chunks, models.Chunk{
			ID:          fmt.Sprintf("%s-%04d", doc.ID, order),
			DocumentID:  doc.ID,
			Text:        string(runes[start:end]),
			Order:       order,
			StartOffset: start,
			EndOffset:   end,
		})
		order++

		if end == len(runes) {
			break
		}
		start = end - c.overlap
	}
	return chunks
}

// cutPoint picks the end of the chunk starting at start, given the fixed
// width limit. It prefers the last paragraph break inside the window,
// then the last sentence end, and keeps the fixed limit otherwise. The
// cut always lands after start+overlap so the next chunk makes progress.
func (c *Chunker) cutPoint(runes []rune, start, limit int) int {
	floor := start + c.overlap + 1
	if min := start + c.chunkSize/2; min > floor {
		floor = min
	}

	// Last paragraph break inside the window; the break stays with the
	// preceding chunk.
	for i := limit; i > floor; i-- {
		if i >= start+2 && runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}
	// Last sentence terminator followed by whitespace.
	for i := limit; i > floor; i-- {
		if i >= start+2 && isSpace(runes[i-1]) {
			switch runes[i-2] {
			case '.', '!', '?':
				return i
			}
		}
	}
	return limit
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
