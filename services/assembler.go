package services

import (
	"fmt"
	"strings"

	"docchat-backend/models"
)

// System instructions are fixed per empty-context policy. The grounded
// variant mirrors the assistant behavior the knowledge-base prompt asks
// for: answer only from the provided context, decline otherwise.
const (
	systemGrounded = "You are a friendly, helpful assistant that answers questions about a " +
		"knowledge document. Base your answers strictly on the context sections provided below. " +
		"If the context does not contain the information needed, say so politely instead of guessing."

	systemDecline = "You are a friendly, helpful assistant that answers questions about a " +
		"knowledge document. No relevant context was found for this question. Politely tell the " +
		"user you do not have that information. Do not invent an answer."

	systemGeneral = "You are a friendly, helpful assistant. No relevant context was found in the " +
		"knowledge document for this question, so answer from general knowledge, and say clearly " +
		"that the answer is not based on the knowledge document."
)

// PromptContext is the bounded prompt handed to the answer generator,
// along with the ids of the chunks it includes.
type PromptContext struct {
	Text     string
	ChunkIDs []string
}

// ContextAssembler merges retrieved chunks, session history, and the
// current query into a prompt that never exceeds the character budget.
type ContextAssembler struct {
	maxChars     int
	historyTurns int
	emptyPolicy  string // "decline" or "general"
}

func NewContextAssembler(maxChars, historyTurns int, emptyPolicy string) *ContextAssembler {
	return &ContextAssembler{
		maxChars:     maxChars,
		historyTurns: historyTurns,
		emptyPolicy:  emptyPolicy,
	}
}

// Assemble builds the prompt: fixed system instructions, retrieved chunk
// texts most relevant first (each tagged with its source chunk id),
// trailing conversation turns, then the current query. When the budget
// is exceeded it drops the least relevant chunk or the oldest history
// turn first; the system instructions and the query are never dropped.
func (a *ContextAssembler) Assemble(session models.Session, query string, retrieval models.RetrievalResult) (PromptContext, error) {
	system := systemGrounded
	if retrieval.Empty() {
		if a.emptyPolicy == "general" {
			system = systemGeneral
		} else {
			system = systemDecline
		}
	}

	footer := fmt.Sprintf("\n\nQuestion:\n%s\n\nAnswer:", query)
	remaining := a.maxChars - len(system) - len(footer)
	if remaining < 0 {
		return PromptContext{}, fmt.Errorf("prompt budget %d cannot hold system instructions and query", a.maxChars)
	}

	// Chunks first, most relevant first; stop at the first one that
	// does not fit.
	var chunkBlocks []string
	var chunkIDs []string
	for _, se := range retrieval.Entries {
		block := fmt.Sprintf("\n\n[Source %s]\n%s", se.Entry.ChunkID, se.Entry.Text)
		if len(block) > remaining {
			break
		}
		chunkBlocks = append(chunkBlocks, block)
		chunkIDs = append(chunkIDs, se.Entry.ChunkID)
		remaining -= len(block)
	}

	// History fills what is left, keeping the most recent turns and
	// dropping the oldest first. The section header is budgeted up front.
	const historyHeader = "\n\nConversation so far:"
	turns := session.Turns
	if a.historyTurns > 0 && len(turns) > a.historyTurns {
		turns = turns[len(turns)-a.historyTurns:]
	}
	var historyLines []string
	if len(turns) > 0 && len(historyHeader) <= remaining {
		remaining -= len(historyHeader)
		for i := len(turns) - 1; i >= 0; i-- {
			line := fmt.Sprintf("\n%s: %s", turns[i].Role, turns[i].Message)
			if len(line) > remaining {
				break
			}
			historyLines = append(historyLines, line)
			remaining -= len(line)
		}
		// Collected newest-first; render chronologically.
		for i, j := 0, len(historyLines)-1; i < j; i, j = i+1, j-1 {
			historyLines[i], historyLines[j] = historyLines[j], historyLines[i]
		}
	}

	var sb strings.Builder
	sb.WriteString(system)
	for _, block := range chunkBlocks {
		sb.WriteString(block)
	}
	if len(historyLines) > 0 {
		sb.WriteString(historyHeader)
		for _, line := range historyLines {
			sb.WriteString(line)
		}
	}
	sb.WriteString(footer)

	return PromptContext{Text: sb.String(), ChunkIDs: chunkIDs}, nil
}
