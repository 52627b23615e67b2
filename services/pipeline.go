package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"docchat-backend/internal/logger"
	"docchat-backend/models"
)

// MessageArchive persists answered turns durably. The pipeline treats it
// as best-effort: an archive error never fails an answered request.
type MessageArchive interface {
	Save(ctx context.Context, msg models.Message) error
}

// ChatPipeline orchestrates one question end to end:
// retrieve -> assemble -> generate -> commit the turn to the session.
// Session history is only updated after a fully successful run, so a
// failed or cancelled request leaves no partial state behind.
type ChatPipeline struct {
	retriever *Retriever
	assembler *ContextAssembler
	generator *AnswerGenerator
	sessions  *SessionStore
	archive   MessageArchive // may be nil
}

func NewChatPipeline(retriever *Retriever, assembler *ContextAssembler, generator *AnswerGenerator, sessions *SessionStore, archive MessageArchive) *ChatPipeline {
	return &ChatPipeline{
		retriever: retriever,
		assembler: assembler,
		generator: generator,
		sessions:  sessions,
		archive:   archive,
	}
}

// Answer processes one user question within a session. sessionID may be
// empty, in which case a fresh session is started. The returned session
// id identifies the session the turn was committed to.
func (p *ChatPipeline) Answer(ctx context.Context, sessionID, question string) (models.Answer, string, error) {
	tracer := otel.Tracer("pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.answer")
	defer span.End()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	span.SetAttributes(attribute.String("pipeline.session_id", sessionID))

	session := p.sessions.GetOrCreate(sessionID)

	retrieval, err := p.retriever.Retrieve(ctx, question)
	if err != nil {
		return models.Answer{}, sessionID, err
	}
	span.SetAttributes(attribute.Int("pipeline.retrieved_chunks", len(retrieval.Entries)))

	promptCtx, err := p.assembler.Assemble(session, question, retrieval)
	if err != nil {
		return models.Answer{}, sessionID, err
	}

	answer, err := p.generator.Generate(ctx, promptCtx)
	if err != nil {
		return models.Answer{}, sessionID, err
	}

	// Commit both turns only now that the full run succeeded.
	now := time.Now()
	p.sessions.Append(sessionID,
		models.Turn{Role: "user", Message: question, Timestamp: now},
		models.Turn{Role: "assistant", Message: answer.Text, Timestamp: now},
	)

	if p.archive != nil {
		msg := models.Message{
			SessionID:    sessionID,
			Question:     question,
			Answer:       answer.Text,
			CitedSources: answer.UsedChunkIDs,
			Timestamp:    now,
		}
		if err := p.archive.Save(ctx, msg); err != nil {
			logger.Warn("Failed to archive message", "session_id", sessionID, "error", err)
		}
	}

	return answer, sessionID, nil
}
