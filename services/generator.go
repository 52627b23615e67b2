package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"docchat-backend/models"
)

// TextGenerator is the external generative-language service boundary.
type TextGenerator interface {
	GenerateAnswer(ctx context.Context, prompt string) (string, error)
}

// AnswerGenerator sends an assembled prompt to the language model and
// returns a grounded answer carrying the chunk ids that were in context.
type AnswerGenerator struct {
	llm         TextGenerator
	maxAttempts int
	timeout     time.Duration
}

func NewAnswerGenerator(llm TextGenerator, maxAttempts int, timeout time.Duration) *AnswerGenerator {
	return &AnswerGenerator{
		llm:         llm,
		maxAttempts: maxAttempts,
		timeout:     timeout,
	}
}

// Generate makes one generation call per request, retrying transient
// provider failures with backoff. Exhausted retries surface as
// ErrGenerationFailed so the caller can degrade gracefully. The provider
// cannot report which chunks it used, so UsedChunkIDs is every chunk id
// included in the prompt.
func (g *AnswerGenerator) Generate(ctx context.Context, pc PromptContext) (models.Answer, error) {
	tracer := otel.Tracer("generator")
	ctx, span := tracer.Start(ctx, "generator.generate")
	defer span.End()
	span.SetAttributes(
		attribute.Int("generator.prompt_chars", len(pc.Text)),
		attribute.Int("generator.context_chunks", len(pc.ChunkIDs)),
	)

	text, err := retryTransient(ctx, g.maxAttempts, func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return g.llm.GenerateAnswer(callCtx, pc.Text)
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("generator.failed", true))
		return models.Answer{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return models.Answer{
		Text:         text,
		UsedChunkIDs: pc.ChunkIDs,
	}, nil
}
