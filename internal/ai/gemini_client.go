package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"docchat-backend/internal/config"
	"docchat-backend/internal/logger"
)

// GeminiClient wraps the Gemini API for embeddings and answer generation.
// It owns the client-side protections (circuit breaker, request rate limit)
// and translates provider errors into the transient/permanent taxonomy.
// Retry policy lives with the callers.
type GeminiClient struct {
	client          *genai.Client
	generativeModel string
	embeddingsModel string
	breaker         *gobreaker.CircuitBreaker
	rateLimiter     *rate.Limiter
}

type RateLimits struct {
	RPM int // Requests per minute
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "tier1":
		return RateLimits{RPM: 1000}
	case "tier2":
		return RateLimits{RPM: 2000}
	default: // free
		return RateLimits{RPM: 10}
	}
}

func NewGeminiClient(cfg *config.Config) (*GeminiClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	limits := getRateLimits(cfg.GeminiTier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), maxInt(limits.RPM/10, 1))

	return &GeminiClient{
		client:          client,
		generativeModel: cfg.GeminiModel,
		embeddingsModel: cfg.EmbeddingsModel,
		breaker:         breaker,
		rateLimiter:     rateLimiter,
	}, nil
}

// Embed returns the embedding vector for a single text.
func (gc *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := gc.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one embedding per input text, in input order.
// The batch is atomic: a provider error mid-batch fails the whole call
// so ingestion never silently loses chunks.
func (gc *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.embed_batch")
	defer span.End()
	span.SetAttributes(
		attribute.Int("gemini.batch_size", len(texts)),
		attribute.String("gemini.model", gc.embeddingsModel),
	)

	if len(texts) == 0 {
		return nil, &PermanentError{Err: fmt.Errorf("empty embedding batch")}
	}

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		return nil, classifyError(err)
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		em := gc.client.EmbeddingModel(gc.embeddingsModel)
		batch := em.NewBatch()
		for _, text := range texts {
			batch = batch.AddContent(genai.Text(text))
		}
		return em.BatchEmbedContents(ctx, batch)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, &TransientError{Err: err}
		}
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return nil, classifyError(err)
	}

	resp := result.(*genai.BatchEmbedContentsResponse)
	if len(resp.Embeddings) != len(texts) {
		return nil, &PermanentError{Err: fmt.Errorf("embedding count mismatch: got %d for %d texts", len(resp.Embeddings), len(texts))}
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, &PermanentError{Err: fmt.Errorf("no embedding returned for text %d", i)}
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// GenerateAnswer sends an assembled prompt to the generative model and
// returns the plain-text answer.
func (gc *GeminiClient) GenerateAnswer(ctx context.Context, prompt string) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_content")
	defer span.End()
	span.SetAttributes(
		attribute.Int("gemini.prompt_chars", len(prompt)),
		attribute.String("gemini.model", gc.generativeModel),
	)

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		return "", classifyError(err)
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.generativeModel)
		model.SetTemperature(0.3)
		model.SetMaxOutputTokens(2048)
		return model.GenerateContent(ctx, genai.Text(prompt))
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", &TransientError{Err: err}
		}
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return "", classifyError(err)
	}

	resp := result.(*genai.GenerateContentResponse)
	text := extractText(resp)
	if text == "" {
		return "", &TransientError{Err: fmt.Errorf("empty response from model")}
	}

	if resp.UsageMetadata != nil {
		span.SetAttributes(attribute.Int("gemini.total_tokens", int(resp.UsageMetadata.TotalTokenCount)))
	}
	return text, nil
}

// extractText flattens the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	total := ""
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				total += string(text)
			}
		}
		break
	}
	return total
}

// Close releases the underlying API client.
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
