package services

import (
	"context"
	"strings"
	"sync"

	"docchat-backend/internal/ai"
)

// fakeEmbedder produces deterministic keyword-count vectors so tests can
// reason about similarity without a provider. A queue of errors can be
// loaded to simulate transient or permanent failures on leading calls.
type fakeEmbedder struct {
	mu       sync.Mutex
	calls    int
	failures []error
}

var embedderKeywords = [][]string{
	{"open", "hours", "9am", "9pm", "daily"},
	{"menu", "pizza", "salad"},
	{"delivery", "address", "phone"},
}

func keywordVector(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, len(embedderKeywords)+1)
	for i, words := range embedderKeywords {
		for _, w := range words {
			vec[i] += float32(strings.Count(lower, w))
		}
	}
	// Bias component keeps zero-keyword texts embeddable.
	vec[len(vec)-1] = 0.1
	return vec
}

func (f *fakeEmbedder) nextFailure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return err
	}
	return nil
}

func (f *fakeEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := f.nextFailure(); err != nil {
		return nil, err
	}
	return keywordVector(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := f.nextFailure(); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = keywordVector(t)
	}
	return vectors, nil
}

// fakeGenerator answers from whatever context sections made it into the
// prompt, echoing the grounded fact tests look for.
type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	prompts  []string
	failures []error
}

func (g *fakeGenerator) GenerateAnswer(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	var err error
	if len(g.failures) > 0 {
		err = g.failures[0]
		g.failures = g.failures[1:]
	}
	g.mu.Unlock()
	if err != nil {
		return "", err
	}

	if strings.Contains(prompt, "9am") {
		return "We open at 9am and close at 9pm, every day.", nil
	}
	if strings.Contains(prompt, "[Source ") {
		return "Here is what the document says.", nil
	}
	return "I'm sorry, I don't have that information.", nil
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *fakeGenerator) LastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

func transientErr(msg string) error {
	return &ai.TransientError{Err: errMsg(msg)}
}

func permanentErr(msg string) error {
	return &ai.PermanentError{Err: errMsg(msg)}
}

type errMsg string

func (e errMsg) Error() string { return string(e) }
