package ai

import (
	"context"
	"errors"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
)

// ErrNilModel is returned when an adapter is built around a nil model.
var ErrNilModel = errors.New("ai: model is nil")

// ModelGenerator adapts a langchaingo llms.Model to Generator.
type ModelGenerator struct {
	model   llms.Model
	options []llms.CallOption
}

// NewModelGenerator wraps a langchaingo model. The call options are applied to
// every Generate call.
func NewModelGenerator(model llms.Model, options ...llms.CallOption) (*ModelGenerator, error) {
	if model == nil {
		return nil, ErrNilModel
	}
	return &ModelGenerator{model: model, options: options}, nil
}

// Generate sends a single human message and returns the first choice.
func (g *ModelGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, g.model, prompt, g.options...)
}

// langchainEmbedder exposes an Embedder through langchaingo's embeddings.Embedder
// so it can back langchaingo vector stores.
type langchainEmbedder struct {
	embedder Embedder
}

// AsLangchainEmbedder adapts an Embedder to embeddings.Embedder.
// A nil embedder yields nil.
func AsLangchainEmbedder(e Embedder) embeddings.Embedder {
	if e == nil {
		return nil
	}
	return &langchainEmbedder{embedder: e}
}

func (l *langchainEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return l.embedder.EmbedTexts(ctx, texts)
}

func (l *langchainEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return l.embedder.EmbedText(ctx, text)
}
