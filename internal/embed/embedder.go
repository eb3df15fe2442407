// Package embed generates chunk embeddings via an OpenAI-compatible API.
package embed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder wraps an OpenAI-compatible embedding endpoint.
type Embedder struct {
	embedder embeddings.Embedder
	log      *slog.Logger
}

// New creates an Embedder against host using model. An empty token is
// replaced with "none" for local services that skip authentication.
func New(host, model, token string, log *slog.Logger) (*Embedder, error) {
	if token == "" {
		token = "none"
	}
	if log == nil {
		log = slog.Default()
	}

	client, err := openai.New(
		openai.WithBaseURL(host),
		openai.WithToken(token),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return &Embedder{
		embedder: embedder,
		log:      log.With("component", "embedder"),
	}, nil
}

// EmbedTexts generates embeddings for texts, in input order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.log.Debug("generating embeddings", "count", len(texts))
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}
