package llm

import (
	"context"
	"fmt"

	"github.com/spacebio/rag/internal/types"
	"github.com/tmc/langchaingo/llms/ollama"
)

type EmbedderConfig struct {
	Model   string
	BaseURL string
}

// Embedder maps text to dense vectors with a remote embedding model.
// A failed call always surfaces as an UpstreamError; it never degrades
// to zero vectors, which would poison the index.
type Embedder struct {
	config EmbedderConfig
	llm    *ollama.LLM
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	emb, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{
		config: config,
		llm:    emb,
	}, nil
}

// CreateEmbedding returns one vector per input text, in input order.
func (e *Embedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings, err := e.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, &types.UpstreamError{Stage: "embed", Err: err}
	}

	if len(embeddings) != len(texts) {
		return nil, &types.UpstreamError{
			Stage: "embed",
			Err:   fmt.Errorf("got %d embeddings for %d texts", len(embeddings), len(texts)),
		}
	}

	return embeddings, nil
}
