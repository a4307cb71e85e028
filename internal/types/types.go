package types

import (
	"context"

	"github.com/spacebio/rag/internal/models"
)

// Core interfaces
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

type VectorIndex interface {
	Add(ctx context.Context, chunks []models.Chunk, embeddings [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]models.ScoredChunk, error)
	Size() int
	Close()
}

type Generator interface {
	Generate(ctx context.Context, question string, chunks []models.ScoredChunk) (models.Answer, error)
}

type ImageModel interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

type Harvester interface {
	Harvest(ctx context.Context, urls []string) ([]models.Document, error)
}
