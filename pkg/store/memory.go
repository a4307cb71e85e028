package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/spacebio/rag/internal/models"
)

type entry struct {
	chunk     models.Chunk
	embedding []float32
	norm      float32
}

// MemoryIndex is an in-memory vector index with linear-scan cosine
// search. Good for corpora in the low thousands of chunks; the
// pgvector-backed index covers anything bigger.
type MemoryIndex struct {
	mu      sync.RWMutex
	dim     int
	entries []entry
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Add appends chunks with their embeddings as one atomic batch.
// Readers see either none or all of a batch, never a partial one.
func (m *MemoryIndex) Add(ctx context.Context, chunks []models.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d != %d", len(chunks), len(embeddings))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dim := m.dim
	batch := make([]entry, 0, len(chunks))
	for i, emb := range embeddings {
		if len(emb) == 0 {
			return fmt.Errorf("empty embedding for chunk %s", chunks[i].ID)
		}
		if dim == 0 {
			dim = len(emb)
		}
		if len(emb) != dim {
			return fmt.Errorf("embedding dimension mismatch for chunk %s: got %d, index has %d",
				chunks[i].ID, len(emb), dim)
		}
		batch = append(batch, entry{
			chunk:     chunks[i],
			embedding: emb,
			norm:      vectorNorm(emb),
		})
	}

	m.dim = dim
	m.entries = append(m.entries, batch...)
	return nil
}

// Search returns the k entries most similar to the query, descending
// by cosine similarity, earlier-inserted entries winning ties.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]models.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 {
		return nil, nil
	}
	if len(query) != m.dim {
		return nil, fmt.Errorf("query dimension mismatch: got %d, index has %d", len(query), m.dim)
	}
	if k > len(m.entries) {
		k = len(m.entries)
	}
	if k < 1 {
		return nil, nil
	}

	queryNorm := vectorNorm(query)

	scored := make([]models.ScoredChunk, len(m.entries))
	for i, e := range m.entries {
		scored[i] = models.ScoredChunk{
			Chunk: e.chunk,
			Score: cosine(query, queryNorm, e.embedding, e.norm),
		}
	}

	// Stable keeps insertion order between equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored[:k], nil
}

func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryIndex) Close() {}

func vectorNorm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}

func cosine(a []float32, aNorm float32, b []float32, bNorm float32) float32 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (float64(aNorm) * float64(bNorm)))
}
