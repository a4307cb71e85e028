package retriever_test

import (
	"context"
	"errors"
	"testing"

	"github.com/spacebio/rag/internal/models"
	"github.com/spacebio/rag/internal/types"
	"github.com/spacebio/rag/pkg/retriever"
	"github.com/spacebio/rag/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEmbedder struct {
	vector []float32
	err    error
}

func (f *fixedEmbedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func seedIndex(t *testing.T) *store.MemoryIndex {
	t.Helper()
	idx := store.NewMemoryIndex()
	err := idx.Add(context.Background(),
		[]models.Chunk{
			{ID: "methods", Section: "methods"},
			{ID: "results", Section: "results"},
			{ID: "intro", Section: "introduction"},
		},
		[][]float32{
			{1, 0},      // closest to query
			{0.9, 0.44}, // second
			{0.7, 0.71}, // third
		})
	require.NoError(t, err)
	return idx
}

func TestRetrieve_TopK(t *testing.T) {
	r := retriever.NewWithConfig(retriever.RetrieverConfig{},
		&fixedEmbedder{vector: []float32{1, 0}}, seedIndex(t))

	results, err := r.Retrieve(context.Background(), "question", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestRetrieve_PromotesPreferredSections(t *testing.T) {
	r := retriever.NewWithConfig(retriever.RetrieverConfig{},
		&fixedEmbedder{vector: []float32{1, 0}}, seedIndex(t))

	results, err := r.Retrieve(context.Background(), "question", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// "results" beats the more similar "methods" chunk.
	assert.Equal(t, "results", results[0].ID)
	assert.Equal(t, "methods", results[1].ID)
	assert.Equal(t, "intro", results[2].ID)
}

func TestRetrieve_EmbedderFailurePropagates(t *testing.T) {
	upstream := &types.UpstreamError{Stage: "embed", Err: errors.New("unreachable")}
	r := retriever.NewWithConfig(retriever.RetrieverConfig{},
		&fixedEmbedder{err: upstream}, seedIndex(t))

	_, err := r.Retrieve(context.Background(), "question", 2)

	var uerr *types.UpstreamError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "embed", uerr.Stage)
}

func TestRetrieve_DefaultK(t *testing.T) {
	r := retriever.NewWithConfig(retriever.RetrieverConfig{DefaultK: 1},
		&fixedEmbedder{vector: []float32{1, 0}}, seedIndex(t))

	results, err := r.Retrieve(context.Background(), "question", 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
