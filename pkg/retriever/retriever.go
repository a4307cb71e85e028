package retriever

import (
	"context"
	"sort"

	"github.com/spacebio/rag/internal/models"
	"github.com/spacebio/rag/internal/types"
)

// Sections most likely to carry citable findings; hits from these are
// ranked ahead of the rest before the top-k cut.
var defaultPreferredSections = []string{"results", "discussion", "conclusion", "abstract"}

type RetrieverConfig struct {
	DefaultK          int
	FetchMultiplier   int
	PreferredSections []string
}

// Retriever embeds a question and queries the vector index for the
// most similar chunks.
type Retriever struct {
	config   RetrieverConfig
	embedder types.Embedder
	index    types.VectorIndex
}

func NewWithConfig(config RetrieverConfig, embedder types.Embedder, index types.VectorIndex) Retriever {
	if config.DefaultK == 0 {
		config.DefaultK = 4
	}
	if config.FetchMultiplier == 0 {
		config.FetchMultiplier = 4
	}
	if config.PreferredSections == nil {
		config.PreferredSections = defaultPreferredSections
	}
	return Retriever{
		config:   config,
		embedder: embedder,
		index:    index,
	}
}

// Retrieve returns at most k chunks ranked by similarity, with
// preferred-section hits promoted ahead of the rest. k <= 0 falls back
// to the configured default.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		k = r.config.DefaultK
	}

	embeddings, err := r.embedder.CreateEmbedding(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, &types.UpstreamError{Stage: "embed", Err: types.ErrEmptyResult}
	}

	// Overfetch so section promotion has candidates to choose from.
	fetchK := k * r.config.FetchMultiplier
	results, err := r.index.Search(ctx, embeddings[0], fetchK)
	if err != nil {
		return nil, &types.UpstreamError{Stage: "retrieve", Err: err}
	}

	r.promotePreferred(results)

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// promotePreferred stable-sorts preferred-section hits to the front,
// keeping similarity order within each group.
func (r *Retriever) promotePreferred(results []models.ScoredChunk) {
	preferred := make(map[string]bool, len(r.config.PreferredSections))
	for _, s := range r.config.PreferredSections {
		preferred[s] = true
	}

	sort.SliceStable(results, func(i, j int) bool {
		return preferred[results[i].Section] && !preferred[results[j].Section]
	})
}
