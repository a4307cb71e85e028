package processor_test

import (
	"strings"
	"testing"

	"github.com/spacebio/rag/internal/models"
	"github.com/spacebio/rag/internal/types"
	"github.com/spacebio/rag/pkg/processor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessor_Boundaries(t *testing.T) {
	p, err := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    1000,
		ChunkOverlap: 200,
	})
	require.NoError(t, err)

	text := strings.Repeat("abcdefghij", 300) // 3000 chars
	chunks, err := p.Process([]models.Document{
		{ID: "doc1", Title: "Microgravity and bone loss", Text: text},
	})

	require.NoError(t, err)
	require.Len(t, chunks, 4)

	assert.Equal(t, text[0:1000], chunks[0].Text)
	assert.Equal(t, text[800:1800], chunks[1].Text)
	assert.Equal(t, text[1600:2600], chunks[2].Text)
	assert.Equal(t, text[2400:3000], chunks[3].Text)

	for i, c := range chunks {
		assert.Equal(t, i, c.Ordinal)
		assert.Equal(t, "doc1", c.DocumentID)
		assert.Equal(t, "Microgravity and bone loss", c.Title)
	}
	assert.Equal(t, "doc1_2", chunks[2].ID)
}

func TestProcessor_Reconstruction(t *testing.T) {
	configs := []processor.ProcessorConfig{
		{ChunkSize: 100, ChunkOverlap: 0},
		{ChunkSize: 100, ChunkOverlap: 25},
		{ChunkSize: 64, ChunkOverlap: 63},
		{ChunkSize: 1000, ChunkOverlap: 200},
	}

	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 40)

	for _, cfg := range configs {
		p, err := processor.NewWithConfig(cfg)
		require.NoError(t, err)

		chunks, err := p.Process([]models.Document{{ID: "d", Text: text}})
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		// Drop each successor's leading overlap and concatenate.
		var b strings.Builder
		b.WriteString(chunks[0].Text)
		for _, c := range chunks[1:] {
			b.WriteString(c.Text[cfg.ChunkOverlap:])
		}
		assert.Equal(t, text, b.String(), "config %+v", cfg)
	}
}

func TestProcessor_ShortDocument(t *testing.T) {
	p, err := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    1000,
		ChunkOverlap: 200,
	})
	require.NoError(t, err)

	chunks, err := p.Process([]models.Document{{ID: "d", Text: "short text"}})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0].Text)
}

func TestProcessor_InvalidOverlap(t *testing.T) {
	for _, overlap := range []int{100, 150} {
		_, err := processor.NewWithConfig(processor.ProcessorConfig{
			ChunkSize:    100,
			ChunkOverlap: overlap,
		})
		require.Error(t, err)

		var verr types.ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.Equal(t, "processor.chunk_overlap", verr.Field)
	}
}
