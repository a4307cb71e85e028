package processor

import (
	"fmt"

	"github.com/spacebio/rag/internal/models"
	"github.com/spacebio/rag/internal/types"
)

type ProcessorConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// Processor splits documents into fixed overlapping windows. Windowing
// is purely positional, so the same text and config always produce the
// same chunk boundaries.
type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) (Processor, error) {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkSize < 1 {
		return Processor{}, types.ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		}
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkSize {
		return Processor{}, types.ValidationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		}
	}

	return Processor{
		config: config,
	}, nil
}

func (p *Processor) Process(docs []models.Document) ([]models.Chunk, error) {
	var chunks []models.Chunk

	for _, doc := range docs {
		for i, text := range p.splitIntoWindows(doc.Text) {
			chunks = append(chunks, models.Chunk{
				ID:         fmt.Sprintf("%s_%d", doc.ID, i),
				DocumentID: doc.ID,
				Text:       text,
				Ordinal:    i,
				URL:        doc.URL,
				Title:      doc.Title,
				Section:    doc.Section,
			})
		}
	}

	return chunks, nil
}

// splitIntoWindows walks the text with stride chunkSize-chunkOverlap so
// each window repeats the tail of its predecessor. The last window may
// be shorter than chunkSize.
func (p *Processor) splitIntoWindows(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	size := p.config.ChunkSize
	stride := size - p.config.ChunkOverlap

	var windows []string
	for start := 0; ; start += stride {
		end := start + size
		if end >= len(runes) {
			windows = append(windows, string(runes[start:]))
			break
		}
		windows = append(windows, string(runes[start:end]))
	}

	return windows
}
