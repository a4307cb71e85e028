package config

import (
	"net/url"

	"github.com/spacebio/rag/internal/types"
)

func (c *Config) Validate() []types.ValidationError {
	var errors []types.ValidationError

	// Validate LLM config
	if c.LLM.BaseURL == "" {
		errors = append(errors, types.ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, types.ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, types.ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, types.ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	// Validate index config
	if c.Index.Backend != "memory" && c.Index.Backend != "pgvector" {
		errors = append(errors, types.ValidationError{
			Field:   "index.backend",
			Message: "backend must be 'memory' or 'pgvector'",
		})
	}

	if c.Index.Backend == "pgvector" {
		if c.Database.URL == "" {
			errors = append(errors, types.ValidationError{
				Field:   "database.url",
				Message: "database URL is required for the pgvector backend",
			})
		} else if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, types.ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}

		if c.Database.VectorDim < 1 {
			errors = append(errors, types.ValidationError{
				Field:   "database.vector_dim",
				Message: "vector_dim must be positive",
			})
		}
	}

	// Validate retriever config
	if c.Retriever.K < 1 {
		errors = append(errors, types.ValidationError{
			Field:   "retriever.k",
			Message: "k must be positive",
		})
	}

	if c.Retriever.FetchMultiplier < 1 {
		errors = append(errors, types.ValidationError{
			Field:   "retriever.fetch_multiplier",
			Message: "fetch_multiplier must be positive",
		})
	}

	// Validate processor config
	if c.Processor.ChunkSize < 1 {
		errors = append(errors, types.ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		errors = append(errors, types.ValidationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if c.Prompt.ContextBudget < 1 {
		errors = append(errors, types.ValidationError{
			Field:   "prompt.context_budget",
			Message: "context_budget must be positive",
		})
	}

	// Validate harvester config
	if c.Harvester.RateLimit <= 0 {
		errors = append(errors, types.ValidationError{
			Field:   "harvester.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	return errors
}
