package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  base_url: "http://localhost:11434"
  model: "mistral"
  max_tokens: 1000
  temperature: 0.5

embedder:
  model: "nomic-embed-text:latest"

index:
  backend: "pgvector"

database:
  url: "postgres://localhost:5432/spacebio"
  table_name: "chunks"
  vector_dim: 768

retriever:
  k: 6

processor:
  chunk_size: 500
  chunk_overlap: 100

images:
  model: "gemini-2.5-flash-image-preview"

harvester:
  rate_limit: 1.5
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	// Test loading config
	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Verify loaded values
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "pgvector", config.Index.Backend)
	assert.Equal(t, "postgres://localhost:5432/spacebio", config.Database.URL)
	assert.Equal(t, 6, config.Retriever.K)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.Equal(t, 1.5, config.Harvester.RateLimit)

	// Defaults fill in the unset values
	assert.Equal(t, 6000, config.Prompt.ContextBudget)
	assert.Equal(t, 4, config.Retriever.FetchMultiplier)
}

func TestDefaultConfig(t *testing.T) {
	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, "memory", config.Index.Backend)
	assert.Equal(t, 1000, config.Processor.ChunkSize)
	assert.Equal(t, 200, config.Processor.ChunkOverlap)
	assert.Empty(t, config.Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "overlap not below chunk size",
			mutate: func(c *Config) { c.Processor.ChunkOverlap = c.Processor.ChunkSize },
			field:  "processor.chunk_overlap",
		},
		{
			name:   "unknown index backend",
			mutate: func(c *Config) { c.Index.Backend = "faiss" },
			field:  "index.backend",
		},
		{
			name:   "pgvector without database url",
			mutate: func(c *Config) { c.Index.Backend = "pgvector"; c.Database.URL = "" },
			field:  "database.url",
		},
		{
			name:   "negative k",
			mutate: func(c *Config) { c.Retriever.K = -1 },
			field:  "retriever.k",
		},
		{
			name:   "negative rate limit",
			mutate: func(c *Config) { c.Harvester.RateLimit = -1 },
			field:  "harvester.rate_limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := getDefaultConfig()
			require.NoError(t, err)
			tt.mutate(config)

			errs := config.Validate()
			require.NotEmpty(t, errs)

			found := false
			for _, e := range errs {
				if e.Field == tt.field {
					found = true
				}
			}
			assert.True(t, found, "expected error on %s, got %v", tt.field, errs)
		})
	}
}
