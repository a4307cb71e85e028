package llm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spacebio/rag/internal/models"
	"github.com/spacebio/rag/internal/types"
	"github.com/spacebio/rag/pkg/prompt"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	SystemTemplate string
	BaseURL        string // Ollama server URL
}

// ChatEngine turns a question and its retrieved chunks into a grounded
// answer with citations. One model call per request, no retries; retry
// policy belongs to the caller.
type ChatEngine struct {
	config   ChatConfig
	composer prompt.Composer
	llm      llms.Model
}

// NewWithConfig creates a ChatEngine backed by an Ollama model.
func NewWithConfig(config ChatConfig, composer prompt.Composer) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "mistral"
	}
	if config.Temperature <= 0 || config.Temperature > 1 {
		return nil, fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = "You are a helpful space biology research assistant. Answer questions using only the provided context."
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	model, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config:   config,
		composer: composer,
		llm:      model,
	}, nil
}

// NewWithModel wires an already-constructed model, mostly for tests.
func NewWithModel(config ChatConfig, composer prompt.Composer, model llms.Model) *ChatEngine {
	return &ChatEngine{
		config:   config,
		composer: composer,
		llm:      model,
	}
}

// Generate builds the answer prompt, invokes the model once, and
// returns the answer verbatim together with one citation per chunk
// that survived the context budget.
func (ce *ChatEngine) Generate(ctx context.Context, question string, ranked []models.ScoredChunk) (models.Answer, error) {
	promptText, kept := ce.composer.BuildAnswerPrompt(question, ranked)

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(schema.ChatMessageTypeHuman, promptText),
	}

	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens))
	if err != nil {
		return models.Answer{}, &types.UpstreamError{Stage: "generate", Err: err}
	}

	text := firstChoiceText(response)
	if text == "" {
		return models.Answer{}, types.ErrEmptyResult
	}

	return models.Answer{
		Text:    text,
		Sources: citations(kept),
	}, nil
}

// GenerateStream is Generate with the answer text delivered in chunks
// over a channel. Citations are known before the model speaks, so they
// are returned up front.
func (ce *ChatEngine) GenerateStream(ctx context.Context, question string, ranked []models.ScoredChunk) (<-chan string, []models.SourceRef, error) {
	promptText, kept := ce.composer.BuildAnswerPrompt(question, ranked)

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(schema.ChatMessageTypeHuman, promptText),
	}

	resultChan := make(chan string)

	go func() {
		defer close(resultChan)

		_, err := ce.llm.GenerateContent(ctx, content,
			llms.WithTemperature(ce.config.Temperature),
			llms.WithMaxTokens(ce.config.MaxTokens),
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				select {
				case resultChan <- string(chunk):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}))
		if err != nil {
			resultChan <- fmt.Sprintf("Error: %v", err)
		}
	}()

	return resultChan, citations(kept), nil
}

func citations(kept []models.ScoredChunk) []models.SourceRef {
	refs := make([]models.SourceRef, 0, len(kept))
	for i, sc := range kept {
		section := sc.Section
		if section == "" {
			section = "fulltext"
		}
		refs = append(refs, models.SourceRef{
			Label:   strconv.Itoa(i + 1),
			Title:   sc.Title,
			URL:     sc.URL,
			Section: section,
		})
	}
	return refs
}

func firstChoiceText(response *llms.ContentResponse) string {
	if response == nil {
		return ""
	}
	for _, choice := range response.Choices {
		if choice != nil && strings.TrimSpace(choice.Content) != "" {
			return choice.Content
		}
	}
	return ""
}
