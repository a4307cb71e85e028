package prompt

import (
	"fmt"
	"strings"

	"github.com/spacebio/rag/internal/models"
	"github.com/spacebio/rag/internal/types"
)

type StyleMode string

const (
	ModeManga    StyleMode = "manga"
	ModeColoring StyleMode = "coloring"
)

const (
	// MaxImageCount bounds one visualize request.
	MaxImageCount = 20

	// SubjectLimit caps how much of the answer is carried into each
	// image prompt.
	SubjectLimit = 1500

	// DefaultContextBudget caps the total chunk text interpolated into
	// an answer prompt.
	DefaultContextBudget = 6000
)

const answerTemplate = `You are an assistant for question-answering tasks about space biology research. Use the following pieces of retrieved context to answer the question. Every piece is labeled with its source number. If you don't know the answer, just say that you don't know. Keep the answer concise and grounded in the context.

Question: %s

Context:
%s

Answer:`

type ComposerConfig struct {
	ContextBudget int
}

// Composer builds answer and image prompts deterministically. Prompts
// are single-use strings, never stored.
type Composer struct {
	config ComposerConfig
}

func NewWithConfig(config ComposerConfig) Composer {
	if config.ContextBudget == 0 {
		config.ContextBudget = DefaultContextBudget
	}
	return Composer{config: config}
}

// BuildAnswerPrompt interpolates the question and the ranked chunks into
// the answer template. Chunks are spent in ranked order against the
// context budget; once the budget is exceeded the rest of the ranking is
// dropped. The chunks that made it in are returned so citations can be
// derived from exactly what the model saw.
func (c *Composer) BuildAnswerPrompt(question string, ranked []models.ScoredChunk) (string, []models.ScoredChunk) {
	var kept []models.ScoredChunk
	var contextBuilder strings.Builder

	used := 0
	for _, sc := range ranked {
		if len(kept) > 0 && used+len(sc.Text) > c.config.ContextBudget {
			break
		}

		section := sc.Section
		if section == "" {
			section = "fulltext"
		}
		contextBuilder.WriteString(fmt.Sprintf("[%d] (%s) %s\n\n", len(kept)+1, section, sc.Text))

		used += len(sc.Text)
		kept = append(kept, sc)
	}

	return fmt.Sprintf(answerTemplate, question, strings.TrimRight(contextBuilder.String(), "\n")), kept
}

// ValidateImageArgs rejects a bad style mode or out-of-range count.
// Callers run it before any external call is made.
func ValidateImageArgs(mode StyleMode, count int) error {
	if mode != ModeManga && mode != ModeColoring {
		return types.ValidationError{
			Field:   "mode",
			Message: fmt.Sprintf("mode must be %q or %q", ModeManga, ModeColoring),
		}
	}
	if count < 1 || count > MaxImageCount {
		return types.ValidationError{
			Field:   "imageCount",
			Message: fmt.Sprintf("image count must be between 1 and %d", MaxImageCount),
		}
	}
	return nil
}

// BuildImagePrompts produces count style-specific prompts sharing the
// same truncated subject text.
func BuildImagePrompts(answerText string, mode StyleMode, count int) ([]models.ImageRequest, error) {
	if err := ValidateImageArgs(mode, count); err != nil {
		return nil, err
	}

	subject := answerText
	if runes := []rune(subject); len(runes) > SubjectLimit {
		subject = string(runes[:SubjectLimit])
	}

	requests := make([]models.ImageRequest, 0, count)
	for i := 1; i <= count; i++ {
		var text string
		if mode == ModeManga {
			text = strings.Join([]string{
				"Create a black-and-white MANGA panel that explains this biology concept accurately.",
				fmt.Sprintf("Panel %d: Use speech bubbles and 2-4 small labels on key parts.", i),
				"Style: clean inked linework, halftone shading, dynamic manga composition.",
				"Audience: high-school level; avoid gore or real-person likeness.",
				"Subject to illustrate (science content):",
				subject,
				"Constraints: be scientifically accurate; keep text minimal and readable.",
				"Output: a single square panel suitable for web.",
			}, "\n")
		} else {
			text = strings.Join([]string{
				"Create a COLORING-BOOK style educational page (line art only, no shading) that teaches the biology concept.",
				fmt.Sprintf("Page %d: Thick outlines, large whitespace for coloring, 3-5 small labels (blank lines/boxes).", i),
				"Audience: middle-school level; avoid long paragraphs.",
				"Subject to illustrate (science content):",
				subject,
				"Constraints: scientifically accurate; no shading/halftones; simple shapes.",
				"Output: a single square page suitable for web.",
			}, "\n")
		}

		requests = append(requests, models.ImageRequest{
			Prompt:  text,
			Ordinal: i - 1,
		})
	}

	return requests, nil
}
