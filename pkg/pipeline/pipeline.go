package pipeline

import (
	"context"

	"github.com/spacebio/rag/internal/models"
	"github.com/spacebio/rag/internal/types"
	"github.com/spacebio/rag/pkg/prompt"
)

// Retriever is the retrieval stage dependency.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]models.ScoredChunk, error)
}

// ImageFanout is the image batch dependency.
type ImageFanout interface {
	GenerateImages(ctx context.Context, requests []models.ImageRequest) ([]models.ImageResult, error)
}

// State is the record the stages share. Each stage only appends its
// own field; stages run strictly in sequence, so no locking.
type State struct {
	Question   string
	K          int
	Mode       prompt.StyleMode
	ImageCount int

	Context []models.ScoredChunk
	Answer  models.Answer
	Images  []models.ImageResult
}

// Stage is one pipeline step over the shared state.
type Stage func(ctx context.Context, state *State) error

// VisualizeResult pairs the grounded answer with its illustration
// batch.
type VisualizeResult struct {
	Answer models.Answer
	Images []models.ImageResult
}

// Pipeline sequences retrieve -> generate (-> fanout) over a shared
// state record. A deliberately plain stage list: two or three steps do
// not need a graph runner.
type Pipeline struct {
	retriever Retriever
	generator types.Generator
	fanout    ImageFanout
}

func New(retriever Retriever, generator types.Generator, fanout ImageFanout) *Pipeline {
	return &Pipeline{
		retriever: retriever,
		generator: generator,
		fanout:    fanout,
	}
}

// Ask answers a question grounded in the top-k retrieved chunks.
func (p *Pipeline) Ask(ctx context.Context, question string, k int) (models.Answer, error) {
	state := &State{Question: question, K: k}

	err := run(ctx, state,
		p.retrieveStage,
		p.generateStage,
	)
	if err != nil {
		return models.Answer{}, err
	}

	return state.Answer, nil
}

// Visualize answers the question and then fans out imageCount
// style-specific illustration prompts built from the answer. Arguments
// are validated before the first external call.
func (p *Pipeline) Visualize(ctx context.Context, question string, mode prompt.StyleMode, imageCount int) (*VisualizeResult, error) {
	if err := prompt.ValidateImageArgs(mode, imageCount); err != nil {
		return nil, err
	}

	state := &State{
		Question:   question,
		Mode:       mode,
		ImageCount: imageCount,
	}

	err := run(ctx, state,
		p.retrieveStage,
		p.generateStage,
		p.fanoutStage,
	)
	if err != nil {
		return nil, err
	}

	return &VisualizeResult{
		Answer: state.Answer,
		Images: state.Images,
	}, nil
}

func run(ctx context.Context, state *State, stages ...Stage) error {
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := stage(ctx, state); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) retrieveStage(ctx context.Context, state *State) error {
	chunks, err := p.retriever.Retrieve(ctx, state.Question, state.K)
	if err != nil {
		return err
	}
	state.Context = chunks
	return nil
}

func (p *Pipeline) generateStage(ctx context.Context, state *State) error {
	answer, err := p.generator.Generate(ctx, state.Question, state.Context)
	if err != nil {
		return err
	}
	state.Answer = answer
	return nil
}

func (p *Pipeline) fanoutStage(ctx context.Context, state *State) error {
	requests, err := prompt.BuildImagePrompts(state.Answer.Text, state.Mode, state.ImageCount)
	if err != nil {
		return err
	}

	images, err := p.fanout.GenerateImages(ctx, requests)
	if err != nil {
		return err
	}
	state.Images = images
	return nil
}
