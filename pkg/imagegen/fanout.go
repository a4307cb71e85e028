package imagegen

import (
	"context"
	"fmt"

	"github.com/spacebio/rag/internal/models"
	"github.com/spacebio/rag/internal/types"
	"golang.org/x/sync/errgroup"
)

// Orchestrator fans a batch of image prompts out to the image model
// concurrently and joins the results.
//
// Failure policy: all-or-nothing. The first error cancels the group's
// context, outstanding calls are abandoned, and the batch fails with
// that error. No partial images are ever returned.
type Orchestrator struct {
	model types.ImageModel
}

func NewOrchestrator(model types.ImageModel) Orchestrator {
	return Orchestrator{model: model}
}

// GenerateImages runs one call per request and returns results indexed
// by ordinal, so output order matches request order regardless of
// completion order.
func (o Orchestrator) GenerateImages(ctx context.Context, requests []models.ImageRequest) ([]models.ImageResult, error) {
	if len(requests) == 0 {
		return nil, nil
	}

	for _, req := range requests {
		if req.Ordinal < 0 || req.Ordinal >= len(requests) {
			return nil, fmt.Errorf("image request ordinal %d out of range", req.Ordinal)
		}
	}

	results := make([]models.ImageResult, len(requests))

	g, ctx := errgroup.WithContext(ctx)
	for _, req := range requests {
		req := req
		g.Go(func() error {
			payload, err := o.model.GenerateImage(ctx, req.Prompt)
			if err != nil {
				return fmt.Errorf("image %d: %w", req.Ordinal, err)
			}
			results[req.Ordinal] = models.ImageResult{
				Ordinal: req.Ordinal,
				Payload: payload,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
