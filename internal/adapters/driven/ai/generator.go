package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// completeFunc sends one rendered prompt and returns the raw model text
type completeFunc func(ctx context.Context, p prompt) (string, error)

// generate is shared by the single-backend generators: render, complete,
// then decode.
func generate(ctx context.Context, provider domain.AIProvider, decoder *StructuredDecoder, complete completeFunc, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
	p, err := buildPrompt(req)
	if err != nil {
		return nil, err
	}
	raw, err := complete(ctx, p)
	if err != nil {
		return nil, classifyError(provider, err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: %s returned an empty response", domain.ErrServiceError, provider)
	}
	return decoder.Decode(req.Kind, raw), nil
}
