package driven

import (
	"context"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// ContentGenerator produces proposal text through an external LLM.
// Errors wrap domain.ErrRateLimited or domain.ErrServiceError. A response
// that cannot be parsed is not an error: it comes back as a parse_error
// result.
type ContentGenerator interface {
	Generate(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error)

	// Provider returns the backend in use
	Provider() domain.AIProvider

	// Ping verifies the generator is reachable
	Ping(ctx context.Context) error

	// Close releases resources held by the generator
	Close() error
}

// GeneratorFactory creates content generators from settings
type GeneratorFactory interface {
	// CreateGenerator returns nil, nil if the settings are not configured
	CreateGenerator(settings *domain.AISettings) (ContentGenerator, error)
}
