package ai

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

// Ensure HybridGenerator implements ContentGenerator
var _ driven.ContentGenerator = (*HybridGenerator)(nil)

// HybridGenerator sends every request to a primary generator and retries it
// once on the fallback when the primary fails with a service error. Rate
// limits are returned as-is so the caller's backoff applies.
type HybridGenerator struct {
	primary  driven.ContentGenerator
	fallback driven.ContentGenerator
	logger   *slog.Logger
}

// NewHybridGenerator creates a hybrid generator
func NewHybridGenerator(primary, fallback driven.ContentGenerator, logger *slog.Logger) *HybridGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridGenerator{primary: primary, fallback: fallback, logger: logger}
}

// Generate implements ContentGenerator
func (h *HybridGenerator) Generate(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
	result, err := h.primary.Generate(ctx, req)
	if err == nil || !errors.Is(err, domain.ErrServiceError) {
		return result, err
	}

	h.logger.Warn("primary generator failed, using fallback",
		"primary", h.primary.Provider(),
		"fallback", h.fallback.Provider(),
		"kind", req.Kind,
		"error", err,
	)
	return h.fallback.Generate(ctx, req)
}

// Provider implements ContentGenerator
func (h *HybridGenerator) Provider() domain.AIProvider {
	return domain.AIProviderHybrid
}

// Ping succeeds when either backend is reachable
func (h *HybridGenerator) Ping(ctx context.Context) error {
	primaryErr := h.primary.Ping(ctx)
	if primaryErr == nil {
		return nil
	}
	if err := h.fallback.Ping(ctx); err != nil {
		return errors.Join(primaryErr, err)
	}
	return nil
}

// Close closes both backends
func (h *HybridGenerator) Close() error {
	return errors.Join(h.primary.Close(), h.fallback.Close())
}
