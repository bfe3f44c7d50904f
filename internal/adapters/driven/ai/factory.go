package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

// Ensure Factory implements GeneratorFactory
var _ driven.GeneratorFactory = (*Factory)(nil)

// Factory creates content generators from settings
type Factory struct {
	decoder *StructuredDecoder
	logger  *slog.Logger
}

// NewFactory creates a generator factory. The structured output schemas are
// compiled once here.
func NewFactory(logger *slog.Logger) (*Factory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	decoder, err := NewStructuredDecoder()
	if err != nil {
		return nil, err
	}
	return &Factory{decoder: decoder, logger: logger}, nil
}

// CreateGenerator creates a generator for the selected provider.
// Returns nil, nil if the settings are not configured.
func (f *Factory) CreateGenerator(settings *domain.AISettings) (driven.ContentGenerator, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderGemini:
		return f.gemini(settings)
	case domain.AIProviderOpenAI:
		return f.openAI(settings)
	case domain.AIProviderHybrid:
		primary, err := f.gemini(settings)
		if err != nil {
			return nil, err
		}
		fallback, err := f.openAI(settings)
		if err != nil {
			return nil, err
		}
		return NewHybridGenerator(primary, fallback, f.logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}

func (f *Factory) gemini(settings *domain.AISettings) (*GeminiGenerator, error) {
	c := settings.Gemini
	return NewGeminiGenerator(context.Background(), c.APIKey, c.Model, c.BaseURL, f.decoder)
}

func (f *Factory) openAI(settings *domain.AISettings) (*OpenAIGenerator, error) {
	c := settings.OpenAI
	return NewOpenAIGenerator(c.APIKey, c.Model, c.BaseURL, f.decoder)
}
