package driving

import (
	"context"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// ProviderInput configures one backend. An empty APIKey keeps the stored key.
type ProviderInput struct {
	Model   string `json:"model,omitempty"`
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

// UpdateAISettingsRequest represents a request to update AI settings
type UpdateAISettingsRequest struct {
	Provider *domain.AIProvider `json:"provider,omitempty"`
	Tone     *domain.Tone       `json:"tone,omitempty"`
	Gemini   *ProviderInput     `json:"gemini,omitempty"`
	OpenAI   *ProviderInput     `json:"openai,omitempty"`
}

// SettingsService manages AI configuration
type SettingsService interface {
	// GetAISettings returns the configuration with keys masked
	GetAISettings(ctx context.Context) (*domain.AISettingsView, error)

	// UpdateAISettings validates the new configuration by building a
	// generator, then persists it and hot-swaps the generator
	UpdateAISettings(ctx context.Context, req UpdateAISettingsRequest) (*domain.AIStatus, error)

	// AIStatus reports whether generation is usable
	AIStatus(ctx context.Context) (*domain.AIStatus, error)

	// TestConnection pings the active generator
	TestConnection(ctx context.Context) error
}
