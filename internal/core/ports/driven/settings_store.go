package driven

import (
	"context"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// SettingsStore persists AI settings. API keys are encrypted at rest.
type SettingsStore interface {
	// GetAISettings returns ErrNotFound when nothing has been saved yet.
	GetAISettings(ctx context.Context) (*domain.AISettings, error)

	SaveAISettings(ctx context.Context, settings *domain.AISettings) error
}
