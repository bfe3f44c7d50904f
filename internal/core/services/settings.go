package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driving"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/runtime"
)

// Ensure settingsService implements SettingsService
var _ driving.SettingsService = (*settingsService)(nil)

// settingsService implements the SettingsService interface
type settingsService struct {
	settingsStore driven.SettingsStore
	factory       driven.GeneratorFactory
	services      *runtime.Services
	logger        *slog.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(
	settingsStore driven.SettingsStore,
	factory driven.GeneratorFactory,
	services *runtime.Services,
	logger *slog.Logger,
) driving.SettingsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &settingsService{
		settingsStore: settingsStore,
		factory:       factory,
		services:      services,
		logger:        logger,
	}
}

// GetAISettings returns the stored configuration, or the defaults
func (s *settingsService) GetAISettings(ctx context.Context) (*domain.AISettingsView, error) {
	settings, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return settings.View(), nil
}

// UpdateAISettings builds and pings a generator for the new settings before
// anything is persisted, so a bad key never replaces a working one
func (s *settingsService) UpdateAISettings(ctx context.Context, req driving.UpdateAISettingsRequest) (*domain.AIStatus, error) {
	settings, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	if req.Provider != nil {
		if !req.Provider.IsValid() {
			return nil, domain.NewValidationError("provider", domain.MsgInvalidProvider)
		}
		settings.Provider = *req.Provider
	}
	if req.Tone != nil {
		if !req.Tone.IsValid() {
			return nil, domain.NewValidationError("tone", domain.MsgInvalidTone)
		}
		settings.Tone = *req.Tone
	}
	applyProviderInput(&settings.Gemini, req.Gemini)
	applyProviderInput(&settings.OpenAI, req.OpenAI)

	var gen driven.ContentGenerator
	if settings.IsConfigured() {
		gen, err = s.factory.CreateGenerator(settings)
		if err != nil {
			return nil, err
		}
		if gen != nil {
			if err := gen.Ping(ctx); err != nil {
				_ = gen.Close()
				return nil, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
			}
		}
	}

	settings.UpdatedAt = time.Now()
	if err := s.settingsStore.SaveAISettings(ctx, settings); err != nil {
		if gen != nil {
			_ = gen.Close()
		}
		return nil, err
	}

	s.services.SetGenerator(gen)
	s.services.SetTone(settings.Tone)

	s.logger.Info("AI settings updated",
		"provider", settings.Provider,
		"configured", settings.IsConfigured(),
		"tone", settings.Tone,
	)
	return s.status(settings), nil
}

func (s *settingsService) AIStatus(ctx context.Context) (*domain.AIStatus, error) {
	settings, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return s.status(settings), nil
}

func (s *settingsService) TestConnection(ctx context.Context) error {
	gen, err := s.services.RequireGenerator()
	if err != nil {
		return err
	}
	return gen.Ping(ctx)
}

func (s *settingsService) current(ctx context.Context) (*domain.AISettings, error) {
	settings, err := s.settingsStore.GetAISettings(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.DefaultAISettings(), nil
		}
		return nil, err
	}
	return settings, nil
}

func (s *settingsService) status(settings *domain.AISettings) *domain.AIStatus {
	return &domain.AIStatus{
		Provider:   settings.Provider,
		Configured: settings.IsConfigured(),
		Available:  s.services.Generator() != nil,
		Tone:       s.services.Tone(),
	}
}

func applyProviderInput(creds *domain.ProviderCredentials, in *driving.ProviderInput) {
	if in == nil {
		return
	}
	if model := strings.TrimSpace(in.Model); model != "" {
		creds.Model = model
	}
	if key := strings.TrimSpace(in.APIKey); key != "" {
		creds.APIKey = key
	}
	creds.BaseURL = strings.TrimSpace(in.BaseURL)
}

// RestoreGenerator installs a generator from the stored settings at
// startup. Missing or unusable settings leave generation disabled.
func RestoreGenerator(ctx context.Context, store driven.SettingsStore, factory driven.GeneratorFactory, services *runtime.Services, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	settings, err := store.GetAISettings(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("failed to load AI settings", "error", err)
		}
		return
	}
	services.SetTone(settings.Tone)

	if !settings.IsConfigured() {
		return
	}
	gen, err := factory.CreateGenerator(settings)
	if err != nil {
		logger.Warn("failed to create content generator", "provider", settings.Provider, "error", err)
		return
	}
	services.SetGenerator(gen)
	logger.Info("content generator restored", "provider", settings.Provider)
}
