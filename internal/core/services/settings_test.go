package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven/mocks"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driving"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/runtime"
)

func newTestSettingsService() (driving.SettingsService, *mocks.MockSettingsStore, *mocks.MockGeneratorFactory, *runtime.Services) {
	store := mocks.NewMockSettingsStore()
	factory := &mocks.MockGeneratorFactory{Generator: mocks.NewMockContentGenerator()}
	services := runtime.NewServices(domain.NewRuntimeConfig("memory", "memory"))
	return NewSettingsService(store, factory, services, nil), store, factory, services
}

func TestSettingsService_DefaultsWhenNothingStored(t *testing.T) {
	svc, _, _, _ := newTestSettingsService()

	view, err := svc.GetAISettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderGemini, view.Provider)
	assert.False(t, view.GeminiKeySet)

	status, err := svc.AIStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Configured)
	assert.False(t, status.Available)
}

func TestSettingsService_UpdateInstallsGenerator(t *testing.T) {
	svc, store, _, services := newTestSettingsService()
	ctx := context.Background()

	tone := domain.ToneStartup
	status, err := svc.UpdateAISettings(ctx, driving.UpdateAISettingsRequest{
		Tone:   &tone,
		Gemini: &driving.ProviderInput{APIKey: "AIza-secret-1234"},
	})
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.True(t, status.Available)
	assert.Equal(t, domain.ToneStartup, status.Tone)
	assert.NotNil(t, services.Generator())
	assert.Equal(t, domain.ToneStartup, services.Tone())

	stored, err := store.GetAISettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AIza-secret-1234", stored.Gemini.APIKey)

	view, err := svc.GetAISettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "****1234", view.GeminiKeyMasked)

	// an empty key keeps the stored one
	_, err = svc.UpdateAISettings(ctx, driving.UpdateAISettingsRequest{Gemini: &driving.ProviderInput{Model: "gemini-2.5-pro"}})
	require.NoError(t, err)
	stored, _ = store.GetAISettings(ctx)
	assert.Equal(t, "AIza-secret-1234", stored.Gemini.APIKey)
	assert.Equal(t, "gemini-2.5-pro", stored.Gemini.Model)

	require.NoError(t, svc.TestConnection(ctx))
}

func TestSettingsService_RejectsInvalidValues(t *testing.T) {
	svc, _, _, _ := newTestSettingsService()
	ctx := context.Background()

	provider := domain.AIProvider("claude")
	_, err := svc.UpdateAISettings(ctx, driving.UpdateAISettingsRequest{Provider: &provider})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	tone := domain.Tone("casual")
	_, err = svc.UpdateAISettings(ctx, driving.UpdateAISettingsRequest{Tone: &tone})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_FailedPingKeepsPreviousConfiguration(t *testing.T) {
	svc, store, factory, services := newTestSettingsService()
	ctx := context.Background()

	_, err := svc.UpdateAISettings(ctx, driving.UpdateAISettingsRequest{Gemini: &driving.ProviderInput{APIKey: "good-key"}})
	require.NoError(t, err)
	working := services.Generator()

	broken := mocks.NewMockContentGenerator()
	broken.PingErr = errors.New("401 unauthorized")
	factory.Generator = broken

	_, err = svc.UpdateAISettings(ctx, driving.UpdateAISettingsRequest{Gemini: &driving.ProviderInput{APIKey: "bad-key"}})
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)

	stored, _ := store.GetAISettings(ctx)
	assert.Equal(t, "good-key", stored.Gemini.APIKey)
	assert.Same(t, working, services.Generator())
}

func TestSettingsService_HybridNeedsBothKeys(t *testing.T) {
	svc, _, _, services := newTestSettingsService()
	ctx := context.Background()

	hybrid := domain.AIProviderHybrid
	status, err := svc.UpdateAISettings(ctx, driving.UpdateAISettingsRequest{
		Provider: &hybrid,
		Gemini:   &driving.ProviderInput{APIKey: "g"},
	})
	require.NoError(t, err)
	assert.False(t, status.Configured)
	assert.Nil(t, services.Generator())

	assert.ErrorIs(t, svc.TestConnection(ctx), domain.ErrNotConfigured)
}

func TestRestoreGenerator(t *testing.T) {
	store := mocks.NewMockSettingsStore()
	factory := &mocks.MockGeneratorFactory{Generator: mocks.NewMockContentGenerator()}
	services := runtime.NewServices(domain.NewRuntimeConfig("memory", "memory"))
	ctx := context.Background()

	RestoreGenerator(ctx, store, factory, services, nil)
	assert.Nil(t, services.Generator())
	assert.Zero(t, factory.Calls)

	settings := domain.DefaultAISettings()
	settings.Tone = domain.ToneAcademic
	settings.OpenAI.APIKey = "sk-1"
	settings.Provider = domain.AIProviderOpenAI
	require.NoError(t, store.SaveAISettings(ctx, settings))

	RestoreGenerator(ctx, store, factory, services, nil)
	assert.NotNil(t, services.Generator())
	assert.Equal(t, domain.ToneAcademic, services.Tone())
	assert.True(t, services.Config().GeneratorAvailable())
}
