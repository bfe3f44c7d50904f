package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

// MockContentGenerator is a testify mock of ContentGenerator. When
// GenerateFn is set it is used instead of the recorded expectations,
// which suits tests that need to block or count calls.
type MockContentGenerator struct {
	mock.Mock

	ProviderName domain.AIProvider
	GenerateFn   func(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error)
	PingErr      error
}

// NewMockContentGenerator creates a generator reporting the gemini provider
func NewMockContentGenerator() *MockContentGenerator {
	return &MockContentGenerator{ProviderName: domain.AIProviderGemini}
}

func (m *MockContentGenerator) Generate(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, req)
	}
	args := m.Called(ctx, req)
	var res *domain.GenerationResult
	if r := args.Get(0); r != nil {
		res = r.(*domain.GenerationResult)
	}
	return res, args.Error(1)
}

func (m *MockContentGenerator) Provider() domain.AIProvider {
	return m.ProviderName
}

func (m *MockContentGenerator) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockContentGenerator) Close() error {
	return nil
}

// MockGeneratorFactory returns a fixed generator or error
type MockGeneratorFactory struct {
	Generator driven.ContentGenerator
	Err       error
	Calls     int
}

func (f *MockGeneratorFactory) CreateGenerator(settings *domain.AISettings) (driven.ContentGenerator, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	if !settings.IsConfigured() {
		return nil, nil
	}
	return f.Generator, nil
}
