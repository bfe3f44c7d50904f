package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

// Ensure GeminiGenerator implements ContentGenerator
var _ driven.ContentGenerator = (*GeminiGenerator)(nil)

// GeminiGenerator implements ContentGenerator on the Gemini API
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	decoder *StructuredDecoder
}

// NewGeminiGenerator creates a Gemini-backed generator. baseURL is only set
// when talking to a proxy or a test server.
func NewGeminiGenerator(ctx context.Context, apiKey, model, baseURL string, decoder *StructuredDecoder) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = domain.DefaultGeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiGenerator{client: client, model: model, decoder: decoder}, nil
}

// Generate implements ContentGenerator
func (g *GeminiGenerator) Generate(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
	return generate(ctx, domain.AIProviderGemini, g.decoder, g.complete, req)
}

func (g *GeminiGenerator) complete(ctx context.Context, p prompt) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
	}
	if p.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(p.User), config)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Provider implements ContentGenerator
func (g *GeminiGenerator) Provider() domain.AIProvider {
	return domain.AIProviderGemini
}

// Model returns the model name in use
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Ping looks up the configured model
func (g *GeminiGenerator) Ping(ctx context.Context) error {
	if _, err := g.client.Models.Get(ctx, g.model, nil); err != nil {
		return classifyError(domain.AIProviderGemini, err)
	}
	return nil
}

// Close implements ContentGenerator
func (g *GeminiGenerator) Close() error {
	return nil
}
