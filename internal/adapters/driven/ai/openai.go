package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

// DefaultOpenAIBaseURL is the public API endpoint
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// Ensure OpenAIGenerator implements ContentGenerator
var _ driven.ContentGenerator = (*OpenAIGenerator)(nil)

// OpenAIGenerator implements ContentGenerator using the chat completions API
type OpenAIGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	decoder *StructuredDecoder
}

// NewOpenAIGenerator creates an OpenAI-backed generator
func NewOpenAIGenerator(apiKey, model, baseURL string, decoder *StructuredDecoder) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = domain.DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	return &OpenAIGenerator{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		decoder: decoder,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatRequest is the request body for the chat completions API
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// chatResponse is the response from the chat completions API
type chatResponse struct {
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *apiErrorBody `json:"error,omitempty"`
}

type apiErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// Generate implements ContentGenerator
func (g *OpenAIGenerator) Generate(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
	return generate(ctx, domain.AIProviderOpenAI, g.decoder, g.complete, req)
}

func (g *OpenAIGenerator) complete(ctx context.Context, p prompt) (string, error) {
	body := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
	}
	if p.Object {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var resp chatResponse
	if err := g.doRequest(ctx, http.MethodPost, "/chat/completions", body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Provider implements ContentGenerator
func (g *OpenAIGenerator) Provider() domain.AIProvider {
	return domain.AIProviderOpenAI
}

// Model returns the model name in use
func (g *OpenAIGenerator) Model() string {
	return g.model
}

// Ping looks up the configured model
func (g *OpenAIGenerator) Ping(ctx context.Context) error {
	var model struct {
		ID string `json:"id"`
	}
	if err := g.doRequest(ctx, http.MethodGet, "/models/"+g.model, nil, &model); err != nil {
		return classifyError(domain.AIProviderOpenAI, err)
	}
	return nil
}

// Close releases idle connections
func (g *OpenAIGenerator) Close() error {
	g.client.CloseIdleConnections()
	return nil
}

// doRequest makes a request to the OpenAI API and decodes the response into out
func (g *OpenAIGenerator) doRequest(ctx context.Context, method, path string, reqBody, out any) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error *apiErrorBody `json:"error"`
		}
		statusErr := &httpStatusError{Code: resp.StatusCode}
		if json.Unmarshal(respBody, &envelope) == nil && envelope.Error != nil {
			statusErr.Message = envelope.Error.Message
		}
		return statusErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
