package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIGenerator {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	decoder, err := NewStructuredDecoder()
	require.NoError(t, err)
	g, err := NewOpenAIGenerator("sk-test", "", server.URL, decoder)
	require.NoError(t, err)
	return g
}

func chatReply(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
	})
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	var got chatRequest
	g := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		chatReply(w, `{"reviewerQuestions":"Q1","strengtheningSuggestions":"S1"}`)
	})

	req := domain.NewGenerationRequest(domain.GenerationReviewerFeedback, domain.ToneAcademic).
		With(domain.CtxChapterTitle, "市場分析").
		With(domain.CtxContent, "內容")
	result, err := g.Generate(context.Background(), req)
	require.NoError(t, err)

	var feedback domain.ReviewerFeedback
	require.NoError(t, result.Decode(&feedback))
	assert.Equal(t, "Q1", feedback.ReviewerQuestions)

	assert.Equal(t, domain.DefaultOpenAIModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "academic researcher")
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestOpenAIGenerator_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests"}}`, domain.ErrRateLimited},
		{"quota message", http.StatusForbidden, `{"error":{"message":"RESOURCE_EXHAUSTED"}}`, domain.ErrRateLimited},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`, domain.ErrServiceError},
		{"unauthorized", http.StatusUnauthorized, `not json`, domain.ErrServiceError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := g.Generate(context.Background(), domain.NewGenerationRequest(domain.GenerationChapterRefine, ""))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOpenAIGenerator_EmptyAndUnparsable(t *testing.T) {
	var reply atomic.Value
	reply.Store("")
	g := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		chatReply(w, reply.Load().(string))
	})
	ctx := context.Background()

	_, err := g.Generate(ctx, domain.NewGenerationRequest(domain.GenerationChapterRefine, ""))
	assert.ErrorIs(t, err, domain.ErrServiceError)

	reply.Store("sorry, no JSON today")
	result, err := g.Generate(ctx, domain.NewGenerationRequest(domain.GenerationReviewerQuestions, ""))
	require.NoError(t, err, "unparsable output is a result, not an error")
	assert.Equal(t, domain.ResultParseError, result.Status)
	assert.Equal(t, "sorry, no JSON today", result.Raw)
}

func TestOpenAIGenerator_Ping(t *testing.T) {
	g := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/"+domain.DefaultOpenAIModel {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"id":"gpt-4o-mini"}`))
	})
	assert.NoError(t, g.Ping(context.Background()))
	assert.NoError(t, g.Close())
}
