package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// classifyError maps a backend failure onto ErrRateLimited or ErrServiceError.
// Context cancellation passes through unchanged.
func classifyError(provider domain.AIProvider, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrServiceError) {
		return err
	}
	if isRateLimitError(err) {
		return fmt.Errorf("%w: %s: %v", domain.ErrRateLimited, provider, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrServiceError, provider, err)
}

// isRateLimitError trusts the status of typed errors and only falls back
// to the message for untyped ones. genai returns APIError by value.
func isRateLimitError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED"
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") || strings.Contains(s, "resource_exhausted")
}

// httpStatusError is a non-2xx response from a hand-rolled HTTP client
type httpStatusError struct {
	Code    int
	Message string
}

func (e *httpStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}
