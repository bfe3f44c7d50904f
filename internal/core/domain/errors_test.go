package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrAlreadyExists", ErrAlreadyExists, "already exists"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrGenerationInProgress", ErrGenerationInProgress, "generation already in progress"},
		{"ErrRateLimited", ErrRateLimited, "rate limited"},
		{"ErrServiceError", ErrServiceError, "generation service error"},
		{"ErrParseFailure", ErrParseFailure, "unparseable generator response"},
		{"ErrInvalidProvider", ErrInvalidProvider, "invalid provider"},
		{"ErrServiceUnavailable", ErrServiceUnavailable, "service unavailable"},
		{"ErrNotConfigured", ErrNotConfigured, "content generator not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrAlreadyExists,
		ErrInvalidInput,
		ErrGenerationInProgress,
		ErrRateLimited,
		ErrServiceError,
		ErrParseFailure,
		ErrInvalidProvider,
		ErrServiceUnavailable,
		ErrNotConfigured,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("errors should be distinct: %v and %v", err1, err2)
			}
		}
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("title", MsgEmptyChapterTitle)

	if !errors.Is(err, ErrInvalidInput) {
		t.Error("validation error should match ErrInvalidInput")
	}
	if err.Error() != "invalid input: title: "+MsgEmptyChapterTitle {
		t.Errorf("unexpected error text %q", err.Error())
	}

	wrapped := fmt.Errorf("rename chapter: %w", err)
	var verr *ValidationError
	if !errors.As(wrapped, &verr) {
		t.Fatal("expected errors.As to find the validation error")
	}
	if verr.Field != "title" {
		t.Errorf("expected field title, got %s", verr.Field)
	}

	noField := NewValidationError("", "bad")
	if noField.Error() != "invalid input: bad" {
		t.Errorf("unexpected error text %q", noField.Error())
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", NewValidationError("source_name", MsgSourceNameRequired), MsgSourceNameRequired},
		{"rate limited", fmt.Errorf("generate: %w", ErrRateLimited), MsgRateLimitExhausted},
		{"busy", ErrGenerationInProgress, MsgGenerationBusy},
		{"not configured", ErrNotConfigured, MsgGenerationNotReady},
		{"other", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
