package driving

import (
	"context"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// SessionView is the client-facing state of an editing session
type SessionView struct {
	ID                 string              `json:"id"`
	ProposalID         string              `json:"proposal_id"`
	ChapterID          string              `json:"chapter_id"`
	ChapterTitle       string              `json:"chapter_title"`
	Draft              *domain.DraftBuffer `json:"draft"`
	Status             domain.SaveStatus   `json:"status"`
	Dirty              bool                `json:"dirty"`
	NeedsTemplateDraft bool                `json:"needs_template_draft"`
	HistoryLength      int                 `json:"history_length"`
}

// ChangeRequest edits one draft field. Text is used for user_input and
// content, Citations for citations.
type ChangeRequest struct {
	Field     domain.DraftField `json:"field"`
	Text      string            `json:"text,omitempty"`
	Citations []domain.Citation `json:"citations,omitempty"`
}

// InsertCitationRequest adds a citation at the end of the selection. When
// Selection is nil the session's current selection is used.
type InsertCitationRequest struct {
	SourceName string                 `json:"source_name"`
	URL        string                 `json:"url,omitempty"`
	Selection  *domain.SelectionRange `json:"selection,omitempty"`
}

// GenerateRequest configures a generate or refine call. An empty tone
// uses the configured default.
type GenerateRequest struct {
	Tone domain.Tone `json:"tone,omitempty"`
}

// EditorService runs single-editor sessions over one chapter at a time
type EditorService interface {
	// OpenSession loads a chapter into a fresh draft buffer
	OpenSession(ctx context.Context, proposalID, chapterID string) (*SessionView, error)

	// Session returns the current state of a session
	Session(ctx context.Context, sessionID string) (*SessionView, error)

	// CloseSession flushes pending edits and discards the session
	CloseSession(ctx context.Context, sessionID string) error

	// Change edits the draft and (re)starts the autosave timer when dirty
	Change(ctx context.Context, sessionID string, req ChangeRequest) (*SessionView, error)

	// Select sets or, with nil, clears the content selection
	Select(ctx context.Context, sessionID string, selection *domain.SelectionRange) (*SessionView, error)

	// Flush commits pending edits immediately
	Flush(ctx context.Context, sessionID string) (*SessionView, error)

	// SwitchChapter flushes and loads another chapter of the same proposal
	SwitchChapter(ctx context.Context, sessionID, chapterID string) (*SessionView, error)

	// InsertCitation inserts a citation marker and regenerates the
	// reference list
	InsertCitation(ctx context.Context, sessionID string, req InsertCitationRequest) (*SessionView, error)

	// Revert restores a history entry after preserving the current state
	Revert(ctx context.Context, sessionID string, index int) (*SessionView, error)

	// Generate drafts the chapter content from its notes
	Generate(ctx context.Context, sessionID string, req GenerateRequest) (*SessionView, error)

	// Refine rewrites the existing content
	Refine(ctx context.Context, sessionID string, req GenerateRequest) (*SessionView, error)
}
