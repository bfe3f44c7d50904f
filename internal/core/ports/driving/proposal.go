package driving

import (
	"context"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// CreateProposalRequest represents a request to create a proposal
type CreateProposalRequest struct {
	Title   string                   `json:"title"`
	Summary domain.ConceptionSummary `json:"summary"`
}

// UpdateProposalRequest represents a request to update a proposal
type UpdateProposalRequest struct {
	Title   *string                   `json:"title,omitempty"`
	Summary *domain.ConceptionSummary `json:"summary,omitempty"`
}

// AddChapterRequest represents a request to add a chapter
type AddChapterRequest struct {
	Title       string `json:"title"`
	TemplateKey string `json:"template_key,omitempty"`
}

// DeleteChapterResult names the chapter to activate after a delete.
// NextActiveID is empty when no chapters remain.
type DeleteChapterResult struct {
	DeletedID    string `json:"deleted_id"`
	NextActiveID string `json:"next_active_id,omitempty"`
}

// ProposalService manages proposals, their chapters and chapter history
type ProposalService interface {
	CreateProposal(ctx context.Context, req CreateProposalRequest) (*domain.Proposal, error)

	// GetProposal returns the proposal with its ordered chapters
	GetProposal(ctx context.Context, id string) (*domain.ProposalWithChapters, error)

	ListProposals(ctx context.Context) ([]*domain.ProposalSummary, error)

	UpdateProposal(ctx context.Context, id string, req UpdateProposalRequest) (*domain.Proposal, error)

	// DeleteProposal removes the proposal and all of its chapters
	DeleteProposal(ctx context.Context, id string) error

	// AddChapter appends a chapter. A template key leaves the content
	// empty and is reported through NeedsTemplateDraft.
	AddChapter(ctx context.Context, proposalID string, req AddChapterRequest) (*domain.Chapter, error)

	RenameChapter(ctx context.Context, chapterID, title string) (*domain.Chapter, error)

	// DeleteChapter removes a chapter and names the one to activate next
	DeleteChapter(ctx context.Context, chapterID string) (*DeleteChapterResult, error)

	ListChapters(ctx context.Context, proposalID string) ([]*domain.Chapter, error)

	GetChapter(ctx context.Context, chapterID string) (*domain.Chapter, error)

	// History returns the chapter history, most recent first
	History(ctx context.Context, chapterID string) ([]domain.IndexedHistoryEntry, error)

	// Revert restores the entry at index (storage order)
	Revert(ctx context.Context, chapterID string, index int) (*domain.Chapter, error)

	// ArchivedHistory reads the external history archive
	ArchivedHistory(ctx context.Context, chapterID string, limit int) ([]domain.HistoryEntry, error)
}
