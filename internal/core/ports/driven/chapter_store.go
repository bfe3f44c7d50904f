package driven

import (
	"context"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// ChapterStore persists chapters together with their citations and history
type ChapterStore interface {
	// Save creates or updates a chapter, replacing its history
	Save(ctx context.Context, chapter *domain.Chapter) error

	// Get retrieves a chapter by ID
	Get(ctx context.Context, id string) (*domain.Chapter, error)

	// ListByProposal returns a proposal's chapters ordered by position
	ListByProposal(ctx context.Context, proposalID string) ([]*domain.Chapter, error)

	// Delete removes a chapter
	Delete(ctx context.Context, id string) error

	// DeleteByProposal removes all chapters of a proposal
	DeleteByProposal(ctx context.Context, proposalID string) error
}
