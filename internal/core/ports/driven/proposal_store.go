package driven

import (
	"context"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// ProposalStore persists proposals
type ProposalStore interface {
	// Save creates or updates a proposal
	Save(ctx context.Context, proposal *domain.Proposal) error

	// Get retrieves a proposal by ID
	Get(ctx context.Context, id string) (*domain.Proposal, error)

	// List returns all proposals, most recently updated first
	List(ctx context.Context) ([]*domain.Proposal, error)

	// Delete removes a proposal
	Delete(ctx context.Context, id string) error
}
