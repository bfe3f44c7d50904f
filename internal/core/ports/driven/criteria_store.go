package driven

import (
	"context"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// CriteriaStore persists scoring criteria per scope (usually a proposal ID)
type CriteriaStore interface {
	// GetCriteria returns ErrNotFound when the scope has no saved criteria
	GetCriteria(ctx context.Context, scopeID string) ([]domain.ScoringCriterion, error)

	// SaveCriteria replaces the criteria of a scope
	SaveCriteria(ctx context.Context, scopeID string, criteria []domain.ScoringCriterion) error
}
