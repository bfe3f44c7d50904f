package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CriteriaStore = (*CriteriaStore)(nil)

// CriteriaStore implements driven.CriteriaStore using PostgreSQL
type CriteriaStore struct {
	db *DB
}

// NewCriteriaStore creates a new CriteriaStore
func NewCriteriaStore(db *DB) *CriteriaStore {
	return &CriteriaStore{db: db}
}

// GetCriteria returns the criteria saved for a scope
func (s *CriteriaStore) GetCriteria(ctx context.Context, scopeID string) ([]domain.ScoringCriterion, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT criteria FROM scoring_criteria WHERE scope_id = $1`, scopeID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get criteria: %w", err)
	}

	criteria := []domain.ScoringCriterion{}
	if err := unmarshalJSON(data, &criteria); err != nil {
		return nil, fmt.Errorf("unmarshal criteria: %w", err)
	}
	return criteria, nil
}

// SaveCriteria replaces the criteria of a scope
func (s *CriteriaStore) SaveCriteria(ctx context.Context, scopeID string, criteria []domain.ScoringCriterion) error {
	data, err := marshalJSON(criteria)
	if err != nil {
		return fmt.Errorf("marshal criteria: %w", err)
	}

	query := `
		INSERT INTO scoring_criteria (scope_id, criteria, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (scope_id) DO UPDATE SET
			criteria = EXCLUDED.criteria,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, scopeID, data, time.Now()); err != nil {
		return fmt.Errorf("save criteria: %w", err)
	}
	return nil
}
