package mocks

import (
	"context"
	"sync"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// MockCriteriaStore is an in-memory CriteriaStore
type MockCriteriaStore struct {
	mu       sync.RWMutex
	criteria map[string][]domain.ScoringCriterion
}

// NewMockCriteriaStore creates a new MockCriteriaStore
func NewMockCriteriaStore() *MockCriteriaStore {
	return &MockCriteriaStore{
		criteria: make(map[string][]domain.ScoringCriterion),
	}
}

func (m *MockCriteriaStore) GetCriteria(ctx context.Context, scopeID string) ([]domain.ScoringCriterion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.criteria[scopeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return domain.CloneCriteria(c), nil
}

func (m *MockCriteriaStore) SaveCriteria(ctx context.Context, scopeID string, criteria []domain.ScoringCriterion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.criteria[scopeID] = domain.CloneCriteria(criteria)
	return nil
}

// Reset clears all criteria
func (m *MockCriteriaStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.criteria = make(map[string][]domain.ScoringCriterion)
}
