package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// MockProposalStore is an in-memory ProposalStore
type MockProposalStore struct {
	mu        sync.RWMutex
	proposals map[string]*domain.Proposal

	SaveErr error
}

// NewMockProposalStore creates a new MockProposalStore
func NewMockProposalStore() *MockProposalStore {
	return &MockProposalStore{
		proposals: make(map[string]*domain.Proposal),
	}
}

func (m *MockProposalStore) Save(ctx context.Context, proposal *domain.Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	cp := *proposal
	m.proposals[proposal.ID] = &cp
	return nil
}

func (m *MockProposalStore) Get(ctx context.Context, id string) (*domain.Proposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.proposals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockProposalStore) List(ctx context.Context) ([]*domain.Proposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Proposal, 0, len(m.proposals))
	for _, p := range m.proposals {
		cp := *p
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (m *MockProposalStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.proposals[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.proposals, id)
	return nil
}

// Reset clears all proposals
func (m *MockProposalStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals = make(map[string]*domain.Proposal)
	m.SaveErr = nil
}
