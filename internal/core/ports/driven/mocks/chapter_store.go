package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// MockChapterStore is an in-memory ChapterStore. Chapters are copied on
// the way in and out so callers never share state with the store.
type MockChapterStore struct {
	mu       sync.RWMutex
	chapters map[string]*domain.Chapter
	saves    int

	// SaveFn, when set, runs before a save and can fail it
	SaveFn func(chapter *domain.Chapter) error
}

// NewMockChapterStore creates a new MockChapterStore
func NewMockChapterStore() *MockChapterStore {
	return &MockChapterStore{
		chapters: make(map[string]*domain.Chapter),
	}
}

func (m *MockChapterStore) Save(ctx context.Context, chapter *domain.Chapter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveFn != nil {
		if err := m.SaveFn(chapter); err != nil {
			return err
		}
	}
	m.chapters[chapter.ID] = chapter.Clone()
	m.saves++
	return nil
}

func (m *MockChapterStore) Get(ctx context.Context, id string) (*domain.Chapter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chapters[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (m *MockChapterStore) ListByProposal(ctx context.Context, proposalID string) ([]*domain.Chapter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Chapter
	for _, c := range m.chapters {
		if c.ProposalID == proposalID {
			result = append(result, c.Clone())
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Position < result[j].Position
	})
	return result, nil
}

func (m *MockChapterStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chapters[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.chapters, id)
	return nil
}

func (m *MockChapterStore) DeleteByProposal(ctx context.Context, proposalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.chapters {
		if c.ProposalID == proposalID {
			delete(m.chapters, id)
		}
	}
	return nil
}

// SaveCount returns how many saves succeeded
func (m *MockChapterStore) SaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Reset clears all chapters and hooks
func (m *MockChapterStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chapters = make(map[string]*domain.Chapter)
	m.saves = 0
	m.SaveFn = nil
}
