package mocks

import (
	"context"
	"sync"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// MockHistoryArchive records archived entries in memory
type MockHistoryArchive struct {
	mu      sync.Mutex
	entries map[string][]domain.HistoryEntry

	RecordErr error
}

// NewMockHistoryArchive creates a new MockHistoryArchive
func NewMockHistoryArchive() *MockHistoryArchive {
	return &MockHistoryArchive{entries: make(map[string][]domain.HistoryEntry)}
}

func (m *MockHistoryArchive) Record(ctx context.Context, chapter *domain.Chapter, entry domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.entries[chapter.ID] = append(m.entries[chapter.ID], entry)
	return nil
}

func (m *MockHistoryArchive) List(ctx context.Context, chapterID string, limit int) ([]domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.entries[chapterID]
	var out []domain.HistoryEntry
	for i := len(all) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, all[i])
	}
	return out, nil
}

// Count returns the number of archived entries for a chapter
func (m *MockHistoryArchive) Count(chapterID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries[chapterID])
}
