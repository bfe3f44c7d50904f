package mocks

import (
	"context"
	"sync"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// MockNotifier collects notifications for assertions
type MockNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

// NewMockNotifier creates a new MockNotifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return nil
}

// Sent returns a copy of all notifications
func (m *MockNotifier) Sent() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Notification, len(m.sent))
	copy(out, m.sent)
	return out
}

// Last returns the most recent notification
func (m *MockNotifier) Last() (domain.Notification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return domain.Notification{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// CountEvent returns how many notifications carried the event
func (m *MockNotifier) CountEvent(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.Event == event {
			n++
		}
	}
	return n
}

// Reset clears collected notifications
func (m *MockNotifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
