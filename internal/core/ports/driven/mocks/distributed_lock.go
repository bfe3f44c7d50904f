package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type heldLock struct {
	until   time.Time
	foreign bool
}

// MockDistributedLock is an in-memory lock table. Locks placed with
// SetLockHeld belong to another holder and survive Release.
type MockDistributedLock struct {
	mu    sync.Mutex
	locks map[string]heldLock
}

func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{locks: map[string]heldLock{}}
}

func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.heldLocked(name) {
		return false, nil
	}
	m.locks[name] = heldLock{until: time.Now().Add(ttl)}
	return true, nil
}

func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.locks[name]; ok && !l.foreign {
		delete(m.locks, name)
	}
	return nil
}

func (m *MockDistributedLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.locks[name]
	if !m.heldLocked(name) || l.foreign {
		return fmt.Errorf("lock %s not held", name)
	}
	l.until = time.Now().Add(ttl)
	m.locks[name] = l
	return nil
}

func (m *MockDistributedLock) Ping(ctx context.Context) error {
	return nil
}

// IsHeld reports whether anyone holds name
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heldLocked(name)
}

// SetLockHeld makes name busy for ttl, as if another process held it
func (m *MockDistributedLock) SetLockHeld(name string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[name] = heldLock{until: time.Now().Add(ttl), foreign: true}
}

func (m *MockDistributedLock) heldLocked(name string) bool {
	l, ok := m.locks[name]
	return ok && time.Now().Before(l.until)
}
