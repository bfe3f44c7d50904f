// Package inproc provides single-process implementations of the lock and
// queue ports for running without Redis or PostgreSQL.
package inproc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// Lock is an in-memory DistributedLock with expiry
type Lock struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

// NewLock creates an empty lock table
func NewLock() *Lock {
	return &Lock{held: make(map[string]time.Time), clock: time.Now}
}

// Acquire takes name for ttl unless an unexpired holder exists
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if expiry, ok := l.held[name]; ok && now.Before(expiry) {
		return false, nil
	}
	l.held[name] = now.Add(ttl)
	return true, nil
}

// Release frees name
func (l *Lock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	delete(l.held, name)
	l.mu.Unlock()
	return nil
}

// Extend pushes the expiry of a held lock out by ttl
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if expiry, ok := l.held[name]; !ok || !now.Before(expiry) {
		return fmt.Errorf("extend lock %s: not held", name)
	}
	l.held[name] = now.Add(ttl)
	return nil
}

// Ping always succeeds
func (l *Lock) Ping(ctx context.Context) error {
	return nil
}
