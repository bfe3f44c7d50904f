package driven

import (
	"context"
	"time"
)

// DistributedLock guards work that must not run twice at the same time,
// such as two generation requests for one chapter or two workers running
// generate-all for one proposal.
type DistributedLock interface {
	// Acquire tries to take the named lock for ttl.
	// It returns false without error when another holder has it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives the lock up. Releasing a lock that is not held is not
	// an error.
	Release(ctx context.Context, name string) error

	// Extend pushes the expiry of a held lock out by ttl.
	// Backends without expiry (advisory locks) treat this as a no-op.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}

// GenerationLockName returns the lock guarding generation for a chapter.
func GenerationLockName(chapterID string) string {
	return "generate:" + chapterID
}

// GenerateAllLockName returns the lock guarding a generate-all run.
func GenerateAllLockName(proposalID string) string {
	return "generate-all:" + proposalID
}
