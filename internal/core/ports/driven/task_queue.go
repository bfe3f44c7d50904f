package driven

import (
	"context"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// TaskQueue carries background generation jobs from the API to workers.
// Implementations use Redis streams, Postgres or an in-process channel.
type TaskQueue interface {
	// Enqueue adds a task to the queue for processing.
	Enqueue(ctx context.Context, task *domain.Task) error

	// DequeueWithTimeout retrieves the next available task, waiting up to
	// timeout seconds. Returns nil, nil if the timeout is reached.
	// The returned task is marked processing.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack records successful completion. result may be nil.
	Ack(ctx context.Context, taskID string, result *domain.TaskResult) error

	// Nack records a failed attempt. The task is rescheduled with backoff
	// while attempts remain, otherwise it is marked failed.
	Nack(ctx context.Context, taskID string, reason string) error

	// GetTask retrieves a task by ID (for status checking).
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// Ping checks if the queue backend is healthy.
	Ping(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}
