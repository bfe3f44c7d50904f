package inproc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// ErrQueueClosed is returned by Enqueue after Close
var ErrQueueClosed = errors.New("queue closed")

// Queue is a TaskQueue backed by a buffered channel. Tasks are lost when
// the process exits. Delayed tasks are delivered by timers.
type Queue struct {
	ready chan string

	mu     sync.Mutex
	tasks  map[string]*domain.Task
	timers map[string]*time.Timer
	closed bool
}

// NewQueue creates a queue holding up to capacity ready tasks
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 64
	}
	return &Queue{
		ready:  make(chan string, capacity),
		tasks:  make(map[string]*domain.Task),
		timers: make(map[string]*time.Timer),
	}
}

// Enqueue stores a copy of task and makes it ready when it is due
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	cp := *task
	q.tasks[task.ID] = &cp
	return q.scheduleLocked(ctx, &cp)
}

// scheduleLocked must be called with q.mu held
func (q *Queue) scheduleLocked(ctx context.Context, task *domain.Task) error {
	delay := time.Until(task.ScheduledFor)
	if delay <= 0 {
		select {
		case q.ready <- task.ID:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
			return errors.New("queue is full")
		}
	}

	id := task.ID
	q.timers[id] = time.AfterFunc(delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.timers, id)
		if q.closed {
			return
		}
		select {
		case q.ready <- id:
		default:
			// full: try again shortly
			q.timers[id] = time.AfterFunc(time.Second, func() { q.requeue(id) })
		}
	})
	return nil
}

func (q *Queue) requeue(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.timers, id)
	if task, ok := q.tasks[id]; ok && !q.closed {
		_ = q.scheduleLocked(context.Background(), task)
	}
}

// DequeueWithTimeout waits up to timeout seconds for a ready task
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	var wait <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(time.Duration(timeout) * time.Second)
		defer timer.Stop()
		wait = timer.C
	}

	for {
		var id string
		if wait == nil {
			select {
			case id = <-q.ready:
			default:
				return nil, nil
			}
		} else {
			select {
			case id = <-q.ready:
			case <-wait:
				return nil, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		q.mu.Lock()
		task, ok := q.tasks[id]
		if ok && task.Status == domain.TaskStatusPending {
			task.MarkProcessing()
			cp := *task
			q.mu.Unlock()
			return &cp, nil
		}
		q.mu.Unlock()
	}
}

// Ack marks a task completed
func (q *Queue) Ack(ctx context.Context, taskID string, result *domain.TaskResult) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return domain.ErrNotFound
	}
	task.MarkCompleted(result)
	return nil
}

// Nack retries the task with backoff while attempts remain
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return domain.ErrNotFound
	}
	if !task.CanRetry() {
		task.MarkFailed(reason)
		return nil
	}
	task.Retry(reason)
	return q.scheduleLocked(ctx, task)
}

// GetTask returns a copy of the stored task
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *task
	return &cp, nil
}

// Ping always succeeds
func (q *Queue) Ping(ctx context.Context) error {
	return nil
}

// Close stops pending timers. Queued tasks are discarded.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	return nil
}
