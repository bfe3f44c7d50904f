package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driving"
)

// Handler runs one task. Chapter-level failures belong in the result; an
// error means the task as a whole did not run.
type Handler func(ctx context.Context, task *domain.Task) (*domain.TaskResult, error)

// MsgTaskRetrying is appended to a failure notification when the queue
// will hand the task out again
const MsgTaskRetrying = "，稍後將自動重試。"

// Worker pulls tasks from the queue and runs them with a bounded number of
// goroutines
type Worker struct {
	taskQueue driven.TaskQueue
	notifier  driven.Notifier
	logger    *slog.Logger
	handlers  map[domain.TaskType]Handler

	concurrency    int
	dequeueTimeout int // seconds
	errorBackoff   time.Duration
	taskTimeout    time.Duration

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	TaskQueue  driven.TaskQueue
	Generation driving.GenerationService
	Notifier   driven.Notifier // optional
	Logger     *slog.Logger

	Concurrency    int           // default 1
	DequeueTimeout int           // seconds, default 5
	ErrorBackoff   time.Duration // pause after a dequeue error, default 1s
	TaskTimeout    time.Duration // default 30m
}

func NewWorker(cfg WorkerConfig) *Worker {
	w := &Worker{
		taskQueue:      cfg.TaskQueue,
		notifier:       cfg.Notifier,
		logger:         cfg.Logger,
		concurrency:    cfg.Concurrency,
		dequeueTimeout: cfg.DequeueTimeout,
		errorBackoff:   cfg.ErrorBackoff,
		taskTimeout:    cfg.TaskTimeout,
		handlers:       make(map[domain.TaskType]Handler),
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.concurrency <= 0 {
		w.concurrency = 1
	}
	if w.dequeueTimeout <= 0 {
		w.dequeueTimeout = 5
	}
	if w.errorBackoff <= 0 {
		w.errorBackoff = time.Second
	}
	if w.taskTimeout <= 0 {
		w.taskTimeout = 30 * time.Minute
	}

	if cfg.Generation != nil {
		w.handlers[domain.TaskTypeGenerateAll] = generateAll(cfg.Generation)
	}
	return w
}

// generateAll drafts the empty chapters of the task's proposal
func generateAll(generation driving.GenerationService) Handler {
	return func(ctx context.Context, task *domain.Task) (*domain.TaskResult, error) {
		if task.ProposalID == "" {
			return nil, fmt.Errorf("%w: task has no proposal", domain.ErrInvalidInput)
		}
		return generation.GenerateAll(ctx, task.ProposalID, task.Tone())
	}
}

// Start launches the processing goroutines and returns. They run until Stop
// is called or ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
		"task_timeout", w.taskTimeout,
	)

	var wg sync.WaitGroup
	for i := range w.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.processLoop(ctx, w.logger.With("worker_id", i))
		}()
	}
	go func(done chan struct{}) {
		wg.Wait()
		close(done)
	}(w.doneCh)
	return nil
}

// Stop signals the goroutines and waits for in-flight tasks to settle
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	<-done

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	w.logger.Info("worker stopped")
}

func (w *Worker) stopping() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

func (w *Worker) processLoop(ctx context.Context, logger *slog.Logger) {
	for ctx.Err() == nil && !w.stopping() {
		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		switch {
		case err != nil && ctx.Err() != nil:
			return
		case err != nil:
			logger.Error("failed to dequeue task", "error", err)
			w.pause(ctx)
		case task != nil:
			w.processTask(ctx, task, logger)
		}
	}
}

// pause backs off after a queue error without outliving a stop request
func (w *Worker) pause(ctx context.Context) {
	timer := time.NewTimer(w.errorBackoff)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-w.stopCh:
	}
}

// processTask runs one task and settles it on the queue
func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type, "proposal_id", task.ProposalID)
	logger.Info("processing task", "attempt", task.Attempts, "max_attempts", task.MaxAttempts)

	start := time.Now()
	result, err := w.run(ctx, task)
	duration := time.Since(start)

	switch {
	case err == nil:
		result.TaskID = task.ID
		result.Duration = duration
		logger.Info("task completed",
			"duration", duration,
			"generated", result.Generated,
			"failed", result.Failed,
			"skipped", result.Skipped,
		)
		if ackErr := w.taskQueue.Ack(ctx, task.ID, result); ackErr != nil {
			logger.Error("failed to ack task", "error", ackErr)
		}
		level := domain.NotificationSuccess
		if !result.Success {
			level = domain.NotificationWarning
		}
		w.notify(ctx, task, domain.NewNotification(level, domain.EventTaskCompleted, result.Summary()), logger)

	case permanent(err):
		// settled as failed; another attempt would fail the same way
		logger.Warn("task rejected", "duration", duration, "error", err)
		failed := &domain.TaskResult{TaskID: task.ID, Error: err.Error(), Duration: duration}
		if ackErr := w.taskQueue.Ack(ctx, task.ID, failed); ackErr != nil {
			logger.Error("failed to ack task", "error", ackErr)
		}
		w.notify(ctx, task, domain.NewNotification(domain.NotificationError, domain.EventTaskFailed, domain.UserMessage(err)), logger)

	default:
		retrying := task.CanRetry()
		logger.Error("task failed", "duration", duration, "retrying", retrying, "error", err)
		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", "error", nackErr)
		}
		n := domain.NewNotification(domain.NotificationError, domain.EventTaskFailed, domain.UserMessage(err))
		if retrying {
			n.Level = domain.NotificationWarning
			n.Message = strings.TrimSuffix(n.Message, "。") + MsgTaskRetrying
		}
		w.notify(ctx, task, n, logger)
	}
}

func (w *Worker) run(ctx context.Context, task *domain.Task) (*domain.TaskResult, error) {
	handler, ok := w.handlers[task.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown task type %q", domain.ErrInvalidInput, task.Type)
	}
	ctx, cancel := context.WithTimeout(ctx, w.taskTimeout)
	defer cancel()
	return handler(ctx, task)
}

// permanent reports errors that no retry can fix
func permanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNotFound)
}

func (w *Worker) notify(ctx context.Context, task *domain.Task, n domain.Notification, logger *slog.Logger) {
	if w.notifier == nil {
		return
	}
	n.ProposalID = task.ProposalID
	if err := w.notifier.Notify(ctx, n); err != nil {
		logger.Warn("failed to publish task notification", "event", n.Event, "error", err)
	}
}

// Health reports the worker state and queue reachability.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	health := Health{Running: w.running, QueueHealth: true}
	w.mu.RUnlock()

	if err := w.taskQueue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	}
	return health
}
