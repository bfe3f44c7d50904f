package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven/mocks"
)

// mockTaskQueue implements driven.TaskQueue for testing
type mockTaskQueue struct {
	mu           sync.Mutex
	tasks        []*domain.Task
	dequeueDelay time.Duration
	dequeueFn    func() (*domain.Task, error)
	pingFn       func() error

	acked  map[string]*domain.TaskResult
	nacked map[string]string
}

func newMockTaskQueue() *mockTaskQueue {
	return &mockTaskQueue{
		tasks:  make([]*domain.Task, 0),
		acked:  make(map[string]*domain.TaskResult),
		nacked: make(map[string]string),
	}
}

func (m *mockTaskQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *mockTaskQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	if m.dequeueDelay > 0 {
		select {
		case <-time.After(m.dequeueDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.dequeueFn != nil {
		return m.dequeueFn()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tasks) == 0 {
		return nil, nil
	}
	task := m.tasks[0]
	m.tasks = m.tasks[1:]
	task.MarkProcessing()
	return task, nil
}

func (m *mockTaskQueue) Ack(ctx context.Context, taskID string, result *domain.TaskResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked[taskID] = result
	return nil
}

func (m *mockTaskQueue) Nack(ctx context.Context, taskID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nacked[taskID] = reason
	return nil
}

func (m *mockTaskQueue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	return nil, domain.ErrNotFound
}

func (m *mockTaskQueue) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn()
	}
	return nil
}

func (m *mockTaskQueue) Close() error {
	return nil
}

func (m *mockTaskQueue) settled(taskID string) (*domain.TaskResult, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.acked[taskID]; ok {
		return r, "", true
	}
	if reason, ok := m.nacked[taskID]; ok {
		return nil, reason, true
	}
	return nil, "", false
}

// mockGenerationService implements driving.GenerationService for testing
type mockGenerationService struct {
	generateAllFn func(ctx context.Context, proposalID string, tone domain.Tone) (*domain.TaskResult, error)
}

func (m *mockGenerationService) ReviewChapter(ctx context.Context, chapterID string, tone domain.Tone) (*domain.Chapter, error) {
	return nil, errors.New("not implemented")
}

func (m *mockGenerationService) GapCheck(ctx context.Context, chapterID string, tone domain.Tone) (*domain.Chapter, error) {
	return nil, errors.New("not implemented")
}

func (m *mockGenerationService) EnqueueGenerateAll(ctx context.Context, proposalID string, tone domain.Tone) (*domain.Task, error) {
	return nil, errors.New("not implemented")
}

func (m *mockGenerationService) GenerateAll(ctx context.Context, proposalID string, tone domain.Tone) (*domain.TaskResult, error) {
	if m.generateAllFn != nil {
		return m.generateAllFn(ctx, proposalID, tone)
	}
	return &domain.TaskResult{Success: true}, nil
}

func (m *mockGenerationService) Task(ctx context.Context, id string) (*domain.Task, error) {
	return nil, domain.ErrNotFound
}

func waitSettled(t *testing.T, queue *mockTaskQueue, taskID string) (*domain.TaskResult, string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if result, reason, ok := queue.settled(taskID); ok {
			return result, reason
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s was never settled", taskID)
	return nil, ""
}

func startWorker(t *testing.T, w *Worker) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	t.Cleanup(w.Stop)
}

func TestNewWorker_Defaults(t *testing.T) {
	w := NewWorker(WorkerConfig{TaskQueue: newMockTaskQueue()})

	if w.concurrency != 1 {
		t.Errorf("expected default concurrency 1, got %d", w.concurrency)
	}
	if w.dequeueTimeout != 5 {
		t.Errorf("expected default dequeue timeout 5, got %d", w.dequeueTimeout)
	}
	if w.errorBackoff != time.Second {
		t.Errorf("expected default backoff 1s, got %v", w.errorBackoff)
	}
	if w.taskTimeout != 30*time.Minute {
		t.Errorf("expected default task timeout 30m, got %v", w.taskTimeout)
	}
	if w.logger == nil {
		t.Error("expected default logger")
	}
	if len(w.handlers) != 0 {
		t.Errorf("expected no handlers without a generation service, got %d", len(w.handlers))
	}

	w = NewWorker(WorkerConfig{TaskQueue: newMockTaskQueue(), Generation: &mockGenerationService{}, Concurrency: 3})
	if w.concurrency != 3 {
		t.Errorf("expected concurrency 3, got %d", w.concurrency)
	}
	if _, ok := w.handlers[domain.TaskTypeGenerateAll]; !ok {
		t.Error("expected a generate_all handler")
	}
}

func TestWorker_StartStop(t *testing.T) {
	queue := newMockTaskQueue()
	queue.dequeueDelay = 50 * time.Millisecond
	w := NewWorker(WorkerConfig{TaskQueue: queue, Generation: &mockGenerationService{}, DequeueTimeout: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	if !w.Health(ctx).Running {
		t.Error("expected worker to be running")
	}
	if err := w.Start(ctx); err != nil {
		t.Errorf("second start should not error: %v", err)
	}

	w.Stop()
	if w.Health(ctx).Running {
		t.Error("expected worker to be stopped")
	}
	w.Stop()
}

func TestWorker_StopsWhenContextCancelled(t *testing.T) {
	queue := newMockTaskQueue()
	queue.dequeueDelay = 20 * time.Millisecond
	w := NewWorker(WorkerConfig{TaskQueue: queue, Generation: &mockGenerationService{}, Concurrency: 2})

	ctx, cancel := context.WithCancel(context.Background())
	_ = w.Start(ctx)
	cancel()

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}

func TestWorker_Health_QueueError(t *testing.T) {
	queue := newMockTaskQueue()
	queue.pingFn = func() error { return errors.New("connection failed") }

	health := NewWorker(WorkerConfig{TaskQueue: queue}).Health(context.Background())
	if health.QueueHealth {
		t.Error("expected queue to be unhealthy")
	}
	if health.Error != "connection failed" {
		t.Errorf("expected error message, got %q", health.Error)
	}
}

func TestWorker_GenerateAllCompletes(t *testing.T) {
	queue := newMockTaskQueue()
	queue.dequeueDelay = 5 * time.Millisecond
	notifier := mocks.NewMockNotifier()

	var gotProposal string
	var gotTone domain.Tone
	w := NewWorker(WorkerConfig{
		TaskQueue: queue,
		Notifier:  notifier,
		Generation: &mockGenerationService{
			generateAllFn: func(ctx context.Context, proposalID string, tone domain.Tone) (*domain.TaskResult, error) {
				gotProposal, gotTone = proposalID, tone
				return &domain.TaskResult{Success: false, Generated: 3, Failed: 1}, nil
			},
		},
	})

	task := domain.NewGenerateAllTask("prop-1", domain.ToneAcademic)
	_ = queue.Enqueue(context.Background(), task)
	startWorker(t, w)
	result, _ := waitSettled(t, queue, task.ID)

	if result == nil {
		t.Fatal("expected task to be acked")
	}
	if result.TaskID != task.ID {
		t.Errorf("expected result for %s, got %s", task.ID, result.TaskID)
	}
	if result.Generated != 3 || result.Failed != 1 {
		t.Errorf("unexpected counts: %+v", result)
	}
	if gotProposal != "prop-1" || gotTone != domain.ToneAcademic {
		t.Errorf("unexpected call: proposal %q tone %q", gotProposal, gotTone)
	}

	n, ok := notifier.Last()
	if !ok {
		t.Fatal("expected a notification")
	}
	if n.Event != domain.EventTaskCompleted || n.Level != domain.NotificationWarning {
		t.Errorf("unexpected notification: %+v", n)
	}
	if n.ProposalID != "prop-1" {
		t.Errorf("expected proposal id on notification, got %q", n.ProposalID)
	}
	if n.Message != result.Summary() {
		t.Errorf("expected summary %q, got %q", result.Summary(), n.Message)
	}
}

func TestWorker_TransientFailure(t *testing.T) {
	tests := []struct {
		name      string
		attempts  int
		wantLevel domain.NotificationLevel
		wantMsg   string
	}{
		{"retry scheduled", 0, domain.NotificationWarning, "此章節正在生成中，請稍候" + MsgTaskRetrying},
		{"attempts exhausted", domain.DefaultTaskAttempts - 1, domain.NotificationError, domain.MsgGenerationBusy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := newMockTaskQueue()
			notifier := mocks.NewMockNotifier()
			w := NewWorker(WorkerConfig{
				TaskQueue: queue,
				Notifier:  notifier,
				Generation: &mockGenerationService{
					generateAllFn: func(ctx context.Context, proposalID string, tone domain.Tone) (*domain.TaskResult, error) {
						return nil, domain.ErrGenerationInProgress
					},
				},
			})

			task := domain.NewGenerateAllTask("prop-1", "")
			task.Attempts = tt.attempts
			task.MarkProcessing()
			w.processTask(context.Background(), task, w.logger)

			if _, reason, ok := queue.settled(task.ID); !ok || reason == "" {
				t.Fatal("expected task to be nacked with a reason")
			}
			n, _ := notifier.Last()
			if n.Event != domain.EventTaskFailed || n.Level != tt.wantLevel {
				t.Errorf("unexpected notification: %+v", n)
			}
			if n.Message != tt.wantMsg {
				t.Errorf("expected %q, got %q", tt.wantMsg, n.Message)
			}
		})
	}
}

func TestWorker_PermanentFailureIsNotRetried(t *testing.T) {
	tests := []struct {
		name string
		task *domain.Task
		err  error
	}{
		{"unknown type", domain.NewTask(domain.TaskType("export_pdf"), "prop-1", nil), nil},
		{"missing proposal id", domain.NewGenerateAllTask("", ""), nil},
		{"deleted proposal", domain.NewGenerateAllTask("prop-gone", ""), domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := newMockTaskQueue()
			notifier := mocks.NewMockNotifier()
			calls := 0
			w := NewWorker(WorkerConfig{
				TaskQueue: queue,
				Notifier:  notifier,
				Generation: &mockGenerationService{
					generateAllFn: func(ctx context.Context, proposalID string, tone domain.Tone) (*domain.TaskResult, error) {
						calls++
						return nil, tt.err
					},
				},
			})

			tt.task.MarkProcessing()
			w.processTask(context.Background(), tt.task, w.logger)

			result, reason, ok := queue.settled(tt.task.ID)
			if !ok || reason != "" {
				t.Fatalf("expected task to be acked, got reason %q", reason)
			}
			if result.Success || result.Error == "" {
				t.Errorf("expected a failed result, got %+v", result)
			}
			if tt.err == nil && calls != 0 {
				t.Error("expected generation not to run")
			}
			if notifier.CountEvent(domain.EventTaskFailed) != 1 {
				t.Errorf("expected one task_failed notification, got %d", notifier.CountEvent(domain.EventTaskFailed))
			}
		})
	}
}

func TestWorker_TaskTimeout(t *testing.T) {
	queue := newMockTaskQueue()
	w := NewWorker(WorkerConfig{
		TaskQueue:   queue,
		TaskTimeout: 20 * time.Millisecond,
		Generation: &mockGenerationService{
			generateAllFn: func(ctx context.Context, proposalID string, tone domain.Tone) (*domain.TaskResult, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		},
	})

	task := domain.NewGenerateAllTask("prop-1", "")
	task.MarkProcessing()
	w.processTask(context.Background(), task, w.logger)

	_, reason, ok := queue.settled(task.ID)
	if !ok || reason != context.DeadlineExceeded.Error() {
		t.Errorf("expected a nack with the deadline error, got %q", reason)
	}
}

func TestWorker_DequeueErrorBacksOff(t *testing.T) {
	queue := newMockTaskQueue()
	var mu sync.Mutex
	calls := 0
	queue.dequeueFn = func() (*domain.Task, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil, errors.New("redis down")
	}

	w := NewWorker(WorkerConfig{
		TaskQueue:    queue,
		Generation:   &mockGenerationService{},
		ErrorBackoff: 50 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = w.Start(ctx)
	time.Sleep(120 * time.Millisecond)
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	if calls == 0 || calls > 4 {
		t.Errorf("expected a few backed-off dequeues, got %d", calls)
	}
}
