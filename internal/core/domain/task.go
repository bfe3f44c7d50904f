package domain

import (
	"strconv"
	"time"
)

// TaskType names a kind of background job
type TaskType string

// TaskTypeGenerateAll drafts every empty chapter of a proposal
const TaskTypeGenerateAll TaskType = "generate_all"

// TaskStatus is where a task is in its lifecycle
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

const (
	// DefaultTaskAttempts bounds how often a queue hands out the same task
	DefaultTaskAttempts = 3

	taskRetryBase = 15 * time.Second
	taskRetryMax  = 5 * time.Minute
)

// Task is a queued job. Queues persist it as JSON or as table columns, so
// every field is plain data.
type Task struct {
	ID         string            `json:"id"`
	Type       TaskType          `json:"type"`
	ProposalID string            `json:"proposal_id"`
	Payload    map[string]string `json:"payload"`
	Status     TaskStatus        `json:"status"`

	Attempts    int         `json:"attempts"`
	MaxAttempts int         `json:"max_attempts"`
	Error       string      `json:"error,omitempty"`
	Result      *TaskResult `json:"result,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ScheduledFor time.Time  `json:"scheduled_for"`
}

// NewTask creates a pending task that is due immediately
func NewTask(taskType TaskType, proposalID string, payload map[string]string) *Task {
	if payload == nil {
		payload = map[string]string{}
	}
	now := time.Now()
	return &Task{
		ID:           NewID("task"),
		Type:         taskType,
		ProposalID:   proposalID,
		Payload:      payload,
		Status:       TaskStatusPending,
		MaxAttempts:  DefaultTaskAttempts,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewGenerateAllTask queues a bulk draft of a proposal. An empty tone means
// the tone configured in the AI settings.
func NewGenerateAllTask(proposalID string, tone Tone) *Task {
	payload := map[string]string{}
	if tone != "" {
		payload["tone"] = string(tone)
	}
	return NewTask(TaskTypeGenerateAll, proposalID, payload)
}

func (t *Task) Tone() Tone {
	return Tone(t.Payload["tone"])
}

// CanRetry reports whether another attempt is allowed
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// MarkProcessing records that a worker claimed the task
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.Attempts++
	t.StartedAt = &now
	t.UpdatedAt = now
}

func (t *Task) MarkCompleted(result *TaskResult) {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.Error = ""
	t.Result = result
	t.CompletedAt = &now
	t.UpdatedAt = now
}

func (t *Task) MarkFailed(reason string) {
	t.Status = TaskStatusFailed
	t.Error = reason
	t.UpdatedAt = time.Now()
}

// Retry puts the task back in the queue after a delay that doubles with
// every attempt, starting at 15s and capped at 5m.
func (t *Task) Retry(reason string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.Error = reason
	t.UpdatedAt = now
	t.ScheduledFor = now.Add(retryDelay(t.Attempts))
}

func retryDelay(attempts int) time.Duration {
	delay := taskRetryBase
	for i := 1; i < attempts && delay < taskRetryMax; i++ {
		delay *= 2
	}
	return min(delay, taskRetryMax)
}

// TaskResult is what a finished generate-all run reports
type TaskResult struct {
	TaskID    string        `json:"task_id"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Generated int           `json:"generated"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
}

// Summary renders the counts for a notification.
func (r *TaskResult) Summary() string {
	s := "已生成 " + strconv.Itoa(r.Generated) + " 個章節"
	if r.Failed > 0 {
		s += "，" + strconv.Itoa(r.Failed) + " 個章節生成失敗"
	}
	return s
}
