package domain

import "time"

// NotificationLevel is the severity shown to the user.
type NotificationLevel string

const (
	NotificationInfo    NotificationLevel = "info"
	NotificationSuccess NotificationLevel = "success"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// Notification is a user-visible event pushed to connected clients.
type Notification struct {
	Level      NotificationLevel `json:"level"`
	Message    string            `json:"message"`
	Event      string            `json:"event,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	ProposalID string            `json:"proposal_id,omitempty"`
	ChapterID  string            `json:"chapter_id,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Notification events
const (
	EventSaveFailed      = "save_failed"
	EventSaved           = "saved"
	EventGenerated       = "generated"
	EventGenerateFailed  = "generate_failed"
	EventRefined         = "refined"
	EventRefineFailed    = "refine_failed"
	EventCitationAdded   = "citation_added"
	EventReverted        = "reverted"
	EventTaskCompleted   = "task_completed"
	EventTaskFailed      = "task_failed"
	EventValidationError = "validation_error"
)

// NewNotification creates a notification stamped with the current time.
func NewNotification(level NotificationLevel, event, message string) Notification {
	return Notification{
		Level:     level,
		Event:     event,
		Message:   message,
		Timestamp: time.Now(),
	}
}
