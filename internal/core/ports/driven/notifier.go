package driven

import (
	"context"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// Notifier publishes user-visible notifications. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, n domain.Notification) error

// Notify calls f(ctx, n)
func (f NotifierFunc) Notify(ctx context.Context, n domain.Notification) error {
	return f(ctx, n)
}

// MultiNotifier fans a notification out to several notifiers and returns
// the first error.
type MultiNotifier []Notifier

// Notify delivers to every notifier
func (m MultiNotifier) Notify(ctx context.Context, n domain.Notification) error {
	var firstErr error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
