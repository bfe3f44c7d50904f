package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

// NotificationChannel is the Pub/Sub channel notifications travel on
const NotificationChannel = "plana:notifications"

// Verify interface compliance
var _ driven.Notifier = (*Notifier)(nil)

// Notifier publishes notifications so that every API process can forward
// them to its websocket clients, including notifications raised by workers.
type Notifier struct {
	client *redis.Client
}

// NewNotifier creates a Pub/Sub notifier
func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

// Notify publishes n as JSON
func (n *Notifier) Notify(ctx context.Context, notification domain.Notification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := n.client.Publish(ctx, NotificationChannel, data).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Subscriber forwards published notifications to a local notifier
type Subscriber struct {
	client *redis.Client
	target driven.Notifier
	logger *slog.Logger
}

// NewSubscriber creates a subscriber delivering to target
func NewSubscriber(client *redis.Client, target driven.Notifier, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{client: client, target: target, logger: logger}
}

// Run subscribes and forwards until ctx is cancelled. ready, if not nil,
// is closed once the subscription is confirmed.
func (s *Subscriber) Run(ctx context.Context, ready chan<- struct{}) error {
	pubsub := s.client.Subscribe(ctx, NotificationChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", NotificationChannel, err)
	}
	if ready != nil {
		close(ready)
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var n domain.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				s.logger.Warn("dropping malformed notification", "error", err)
				continue
			}
			if err := s.target.Notify(ctx, n); err != nil {
				s.logger.Warn("failed to forward notification", "event", n.Event, "error", err)
			}
		}
	}
}
