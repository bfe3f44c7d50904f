package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

func TestNotifier_SubscriberForwards(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan domain.Notification, 1)
	target := driven.NotifierFunc(func(ctx context.Context, n domain.Notification) error {
		received <- n
		return nil
	})

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- NewSubscriber(client, target, nil).Run(ctx, ready) }()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not start")
	}

	n := domain.NewNotification(domain.NotificationSuccess, domain.EventTaskCompleted, "已生成 3 個章節")
	n.ProposalID = "prop-1"
	require.NoError(t, NewNotifier(client).Notify(ctx, n))

	select {
	case got := <-received:
		assert.Equal(t, domain.EventTaskCompleted, got.Event)
		assert.Equal(t, "prop-1", got.ProposalID)
		assert.Equal(t, "已生成 3 個章節", got.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not forwarded")
	}

	// the malformed message is skipped and the subscriber keeps running
	mr.Publish(NotificationChannel, "not json")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}

func TestNotifier_PublishFailure(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	err := NewNotifier(client).Notify(context.Background(), domain.NewNotification(domain.NotificationInfo, domain.EventSaved, "ok"))
	assert.Error(t, err)
}
