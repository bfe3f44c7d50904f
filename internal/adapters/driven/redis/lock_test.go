package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestLock_OwnersAreUnique(t *testing.T) {
	client, _ := setupTestRedis(t)

	a, b := NewLock(client), NewLock(client)
	assert.NotEmpty(t, a.Owner())
	assert.NotEqual(t, a.Owner(), b.Owner())
}

func TestLock_AcquireIsExclusive(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	editor, worker := NewLock(client), NewLock(client)
	name := driven.GenerationLockName("chap-1")

	ok, err := editor.Acquire(ctx, name, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = worker.Acquire(ctx, name, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder is refused")

	ok, err = editor.Acquire(ctx, name, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "the lock is not re-entrant")

	owner, err := mr.Get(lockPrefix + name)
	require.NoError(t, err)
	assert.Equal(t, editor.Owner(), owner)
}

func TestLock_ReleaseOnlyByOwner(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	owner, other := NewLock(client), NewLock(client)
	name := driven.GenerateAllLockName("prop-1")

	_, err := owner.Acquire(ctx, name, time.Minute)
	require.NoError(t, err)

	require.NoError(t, other.Release(ctx, name))
	assert.True(t, mr.Exists(lockPrefix+name), "a foreign release is ignored")

	require.NoError(t, owner.Release(ctx, name))
	assert.False(t, mr.Exists(lockPrefix+name))

	require.NoError(t, owner.Release(ctx, name), "releasing a free lock is not an error")
}

func TestLock_ExpiryFreesTheLock(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	a, b := NewLock(client), NewLock(client)

	_, err := a.Acquire(ctx, "x", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	ok, err := b.Acquire(ctx, "x", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLock_Extend(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	a, b := NewLock(client), NewLock(client)

	_, err := a.Acquire(ctx, "x", time.Second)
	require.NoError(t, err)

	require.NoError(t, a.Extend(ctx, "x", time.Minute))
	assert.Equal(t, time.Minute, mr.TTL(lockPrefix+"x"))

	assert.ErrorIs(t, b.Extend(ctx, "x", time.Minute), ErrLockNotHeld)
	assert.ErrorIs(t, b.Extend(ctx, "missing", time.Minute), ErrLockNotHeld)
}

func TestLock_Ping(t *testing.T) {
	client, mr := setupTestRedis(t)
	lock := NewLock(client)

	require.NoError(t, lock.Ping(context.Background()))
	mr.Close()
	assert.Error(t, lock.Ping(context.Background()))
}
