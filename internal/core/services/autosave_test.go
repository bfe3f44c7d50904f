package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

func TestDelayedTask_RestartsOnSchedule(t *testing.T) {
	clock := newFakeClock()
	var runs int32
	task := NewDelayedTask(clock, time.Second, func() { atomic.AddInt32(&runs, 1) })

	task.Schedule()
	clock.Advance(900 * time.Millisecond)
	task.Schedule()
	clock.Advance(900 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&runs), "restart should postpone the run")
	assert.True(t, task.Pending())

	clock.Advance(200 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
	assert.False(t, task.Pending())
}

func TestDelayedTask_CancelAndFlush(t *testing.T) {
	clock := newFakeClock()
	var runs int32
	task := NewDelayedTask(clock, time.Second, func() { atomic.AddInt32(&runs, 1) })

	assert.False(t, task.Flush(), "nothing pending")

	task.Schedule()
	assert.True(t, task.Cancel())
	clock.Advance(2 * time.Second)
	assert.Equal(t, int32(0), atomic.LoadInt32(&runs))

	task.Schedule()
	assert.True(t, task.Flush())
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))

	clock.Advance(2 * time.Second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs), "flushed run must not fire again")
}

func newTestAutosave(clock *fakeClock, commit func(ctx context.Context) error, onError func(error)) *AutosaveController {
	return NewAutosaveController(AutosaveConfig{
		Clock:       clock,
		Debounce:    DefaultDebounce,
		SavedWindow: DefaultSavedWindow,
		Commit:      commit,
		OnError:     onError,
	})
}

func TestAutosave_DebouncesBurstIntoOneCommit(t *testing.T) {
	clock := newFakeClock()
	var commits int32
	c := newTestAutosave(clock, func(ctx context.Context) error {
		atomic.AddInt32(&commits, 1)
		return nil
	}, nil)

	assert.Equal(t, domain.SaveStatusIdle, c.Status())

	for i := 0; i < 5; i++ {
		c.Touch()
		clock.Advance(500 * time.Millisecond)
	}
	assert.Equal(t, domain.SaveStatusSaving, c.Status())
	assert.Equal(t, int32(0), atomic.LoadInt32(&commits))

	clock.Advance(DefaultDebounce)
	assert.Equal(t, int32(1), atomic.LoadInt32(&commits))
	assert.Equal(t, domain.SaveStatusSaved, c.Status())

	clock.Advance(DefaultSavedWindow)
	assert.Equal(t, domain.SaveStatusIdle, c.Status())
}

func TestAutosave_EditDuringSavedWindowReturnsToSaving(t *testing.T) {
	clock := newFakeClock()
	c := newTestAutosave(clock, func(ctx context.Context) error { return nil }, nil)

	c.Touch()
	clock.Advance(DefaultDebounce)
	require.Equal(t, domain.SaveStatusSaved, c.Status())

	c.Touch()
	assert.Equal(t, domain.SaveStatusSaving, c.Status())

	clock.Advance(DefaultSavedWindow - time.Millisecond)
	assert.Equal(t, domain.SaveStatusSaved, c.Status(), "second commit fired at the debounce deadline")
}

func TestAutosave_FailureRetriesAndReportsError(t *testing.T) {
	clock := newFakeClock()
	var attempts int32
	var reported []error
	c := newTestAutosave(clock, func(ctx context.Context) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return errors.New("disk full")
		}
		return nil
	}, func(err error) { reported = append(reported, err) })

	c.Touch()
	clock.Advance(DefaultDebounce)

	assert.Equal(t, domain.SaveStatusError, c.Status())
	assert.EqualError(t, c.LastError(), "disk full")
	require.Len(t, reported, 1)
	assert.True(t, c.Pending(), "a retry should be scheduled")

	clock.Advance(DefaultDebounce)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	assert.Equal(t, domain.SaveStatusSaved, c.Status())
	assert.NoError(t, c.LastError())
}

func TestAutosave_FlushCommitsImmediately(t *testing.T) {
	clock := newFakeClock()
	var commits int32
	c := newTestAutosave(clock, func(ctx context.Context) error {
		atomic.AddInt32(&commits, 1)
		return nil
	}, nil)

	require.NoError(t, c.Flush(), "flush without pending change is a no-op")
	assert.Equal(t, int32(0), atomic.LoadInt32(&commits))

	c.Touch()
	require.NoError(t, c.Flush())
	assert.Equal(t, int32(1), atomic.LoadInt32(&commits))

	clock.Advance(DefaultDebounce)
	assert.Equal(t, int32(1), atomic.LoadInt32(&commits), "timer must not commit again")
}

func TestAutosave_FlushReturnsCommitError(t *testing.T) {
	clock := newFakeClock()
	c := newTestAutosave(clock, func(ctx context.Context) error { return errors.New("offline") }, nil)

	c.Touch()
	err := c.Flush()
	assert.EqualError(t, err, "offline")
	assert.Equal(t, domain.SaveStatusError, c.Status())
}

func TestAutosave_StopDropsPendingWork(t *testing.T) {
	clock := newFakeClock()
	var commits int32
	c := newTestAutosave(clock, func(ctx context.Context) error {
		atomic.AddInt32(&commits, 1)
		return nil
	}, nil)

	c.Touch()
	c.Stop()
	clock.Advance(time.Minute)
	assert.Equal(t, int32(0), atomic.LoadInt32(&commits))

	c.Touch()
	assert.False(t, c.Pending(), "stopped controller ignores touches")
}

func TestDelayedTask_WaitCoversClaimedRun(t *testing.T) {
	clock := newFakeClock()
	started := make(chan struct{})
	release := make(chan struct{})
	task := NewDelayedTask(clock, time.Second, func() {
		close(started)
		<-release
	})

	task.Schedule()
	go clock.Advance(time.Second)
	<-started

	assert.False(t, task.Cancel(), "a claimed run is no longer pending")

	waited := make(chan struct{})
	go func() {
		task.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		t.Fatal("Wait returned while the run was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the run finished")
	}
}

func TestAutosave_FlushRetriesFailedTimerCommit(t *testing.T) {
	clock := newFakeClock()
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	c := newTestAutosave(clock, func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
			return errors.New("offline")
		}
		return nil
	}, nil)

	c.Touch()
	go clock.Advance(DefaultDebounce)
	<-started

	flushed := make(chan error, 1)
	go func() { flushed <- c.Flush() }()

	close(release)
	select {
	case err := <-flushed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("flush did not return")
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "the failed commit is retried by the flush")
	assert.False(t, c.Pending())
	assert.Equal(t, domain.SaveStatusSaved, c.Status())
}
