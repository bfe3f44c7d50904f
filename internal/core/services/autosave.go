package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

const (
	// DefaultDebounce is the quiet period before an edit is committed
	DefaultDebounce = 1500 * time.Millisecond
	// DefaultSavedWindow is how long "saved" shows before returning to idle
	DefaultSavedWindow = 2 * time.Second
)

// AutosaveConfig holds configuration for an AutosaveController
type AutosaveConfig struct {
	Clock       Clock
	Debounce    time.Duration
	SavedWindow time.Duration

	// Commit writes the current draft. It runs without any controller
	// lock held.
	Commit func(ctx context.Context) error

	// OnError is called after a failed commit, before the retry is scheduled
	OnError func(err error)

	Logger *slog.Logger
}

// AutosaveController turns draft changes into debounced commits and tracks
// the save indicator: saving while a commit is pending, saved for a short
// window after it succeeds, error when it failed.
type AutosaveController struct {
	commit      func(ctx context.Context) error
	onError     func(err error)
	logger      *slog.Logger
	commitTask  *DelayedTask
	idleTask    *DelayedTask
	savedWindow time.Duration

	// runMu serializes commits from the timer and from Flush
	runMu sync.Mutex

	mu      sync.Mutex
	status  domain.SaveStatus
	lastErr error
	stopped bool
}

// NewAutosaveController creates an idle controller
func NewAutosaveController(cfg AutosaveConfig) *AutosaveController {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	savedWindow := cfg.SavedWindow
	if savedWindow <= 0 {
		savedWindow = DefaultSavedWindow
	}

	c := &AutosaveController{
		commit:      cfg.Commit,
		onError:     cfg.OnError,
		logger:      logger,
		savedWindow: savedWindow,
		status:      domain.SaveStatusIdle,
	}
	c.commitTask = NewDelayedTask(cfg.Clock, debounce, func() { _ = c.run() })
	c.idleTask = NewDelayedTask(cfg.Clock, savedWindow, c.becomeIdle)
	return c
}

// Touch records a dirty change and restarts the debounce timer
func (c *AutosaveController) Touch() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.status = domain.SaveStatusSaving
	c.mu.Unlock()

	c.idleTask.Cancel()
	c.commitTask.Schedule()
}

// Flush commits a pending change immediately. A timer-driven commit that
// already started is waited for; if it failed, its retry runs right away
// and Flush returns that error.
func (c *AutosaveController) Flush() error {
	if !c.commitTask.Cancel() {
		c.commitTask.Wait()
		if !c.commitTask.Cancel() {
			return nil
		}
	}
	return c.run()
}

// Stop cancels all timers. Pending changes are dropped, so callers flush
// first.
func (c *AutosaveController) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()

	c.commitTask.Cancel()
	c.idleTask.Cancel()
}

// Status returns the save indicator
func (c *AutosaveController) Status() domain.SaveStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastError returns the error of the most recent failed commit
func (c *AutosaveController) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Pending reports whether a commit is scheduled
func (c *AutosaveController) Pending() bool {
	return c.commitTask.Pending()
}

func (c *AutosaveController) run() error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	err := c.commit(context.Background())

	c.mu.Lock()
	stopped := c.stopped
	if err != nil {
		c.status = domain.SaveStatusError
		c.lastErr = err
	} else if !c.commitTask.Pending() {
		c.status = domain.SaveStatusSaved
		c.lastErr = nil
	}
	status := c.status
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("autosave commit failed", "error", err)
		if c.onError != nil {
			c.onError(err)
		}
		if !stopped {
			c.commitTask.Schedule()
		}
		return err
	}

	if status == domain.SaveStatusSaved && !stopped {
		c.idleTask.Schedule()
	}
	return nil
}

func (c *AutosaveController) becomeIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == domain.SaveStatusSaved {
		c.status = domain.SaveStatusIdle
	}
}
