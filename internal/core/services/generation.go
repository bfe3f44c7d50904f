package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driving"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/runtime"
)

// Ensure generationService implements GenerationService
var _ driving.GenerationService = (*generationService)(nil)

// DefaultChapterPause is the delay between chapters in a bulk draft
const DefaultChapterPause = 1500 * time.Millisecond

// GenerationConfig holds configuration for the generation service
type GenerationConfig struct {
	Proposals driven.ProposalStore
	Chapters  driven.ChapterStore
	History   *HistoryLog
	Lock      driven.DistributedLock
	Queue     driven.TaskQueue // Optional: required for EnqueueGenerateAll
	Notifier  driven.Notifier  // Optional
	Services  *runtime.Services
	Retry     *RetryPolicy
	Logger    *slog.Logger

	// ChapterPause is the delay between chapters in GenerateAll
	ChapterPause time.Duration
	// Sleep waits between chapters. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// LockTTL bounds the bulk draft lock
	LockTTL time.Duration
}

type generationService struct {
	proposals driven.ProposalStore
	chapters  driven.ChapterStore
	history   *HistoryLog
	lock      driven.DistributedLock
	queue     driven.TaskQueue
	notifier  driven.Notifier
	runner    generationRunner
	logger    *slog.Logger

	pause   time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
	lockTTL time.Duration
}

// NewGenerationService creates a new GenerationService
func NewGenerationService(cfg GenerationConfig) driving.GenerationService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pause := cfg.ChapterPause
	if pause < 0 {
		pause = 0
	} else if pause == 0 {
		pause = DefaultChapterPause
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 30 * time.Minute
	}
	history := cfg.History
	if history == nil {
		history = NewHistoryLog(HistoryLogConfig{Chapters: cfg.Chapters, Logger: logger})
	}

	return &generationService{
		proposals: cfg.Proposals,
		chapters:  cfg.Chapters,
		history:   history,
		lock:      cfg.Lock,
		queue:     cfg.Queue,
		notifier:  cfg.Notifier,
		runner:    newGenerationRunner(cfg.Services, cfg.Retry),
		logger:    logger,
		pause:     pause,
		sleep:     sleep,
		lockTTL:   lockTTL,
	}
}

// ReviewChapter stores reviewer feedback on the chapter. Review fields are
// not part of the committed history.
func (g *generationService) ReviewChapter(ctx context.Context, chapterID string, tone domain.Tone) (*domain.Chapter, error) {
	chapter, proposal, err := g.chapterWithProposal(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	var feedback domain.ReviewerFeedback
	req := reviewerFeedbackRequest(proposal, chapter, g.runner.tone(tone))
	if err := g.runner.decode(ctx, req, &feedback); err != nil {
		return nil, err
	}

	return g.updateChapter(ctx, chapterID, func(c *domain.Chapter) {
		c.ReviewerQuestions = strings.TrimSpace(feedback.ReviewerQuestions)
		c.StrengtheningSuggestions = strings.TrimSpace(feedback.StrengtheningSuggestions)
	})
}

func (g *generationService) GapCheck(ctx context.Context, chapterID string, tone domain.Tone) (*domain.Chapter, error) {
	chapter, proposal, err := g.chapterWithProposal(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	gen, err := g.runner.generator()
	if err != nil {
		return nil, err
	}
	text, err := g.runner.text(ctx, gen, gapCheckRequest(proposal, chapter, g.runner.tone(tone)))
	if err != nil {
		return nil, err
	}

	return g.updateChapter(ctx, chapterID, func(c *domain.Chapter) {
		c.GapCheckResult = text
	})
}

func (g *generationService) EnqueueGenerateAll(ctx context.Context, proposalID string, tone domain.Tone) (*domain.Task, error) {
	if g.queue == nil {
		return nil, domain.ErrServiceUnavailable
	}
	if _, err := g.proposals.Get(ctx, proposalID); err != nil {
		return nil, err
	}
	if _, err := g.runner.generator(); err != nil {
		return nil, err
	}

	task := domain.NewGenerateAllTask(proposalID, tone)
	if err := g.queue.Enqueue(ctx, task); err != nil {
		return nil, fmt.Errorf("enqueue generate-all: %w", err)
	}

	g.logger.Info("generate-all queued", "task_id", task.ID, "proposal_id", proposalID)
	return task, nil
}

// GenerateAll drafts every chapter without content, in chapter order.
// A failed chapter is counted and left untouched. A chapter that is being
// generated elsewhere is skipped.
func (g *generationService) GenerateAll(ctx context.Context, proposalID string, tone domain.Tone) (*domain.TaskResult, error) {
	start := time.Now()

	proposal, err := g.proposals.Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	gen, err := g.runner.generator()
	if err != nil {
		return nil, err
	}

	lockName := driven.GenerateAllLockName(proposalID)
	acquired, err := g.lock.Acquire(ctx, lockName, g.lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, domain.ErrGenerationInProgress
	}
	defer func() {
		if err := g.lock.Release(context.Background(), lockName); err != nil {
			g.logger.Warn("failed to release generate-all lock", "lock", lockName, "error", err)
		}
	}()

	chapters, err := g.chapters.ListByProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	resolvedTone := g.runner.tone(tone)

	result := &domain.TaskResult{Success: true}
	first := true
	for _, chapter := range chapters {
		if strings.TrimSpace(domain.BodyWithoutReferences(chapter.Content)) != "" {
			continue
		}

		if !first {
			if err := g.sleep(ctx, g.pause); err != nil {
				return nil, err
			}
		}
		first = false

		generated, err := g.generateChapter(ctx, gen, proposal, chapter.ID, resolvedTone)
		switch {
		case err != nil:
			result.Failed++
			g.logger.Warn("chapter draft failed",
				"proposal_id", proposalID,
				"chapter_id", chapter.ID,
				"error", err,
			)
		case generated:
			result.Generated++
		default:
			result.Skipped++
		}
	}

	result.Duration = time.Since(start)
	result.Success = result.Failed == 0
	if !result.Success {
		result.Error = fmt.Sprintf("%d chapters failed", result.Failed)
	}

	g.logger.Info("generate-all finished",
		"proposal_id", proposalID,
		"generated", result.Generated,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"duration", result.Duration,
	)
	return result, nil
}

func (g *generationService) Task(ctx context.Context, id string) (*domain.Task, error) {
	if g.queue == nil {
		return nil, domain.ErrNotFound
	}
	return g.queue.GetTask(ctx, id)
}

// generateChapter drafts one chapter under its generation lock. It returns
// false without error when the chapter is busy or was filled meanwhile.
func (g *generationService) generateChapter(ctx context.Context, gen driven.ContentGenerator, proposal *domain.Proposal, chapterID string, tone domain.Tone) (bool, error) {
	lockName := driven.GenerationLockName(chapterID)
	acquired, err := g.lock.Acquire(ctx, lockName, g.lockTTL)
	if err != nil {
		return false, err
	}
	if !acquired {
		return false, nil
	}
	defer func() {
		if err := g.lock.Release(context.Background(), lockName); err != nil {
			g.logger.Warn("failed to release generation lock", "lock", lockName, "error", err)
		}
	}()

	chapter, err := g.chapters.Get(ctx, chapterID)
	if err != nil {
		return false, err
	}

	text, err := g.runner.text(ctx, gen, chapterDraftRequest(proposal, chapter, chapter.UserInput, tone))
	if err != nil {
		return false, err
	}
	if text == "" {
		return false, domain.ErrServiceError
	}

	current, err := g.chapters.Get(ctx, chapterID)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(domain.BodyWithoutReferences(current.Content)) != "" {
		return false, nil
	}

	_, _, err = g.history.Commit(ctx, current, domain.HistoryEntry{
		UserInput: current.UserInput,
		Content:   text,
		Citations: current.Citations,
	})
	if err != nil {
		return false, err
	}
	g.notify(ctx, current, domain.NotificationSuccess, domain.EventGenerated, "已生成「"+current.Title+"」內容。")
	return true, nil
}

func (g *generationService) chapterWithProposal(ctx context.Context, chapterID string) (*domain.Chapter, *domain.Proposal, error) {
	chapter, err := g.chapters.Get(ctx, chapterID)
	if err != nil {
		return nil, nil, err
	}
	proposal, err := g.proposals.Get(ctx, chapter.ProposalID)
	if err != nil {
		return nil, nil, err
	}
	return chapter, proposal, nil
}

// updateChapter re-reads the chapter so the change applies on top of any
// commit made while the generator was running
func (g *generationService) updateChapter(ctx context.Context, chapterID string, apply func(c *domain.Chapter)) (*domain.Chapter, error) {
	chapter, err := g.chapters.Get(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	apply(chapter)
	chapter.UpdatedAt = time.Now()
	if err := g.chapters.Save(ctx, chapter); err != nil {
		return nil, err
	}
	return chapter, nil
}

func (g *generationService) notify(ctx context.Context, chapter *domain.Chapter, level domain.NotificationLevel, event, message string) {
	if g.notifier == nil {
		return
	}
	n := domain.NewNotification(level, event, message)
	n.ProposalID = chapter.ProposalID
	n.ChapterID = chapter.ID
	if err := g.notifier.Notify(ctx, n); err != nil {
		g.logger.Warn("failed to publish notification", "event", event, "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
