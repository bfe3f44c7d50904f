package services

import (
	"context"
	"log/slog"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

// HistoryLog commits and reverts chapter state. Every change goes through
// a copy of the chapter that is only returned once the store accepted it,
// so a failed save never leaves a half-applied chapter behind.
type HistoryLog struct {
	chapters driven.ChapterStore
	archive  driven.HistoryArchive
	clock    Clock
	logger   *slog.Logger
}

// HistoryLogConfig holds configuration for a HistoryLog
type HistoryLogConfig struct {
	Chapters driven.ChapterStore
	Archive  driven.HistoryArchive // Optional: external copy of history
	Clock    Clock
	Logger   *slog.Logger
}

// NewHistoryLog creates a HistoryLog
func NewHistoryLog(cfg HistoryLogConfig) *HistoryLog {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &HistoryLog{
		chapters: cfg.Chapters,
		archive:  cfg.Archive,
		clock:    clock,
		logger:   logger,
	}
}

// Commit appends entry (unless it repeats the last entry's text), updates
// the committed fields and saves the chapter. It returns the saved chapter
// and whether a history entry was appended.
func (h *HistoryLog) Commit(ctx context.Context, chapter *domain.Chapter, entry domain.HistoryEntry) (*domain.Chapter, bool, error) {
	next := chapter.Clone()
	entry.Timestamp = h.clock.Now()
	appended := next.Commit(entry)

	if err := h.chapters.Save(ctx, next); err != nil {
		return nil, false, err
	}

	if appended {
		h.record(ctx, next, entry)
	}
	return next, appended, nil
}

// Revert preserves the current committed state and restores the entry at
// index. History is never truncated.
func (h *HistoryLog) Revert(ctx context.Context, chapter *domain.Chapter, index int) (*domain.Chapter, error) {
	next := chapter.Clone()
	now := h.clock.Now()
	snapshot := next.Snapshot(now)

	appended, err := next.RevertTo(index, now)
	if err != nil {
		return nil, err
	}

	if err := h.chapters.Save(ctx, next); err != nil {
		return nil, err
	}

	if appended {
		h.record(ctx, next, snapshot)
	}
	return next, nil
}

// List returns the history newest first
func (h *HistoryLog) List(chapter *domain.Chapter) []domain.IndexedHistoryEntry {
	return chapter.HistoryNewestFirst()
}

// Archived reads the external archive, if one is configured
func (h *HistoryLog) Archived(ctx context.Context, chapterID string, limit int) ([]domain.HistoryEntry, error) {
	if h.archive == nil {
		return []domain.HistoryEntry{}, nil
	}
	return h.archive.List(ctx, chapterID, limit)
}

func (h *HistoryLog) record(ctx context.Context, chapter *domain.Chapter, entry domain.HistoryEntry) {
	if h.archive == nil {
		return
	}
	if err := h.archive.Record(ctx, chapter, entry); err != nil {
		h.logger.Warn("failed to archive history entry",
			"chapter_id", chapter.ID,
			"error", err,
		)
	}
}
