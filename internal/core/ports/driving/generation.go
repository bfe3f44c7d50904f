package driving

import (
	"context"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// GenerationService runs chapter-level AI reviews and bulk drafting
type GenerationService interface {
	// ReviewChapter stores reviewer questions and strengthening suggestions
	ReviewChapter(ctx context.Context, chapterID string, tone domain.Tone) (*domain.Chapter, error)

	// GapCheck stores a completeness report for the chapter
	GapCheck(ctx context.Context, chapterID string, tone domain.Tone) (*domain.Chapter, error)

	// EnqueueGenerateAll queues a background draft of every empty chapter
	EnqueueGenerateAll(ctx context.Context, proposalID string, tone domain.Tone) (*domain.Task, error)

	// GenerateAll drafts every empty chapter in order (worker side)
	GenerateAll(ctx context.Context, proposalID string, tone domain.Tone) (*domain.TaskResult, error)

	// Task returns a queued task by ID
	Task(ctx context.Context, id string) (*domain.Task, error)
}
