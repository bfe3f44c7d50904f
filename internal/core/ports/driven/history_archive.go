package driven

import (
	"context"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// HistoryArchive keeps an external, append-only copy of committed history
// entries. It is best effort: chapters remain the source of truth.
type HistoryArchive interface {
	// Record stores one committed entry for a chapter
	Record(ctx context.Context, chapter *domain.Chapter, entry domain.HistoryEntry) error

	// List returns up to limit archived entries, newest first
	List(ctx context.Context, chapterID string, limit int) ([]domain.HistoryEntry, error)
}
