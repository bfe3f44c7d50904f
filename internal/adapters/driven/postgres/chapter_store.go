package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChapterStore = (*ChapterStore)(nil)

// ChapterStore implements driven.ChapterStore using PostgreSQL.
// Citations and history are stored as JSONB on the chapter row so a save
// replaces the committed state in one statement.
type ChapterStore struct {
	db *DB
}

// NewChapterStore creates a new ChapterStore
func NewChapterStore(db *DB) *ChapterStore {
	return &ChapterStore{db: db}
}

const chapterColumns = `
	id, proposal_id, title, position, user_input, content, citations, history,
	template_key, reviewer_questions, strengthening_suggestions, gap_check_result,
	created_at, updated_at
`

// Save creates or updates a chapter
func (s *ChapterStore) Save(ctx context.Context, chapter *domain.Chapter) error {
	citations, err := marshalJSON(chapter.Citations)
	if err != nil {
		return fmt.Errorf("marshal citations: %w", err)
	}
	history, err := marshalJSON(chapter.History)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	query := `
		INSERT INTO chapters (` + chapterColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			position = EXCLUDED.position,
			user_input = EXCLUDED.user_input,
			content = EXCLUDED.content,
			citations = EXCLUDED.citations,
			history = EXCLUDED.history,
			template_key = EXCLUDED.template_key,
			reviewer_questions = EXCLUDED.reviewer_questions,
			strengthening_suggestions = EXCLUDED.strengthening_suggestions,
			gap_check_result = EXCLUDED.gap_check_result,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		chapter.ID,
		chapter.ProposalID,
		chapter.Title,
		chapter.Position,
		chapter.UserInput,
		chapter.Content,
		citations,
		history,
		chapter.TemplateKey,
		chapter.ReviewerQuestions,
		chapter.StrengtheningSuggestions,
		chapter.GapCheckResult,
		chapter.CreatedAt,
		chapter.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save chapter: %w", err)
	}
	return nil
}

// Get retrieves a chapter by ID
func (s *ChapterStore) Get(ctx context.Context, id string) (*domain.Chapter, error) {
	query := `SELECT ` + chapterColumns + ` FROM chapters WHERE id = $1`

	c, err := scanChapter(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chapter: %w", err)
	}
	return c, nil
}

// ListByProposal returns a proposal's chapters ordered by position
func (s *ChapterStore) ListByProposal(ctx context.Context, proposalID string) ([]*domain.Chapter, error) {
	query := `SELECT ` + chapterColumns + ` FROM chapters WHERE proposal_id = $1 ORDER BY position, created_at`

	rows, err := s.db.QueryContext(ctx, query, proposalID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	chapters := []*domain.Chapter{}
	for rows.Next() {
		c, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}

// Delete removes a chapter
func (s *ChapterStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chapters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete chapter: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteByProposal removes all chapters of a proposal
func (s *ChapterStore) DeleteByProposal(ctx context.Context, proposalID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chapters WHERE proposal_id = $1`, proposalID); err != nil {
		return fmt.Errorf("delete chapters: %w", err)
	}
	return nil
}

func scanChapter(row rowScanner) (*domain.Chapter, error) {
	var c domain.Chapter
	var citations, history []byte
	err := row.Scan(
		&c.ID,
		&c.ProposalID,
		&c.Title,
		&c.Position,
		&c.UserInput,
		&c.Content,
		&citations,
		&history,
		&c.TemplateKey,
		&c.ReviewerQuestions,
		&c.StrengtheningSuggestions,
		&c.GapCheckResult,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Citations = []domain.Citation{}
	c.History = []domain.HistoryEntry{}
	if err := unmarshalJSON(citations, &c.Citations); err != nil {
		return nil, fmt.Errorf("unmarshal citations: %w", err)
	}
	if err := unmarshalJSON(history, &c.History); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	return &c, nil
}
