package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/adapters/driven/secrets"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

var (
	_ driven.ProposalStore = (*ProposalStore)(nil)
	_ driven.ChapterStore  = (*ChapterStore)(nil)
	_ driven.CriteriaStore = (*CriteriaStore)(nil)
	_ driven.SettingsStore = (*SettingsStore)(nil)
)

// ProposalStore implements driven.ProposalStore
type ProposalStore struct {
	db *sql.DB
}

// NewProposalStore creates a ProposalStore
func NewProposalStore(db *DB) *ProposalStore {
	return &ProposalStore{db: db.db}
}

func (s *ProposalStore) Save(ctx context.Context, p *domain.Proposal) error {
	summary, err := json.Marshal(p.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO proposals (id, title, summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title,
			summary=excluded.summary,
			updated_at=excluded.updated_at
	`, p.ID, p.Title, string(summary), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save proposal: %w", err)
	}
	return nil
}

func (s *ProposalStore) Get(ctx context.Context, id string) (*domain.Proposal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, title, summary, created_at, updated_at FROM proposals WHERE id = ?`, id)
	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	return p, nil
}

func (s *ProposalStore) List(ctx context.Context) ([]*domain.Proposal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, summary, created_at, updated_at FROM proposals ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	out := []*domain.Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes a proposal, its chapters and the criteria scoped to it in
// one transaction
func (s *ProposalStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteOne(ctx, tx, `DELETE FROM proposals WHERE id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM scoring_criteria WHERE scope_id = ?`, id); err != nil {
		return fmt.Errorf("delete proposal criteria: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func scanProposal(row rowScanner) (*domain.Proposal, error) {
	var p domain.Proposal
	var summary string
	if err := row.Scan(&p.ID, &p.Title, &summary, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(summary, &p.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return &p, nil
}

// ChapterStore implements driven.ChapterStore
type ChapterStore struct {
	db *sql.DB
}

// NewChapterStore creates a ChapterStore
func NewChapterStore(db *DB) *ChapterStore {
	return &ChapterStore{db: db.db}
}

const chapterColumns = `id, proposal_id, title, position, user_input, content, citations, history,
	template_key, reviewer_questions, strengthening_suggestions, gap_check_result, created_at, updated_at`

func (s *ChapterStore) Save(ctx context.Context, c *domain.Chapter) error {
	citations, err := marshalList(c.Citations)
	if err != nil {
		return fmt.Errorf("marshal citations: %w", err)
	}
	history, err := marshalList(c.History)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chapters (`+chapterColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title,
			position=excluded.position,
			user_input=excluded.user_input,
			content=excluded.content,
			citations=excluded.citations,
			history=excluded.history,
			template_key=excluded.template_key,
			reviewer_questions=excluded.reviewer_questions,
			strengthening_suggestions=excluded.strengthening_suggestions,
			gap_check_result=excluded.gap_check_result,
			updated_at=excluded.updated_at
	`, c.ID, c.ProposalID, c.Title, c.Position, c.UserInput, c.Content, citations, history,
		c.TemplateKey, c.ReviewerQuestions, c.StrengtheningSuggestions, c.GapCheckResult, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save chapter: %w", err)
	}
	return nil
}

func (s *ChapterStore) Get(ctx context.Context, id string) (*domain.Chapter, error) {
	c, err := scanChapter(s.db.QueryRowContext(ctx, `SELECT `+chapterColumns+` FROM chapters WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chapter: %w", err)
	}
	return c, nil
}

func (s *ChapterStore) ListByProposal(ctx context.Context, proposalID string) ([]*domain.Chapter, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+chapterColumns+` FROM chapters WHERE proposal_id = ? ORDER BY position, created_at`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	out := []*domain.Chapter{}
	for rows.Next() {
		c, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *ChapterStore) Delete(ctx context.Context, id string) error {
	return deleteOne(ctx, s.db, `DELETE FROM chapters WHERE id = ?`, id)
}

func (s *ChapterStore) DeleteByProposal(ctx context.Context, proposalID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chapters WHERE proposal_id = ?`, proposalID); err != nil {
		return fmt.Errorf("delete chapters: %w", err)
	}
	return nil
}

func scanChapter(row rowScanner) (*domain.Chapter, error) {
	var c domain.Chapter
	var citations, history string
	err := row.Scan(&c.ID, &c.ProposalID, &c.Title, &c.Position, &c.UserInput, &c.Content,
		&citations, &history, &c.TemplateKey, &c.ReviewerQuestions, &c.StrengtheningSuggestions,
		&c.GapCheckResult, &c.CreatedAt, &c.UpdatedAt)
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

// CriteriaStore implements driven.CriteriaStore
type CriteriaStore struct {
	db *sql.DB
}

// NewCriteriaStore creates a CriteriaStore
func NewCriteriaStore(db *DB) *CriteriaStore {
	return &CriteriaStore{db: db.db}
}

func (s *CriteriaStore) GetCriteria(ctx context.Context, scopeID string) ([]domain.ScoringCriterion, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT criteria FROM scoring_criteria WHERE scope_id = ?`, scopeID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get criteria: %w", err)
	}
	criteria := []domain.ScoringCriterion{}
	if err := unmarshalJSON(data, &criteria); err != nil {
		return nil, fmt.Errorf("unmarshal criteria: %w", err)
	}
	return criteria, nil
}

func (s *CriteriaStore) SaveCriteria(ctx context.Context, scopeID string, criteria []domain.ScoringCriterion) error {
	data, err := marshalList(criteria)
	if err != nil {
		return fmt.Errorf("marshal criteria: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scoring_criteria (scope_id, criteria, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(scope_id) DO UPDATE SET criteria=excluded.criteria, updated_at=excluded.updated_at
	`, scopeID, data, time.Now())
	if err != nil {
		return fmt.Errorf("save criteria: %w", err)
	}
	return nil
}

// SettingsStore implements driven.SettingsStore. API keys are sealed.
type SettingsStore struct {
	db        *sql.DB
	encryptor *secrets.Encryptor
}

// NewSettingsStore creates a SettingsStore
func NewSettingsStore(db *DB, encryptor *secrets.Encryptor) *SettingsStore {
	return &SettingsStore{db: db.db, encryptor: encryptor}
}

func (s *SettingsStore) GetAISettings(ctx context.Context) (*domain.AISettings, error) {
	var settings domain.AISettings
	var sealed []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT provider, tone, gemini_model, gemini_base_url, openai_model, openai_base_url, sealed_keys, updated_at
		FROM ai_settings WHERE id = 1
	`).Scan(&settings.Provider, &settings.Tone, &settings.Gemini.Model, &settings.Gemini.BaseURL,
		&settings.OpenAI.Model, &settings.OpenAI.BaseURL, &sealed, &settings.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ai settings: %w", err)
	}

	keys, err := s.encryptor.OpenKeys(sealed)
	if err != nil {
		return nil, fmt.Errorf("open api keys: %w", err)
	}
	settings.Gemini.APIKey = keys.Gemini
	settings.OpenAI.APIKey = keys.OpenAI
	return &settings, nil
}

func (s *SettingsStore) SaveAISettings(ctx context.Context, settings *domain.AISettings) error {
	sealed, err := s.encryptor.SealKeys(secrets.APIKeys{Gemini: settings.Gemini.APIKey, OpenAI: settings.OpenAI.APIKey})
	if err != nil {
		return fmt.Errorf("seal api keys: %w", err)
	}
	settings.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ai_settings (id, provider, tone, gemini_model, gemini_base_url, openai_model, openai_base_url, sealed_keys, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			provider=excluded.provider,
			tone=excluded.tone,
			gemini_model=excluded.gemini_model,
			gemini_base_url=excluded.gemini_base_url,
			openai_model=excluded.openai_model,
			openai_base_url=excluded.openai_base_url,
			sealed_keys=excluded.sealed_keys,
			updated_at=excluded.updated_at
	`, string(settings.Provider), string(settings.Tone), settings.Gemini.Model, settings.Gemini.BaseURL,
		settings.OpenAI.Model, settings.OpenAI.BaseURL, sealed, settings.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save ai settings: %w", err)
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func deleteOne(ctx context.Context, db execer, query, id string) error {
	res, err := db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
