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
var _ driven.ProposalStore = (*ProposalStore)(nil)

// ProposalStore implements driven.ProposalStore using PostgreSQL
type ProposalStore struct {
	db *DB
}

// NewProposalStore creates a new ProposalStore
func NewProposalStore(db *DB) *ProposalStore {
	return &ProposalStore{db: db}
}

// Save creates or updates a proposal
func (s *ProposalStore) Save(ctx context.Context, proposal *domain.Proposal) error {
	summary, err := marshalJSON(proposal.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	query := `
		INSERT INTO proposals (id, title, summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		proposal.ID,
		proposal.Title,
		summary,
		proposal.CreatedAt,
		proposal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save proposal: %w", err)
	}
	return nil
}

// Get retrieves a proposal by ID
func (s *ProposalStore) Get(ctx context.Context, id string) (*domain.Proposal, error) {
	query := `
		SELECT id, title, summary, created_at, updated_at
		FROM proposals
		WHERE id = $1
	`
	p, err := scanProposal(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	return p, nil
}

// List returns all proposals, most recently updated first
func (s *ProposalStore) List(ctx context.Context) ([]*domain.Proposal, error) {
	query := `
		SELECT id, title, summary, created_at, updated_at
		FROM proposals
		ORDER BY updated_at DESC, id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	proposals := []*domain.Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

// Delete removes a proposal and the criteria scoped to it. Chapters go with
// it through the foreign key.
func (s *ProposalStore) Delete(ctx context.Context, id string) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM proposals WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete proposal: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			return domain.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM scoring_criteria WHERE scope_id = $1`, id); err != nil {
			return fmt.Errorf("delete proposal criteria: %w", err)
		}
		return nil
	})
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProposal(row rowScanner) (*domain.Proposal, error) {
	var p domain.Proposal
	var summary []byte
	if err := row.Scan(&p.ID, &p.Title, &summary, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(summary, &p.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return &p, nil
}
