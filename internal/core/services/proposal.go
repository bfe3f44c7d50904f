package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driving"
)

// Ensure proposalService implements ProposalService
var _ driving.ProposalService = (*proposalService)(nil)

// proposalService implements the ProposalService interface
type proposalService struct {
	proposals driven.ProposalStore
	chapters  driven.ChapterStore
	history   *HistoryLog
	logger    *slog.Logger
}

// NewProposalService creates a new ProposalService
func NewProposalService(
	proposals driven.ProposalStore,
	chapters driven.ChapterStore,
	history *HistoryLog,
	logger *slog.Logger,
) driving.ProposalService {
	if logger == nil {
		logger = slog.Default()
	}
	if history == nil {
		history = NewHistoryLog(HistoryLogConfig{Chapters: chapters, Logger: logger})
	}
	return &proposalService{
		proposals: proposals,
		chapters:  chapters,
		history:   history,
		logger:    logger,
	}
}

// CreateProposal creates a proposal without chapters
func (s *proposalService) CreateProposal(ctx context.Context, req driving.CreateProposalRequest) (*domain.Proposal, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, domain.NewValidationError("title", domain.MsgProposalTitleEmpty)
	}

	proposal := domain.NewProposal(req.Title, req.Summary)
	if err := s.proposals.Save(ctx, proposal); err != nil {
		return nil, err
	}

	s.logger.Info("proposal created", "proposal_id", proposal.ID, "title", proposal.Title)
	return proposal, nil
}

func (s *proposalService) GetProposal(ctx context.Context, id string) (*domain.ProposalWithChapters, error) {
	proposal, err := s.proposals.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	chapters, err := s.chapters.ListByProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.ProposalWithChapters{Proposal: proposal, Chapters: chapters}, nil
}

// ListProposals returns summaries, most recently updated first
func (s *proposalService) ListProposals(ctx context.Context) ([]*domain.ProposalSummary, error) {
	proposals, err := s.proposals.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]*domain.ProposalSummary, 0, len(proposals))
	for _, p := range proposals {
		count := 0
		chapters, err := s.chapters.ListByProposal(ctx, p.ID)
		if err == nil {
			count = len(chapters)
		}
		summaries = append(summaries, &domain.ProposalSummary{
			ID:           p.ID,
			Title:        p.Title,
			ChapterCount: count,
			UpdatedAt:    p.UpdatedAt,
		})
	}
	return summaries, nil
}

func (s *proposalService) UpdateProposal(ctx context.Context, id string, req driving.UpdateProposalRequest) (*domain.Proposal, error) {
	proposal, err := s.proposals.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, domain.NewValidationError("title", domain.MsgProposalTitleEmpty)
		}
		proposal.Title = title
	}
	if req.Summary != nil {
		proposal.Summary = *req.Summary
	}
	proposal.UpdatedAt = time.Now()

	if err := s.proposals.Save(ctx, proposal); err != nil {
		return nil, err
	}
	return proposal, nil
}

// DeleteProposal removes the chapters first so a failure leaves the
// proposal in place
func (s *proposalService) DeleteProposal(ctx context.Context, id string) error {
	if _, err := s.proposals.Get(ctx, id); err != nil {
		return err
	}
	if err := s.chapters.DeleteByProposal(ctx, id); err != nil {
		return err
	}
	if err := s.proposals.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("proposal deleted", "proposal_id", id)
	return nil
}

func (s *proposalService) AddChapter(ctx context.Context, proposalID string, req driving.AddChapterRequest) (*domain.Chapter, error) {
	title, err := domain.NormalizeChapterTitle(req.Title)
	if err != nil {
		return nil, err
	}
	if req.TemplateKey != "" {
		if _, ok := domain.TemplateByKey(req.TemplateKey); !ok {
			return nil, domain.NewValidationError("template_key", domain.MsgUnknownTemplate)
		}
	}

	proposal, err := s.proposals.Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	existing, err := s.chapters.ListByProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	position := 0
	for _, c := range existing {
		if c.Position >= position {
			position = c.Position + 1
		}
	}

	chapter := domain.NewChapter(proposalID, title, req.TemplateKey, position)
	if err := s.chapters.Save(ctx, chapter); err != nil {
		return nil, err
	}
	s.touch(ctx, proposal)

	return chapter, nil
}

func (s *proposalService) RenameChapter(ctx context.Context, chapterID, title string) (*domain.Chapter, error) {
	normalized, err := domain.NormalizeChapterTitle(title)
	if err != nil {
		return nil, err
	}

	chapter, err := s.chapters.Get(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	chapter.Title = normalized
	chapter.UpdatedAt = time.Now()

	if err := s.chapters.Save(ctx, chapter); err != nil {
		return nil, err
	}
	return chapter, nil
}

// DeleteChapter activates the preceding chapter next, or the first
// remaining one when the first chapter was deleted
func (s *proposalService) DeleteChapter(ctx context.Context, chapterID string) (*driving.DeleteChapterResult, error) {
	chapter, err := s.chapters.Get(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	siblings, err := s.chapters.ListByProposal(ctx, chapter.ProposalID)
	if err != nil {
		return nil, err
	}

	if err := s.chapters.Delete(ctx, chapterID); err != nil {
		return nil, err
	}

	result := &driving.DeleteChapterResult{DeletedID: chapterID}
	for i, c := range siblings {
		if c.ID != chapterID {
			continue
		}
		switch {
		case i > 0:
			result.NextActiveID = siblings[i-1].ID
		case len(siblings) > 1:
			result.NextActiveID = siblings[1].ID
		}
		break
	}

	if proposal, err := s.proposals.Get(ctx, chapter.ProposalID); err == nil {
		s.touch(ctx, proposal)
	}
	return result, nil
}

func (s *proposalService) ListChapters(ctx context.Context, proposalID string) ([]*domain.Chapter, error) {
	if _, err := s.proposals.Get(ctx, proposalID); err != nil {
		return nil, err
	}
	return s.chapters.ListByProposal(ctx, proposalID)
}

func (s *proposalService) GetChapter(ctx context.Context, chapterID string) (*domain.Chapter, error) {
	return s.chapters.Get(ctx, chapterID)
}

func (s *proposalService) History(ctx context.Context, chapterID string) ([]domain.IndexedHistoryEntry, error) {
	chapter, err := s.chapters.Get(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	return s.history.List(chapter), nil
}

func (s *proposalService) Revert(ctx context.Context, chapterID string, index int) (*domain.Chapter, error) {
	chapter, err := s.chapters.Get(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	return s.history.Revert(ctx, chapter, index)
}

func (s *proposalService) ArchivedHistory(ctx context.Context, chapterID string, limit int) ([]domain.HistoryEntry, error) {
	if _, err := s.chapters.Get(ctx, chapterID); err != nil {
		return nil, err
	}
	return s.history.Archived(ctx, chapterID, limit)
}

// touch bumps the proposal's UpdatedAt so listings reflect chapter edits
func (s *proposalService) touch(ctx context.Context, proposal *domain.Proposal) {
	proposal.UpdatedAt = time.Now()
	if err := s.proposals.Save(ctx, proposal); err != nil {
		s.logger.Warn("failed to update proposal timestamp", "proposal_id", proposal.ID, "error", err)
	}
}
