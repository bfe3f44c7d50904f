package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driving"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/runtime"
)

// Ensure scoringService implements ScoringService
var _ driving.ScoringService = (*scoringService)(nil)

// ScoringConfig holds configuration for the scoring service
type ScoringConfig struct {
	Proposals driven.ProposalStore
	Chapters  driven.ChapterStore
	Criteria  driven.CriteriaStore
	Services  *runtime.Services
	Retry     *RetryPolicy
	Logger    *slog.Logger
}

type scoringService struct {
	proposals driven.ProposalStore
	chapters  driven.ChapterStore
	criteria  driven.CriteriaStore
	runner    generationRunner
	logger    *slog.Logger
}

// NewScoringService creates a new ScoringService
func NewScoringService(cfg ScoringConfig) driving.ScoringService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &scoringService{
		proposals: cfg.Proposals,
		chapters:  cfg.Chapters,
		criteria:  cfg.Criteria,
		runner:    newGenerationRunner(cfg.Services, cfg.Retry),
		logger:    logger,
	}
}

func (s *scoringService) Criteria(ctx context.Context, scopeID string) (*domain.CriteriaReport, error) {
	criteria, err := s.load(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	return domain.NewCriteriaReport(scopeID, criteria), nil
}

// SaveCriteria stores criteria even when the weights do not sum to 100;
// the report carries the warning
func (s *scoringService) SaveCriteria(ctx context.Context, scopeID string, criteria []domain.ScoringCriterion) (*domain.CriteriaReport, error) {
	if strings.TrimSpace(scopeID) == "" {
		return nil, domain.NewValidationError("scope_id", domain.MsgScopeRequired)
	}
	if err := domain.ValidateCriteria(criteria); err != nil {
		return nil, err
	}
	if criteria == nil {
		criteria = []domain.ScoringCriterion{}
	}

	if err := s.criteria.SaveCriteria(ctx, scopeID, criteria); err != nil {
		return nil, err
	}

	report := domain.NewCriteriaReport(scopeID, domain.CloneCriteria(criteria))
	if report.Warning != "" {
		s.logger.Debug("criteria saved with unbalanced weights",
			"scope_id", scopeID,
			"total_weight", report.TotalWeight,
		)
	}
	return report, nil
}

func (s *scoringService) Rank(req driving.RankRequest) *driving.RankingReport {
	total := domain.TotalWeight(req.Criteria)
	return &driving.RankingReport{
		Results:     Score(req.Subjects, req.Criteria, req.Scores.Lookup),
		TotalWeight: total,
		Warning:     domain.WeightWarning(total),
	}
}

// PredictCriterion asks for a self-assessment and records it on the
// proposal's own criteria scope
func (s *scoringService) PredictCriterion(ctx context.Context, proposalID, criterionID string, tone domain.Tone) (*domain.SelfAssessment, error) {
	pc, err := s.proposalWithChapters(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	criteria, err := s.load(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	criterion, ok := domain.FindCriterion(criteria, criterionID)
	if !ok {
		return nil, domain.ErrNotFound
	}

	var prediction domain.ScorePrediction
	req := scorePredictionRequest(pc, *criterion, s.runner.tone(tone))
	if err := s.runner.decode(ctx, req, &prediction); err != nil {
		return nil, err
	}

	assessment := &domain.SelfAssessment{
		CriterionID:    criterionID,
		CriterionScore: prediction.CriterionScore,
		QuestionScores: prediction.QuestionScores,
	}
	if assessment.QuestionScores == nil {
		assessment.QuestionScores = []domain.QuestionScore{}
	}
	criterion.ApplySelfAssessment(assessment)

	if err := s.criteria.SaveCriteria(ctx, proposalID, criteria); err != nil {
		return nil, err
	}

	s.logger.Info("criterion self-assessment stored",
		"proposal_id", proposalID,
		"criterion_id", criterionID,
		"score", assessment.CriterionScore.Score,
	)
	return assessment, nil
}

func (s *scoringService) SimulateReviewerQuestions(ctx context.Context, proposalID string, tone domain.Tone) ([]string, error) {
	pc, err := s.proposalWithChapters(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	criteria, err := s.load(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	var questions []string
	req := reviewerQuestionsRequest(pc, criteria, s.runner.tone(tone))
	if err := s.runner.decode(ctx, req, &questions); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out, nil
}

// Compare scores the proposals with the generator and ranks them with the
// weighted-sum engine. Without a scope the first proposal's criteria apply.
func (s *scoringService) Compare(ctx context.Context, req driving.CompareRequest) (*domain.Comparison, error) {
	ids := uniqueIDs(req.ProposalIDs)
	if len(ids) < 2 {
		return nil, domain.NewValidationError("proposal_ids", domain.MsgComparisonTooFew)
	}

	proposals := make([]*domain.ProposalWithChapters, 0, len(ids))
	subjects := make([]domain.Subject, 0, len(ids))
	for _, id := range ids {
		pc, err := s.proposalWithChapters(ctx, id)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, pc)
		subjects = append(subjects, domain.Subject{ID: pc.Proposal.ID, Name: pc.Proposal.Title})
	}

	scopeID := req.ScopeID
	if scopeID == "" {
		scopeID = ids[0]
	}
	criteria, err := s.load(ctx, scopeID)
	if err != nil {
		return nil, err
	}

	var output domain.ComparisonOutput
	genReq := comparisonRequest(proposals, criteria, s.runner.tone(req.Tone))
	if err := s.runner.decode(ctx, genReq, &output); err != nil {
		return nil, err
	}

	matrix := domain.ScoreMatrix(output.Scores)
	total := domain.TotalWeight(criteria)
	return &domain.Comparison{
		ScopeID:     scopeID,
		Results:     Score(subjects, criteria, matrix.Lookup),
		Summary:     strings.TrimSpace(output.Summary),
		TotalWeight: total,
		Warning:     domain.WeightWarning(total),
	}, nil
}

// load returns the scope's criteria or a copy of the defaults
func (s *scoringService) load(ctx context.Context, scopeID string) ([]domain.ScoringCriterion, error) {
	criteria, err := s.criteria.GetCriteria(ctx, scopeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.DefaultScoringCriteria(), nil
		}
		return nil, err
	}
	return criteria, nil
}

func (s *scoringService) proposalWithChapters(ctx context.Context, id string) (*domain.ProposalWithChapters, error) {
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

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
