package driving

import (
	"context"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// RankRequest is the input of a pure ranking
type RankRequest struct {
	Subjects []domain.Subject          `json:"subjects"`
	Criteria []domain.ScoringCriterion `json:"criteria"`
	Scores   domain.ScoreMatrix        `json:"scores"`
}

// RankingReport is a ranking with the weight-sum report
type RankingReport struct {
	Results     []domain.RankedResult `json:"results"`
	TotalWeight float64               `json:"total_weight"`
	Warning     string                `json:"warning,omitempty"`
}

// CompareRequest asks for a generator-scored comparison of proposals
type CompareRequest struct {
	ProposalIDs []string    `json:"proposal_ids"`
	ScopeID     string      `json:"scope_id,omitempty"`
	Tone        domain.Tone `json:"tone,omitempty"`
}

// ScoringService manages criteria and produces rankings
type ScoringService interface {
	// Criteria returns the scope's criteria, or the defaults
	Criteria(ctx context.Context, scopeID string) (*domain.CriteriaReport, error)

	// SaveCriteria validates and stores criteria. A weight sum other than
	// 100 is reported, not rejected.
	SaveCriteria(ctx context.Context, scopeID string, criteria []domain.ScoringCriterion) (*domain.CriteriaReport, error)

	// Rank scores and orders subjects without side effects
	Rank(req RankRequest) *RankingReport

	// PredictCriterion asks the generator for a self-assessment of one
	// criterion and stores it on the proposal's criteria
	PredictCriterion(ctx context.Context, proposalID, criterionID string, tone domain.Tone) (*domain.SelfAssessment, error)

	// SimulateReviewerQuestions returns likely review-meeting questions
	SimulateReviewerQuestions(ctx context.Context, proposalID string, tone domain.Tone) ([]string, error)

	// Compare scores at least two proposals with the generator and ranks them
	Compare(ctx context.Context, req CompareRequest) (*domain.Comparison, error)
}
