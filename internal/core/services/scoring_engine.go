package services

import (
	"sort"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// ScoreLookup returns a subject's score on a criterion, if there is one
type ScoreLookup func(subjectID, criterionID string) (domain.CriterionScore, bool)

// Score computes weighted totals and ranks subjects. A missing score counts
// as 0. Ties keep input order. Weights are used as given.
func Score(subjects []domain.Subject, criteria []domain.ScoringCriterion, lookup ScoreLookup) []domain.RankedResult {
	results := make([]domain.RankedResult, 0, len(subjects))

	for _, subject := range subjects {
		result := domain.RankedResult{
			Subject:   subject,
			Breakdown: make([]domain.CriterionBreakdown, 0, len(criteria)),
		}
		for _, c := range criteria {
			b := domain.CriterionBreakdown{
				CriterionID: c.ID,
				Name:        c.Name,
				Weight:      c.Weight,
			}
			if s, ok := lookup(subject.ID, c.ID); ok {
				score := s.Score
				b.Score = &score
				b.Justification = s.Justification
				b.Contribution = score * c.Weight / 100
			}
			result.Total += b.Contribution
			result.Breakdown = append(result.Breakdown, b)
		}
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Total > results[j].Total
	})
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}
