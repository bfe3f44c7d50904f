package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Question is a guiding question under a scoring criterion.
type Question struct {
	ID              string   `json:"id"`
	Text            string   `json:"text"`
	AIScore         *float64 `json:"ai_score,omitempty"`
	AIJustification string   `json:"ai_justification,omitempty"`
}

// ScoringCriterion is one weighted dimension of evaluation. Weight is a
// percentage in 0..100.
type ScoringCriterion struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Weight          float64    `json:"weight"`
	Questions       []Question `json:"questions"`
	AIScore         *float64   `json:"ai_score,omitempty"`
	AIJustification string     `json:"ai_justification,omitempty"`
}

// CriterionScore is a score in 0..100 with its justification.
type CriterionScore struct {
	Score         float64 `json:"score"`
	Justification string  `json:"justification"`
}

// QuestionScore is the self-assessment of one guiding question.
type QuestionScore struct {
	QuestionID    string  `json:"id"`
	Score         float64 `json:"score"`
	Justification string  `json:"justification"`
}

// SelfAssessment holds a criterion-level score and the per-question
// scores. The criterion score is never derived from the question scores.
type SelfAssessment struct {
	CriterionID    string          `json:"criterion_id"`
	CriterionScore CriterionScore  `json:"criterion_score"`
	QuestionScores []QuestionScore `json:"question_scores"`
}

// Subject is an entity being ranked, usually a proposal.
type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ScoreMatrix maps subject ID to criterion ID to score.
type ScoreMatrix map[string]map[string]CriterionScore

// Lookup returns the score for a subject and criterion, if present.
func (m ScoreMatrix) Lookup(subjectID, criterionID string) (CriterionScore, bool) {
	row, ok := m[subjectID]
	if !ok {
		return CriterionScore{}, false
	}
	s, ok := row[criterionID]
	return s, ok
}

// Set stores a score, creating the subject row when needed.
func (m ScoreMatrix) Set(subjectID, criterionID string, score CriterionScore) {
	row, ok := m[subjectID]
	if !ok {
		row = make(map[string]CriterionScore)
		m[subjectID] = row
	}
	row[criterionID] = score
}

// CriterionBreakdown is one criterion's share of a subject's total.
type CriterionBreakdown struct {
	CriterionID   string   `json:"criterion_id"`
	Name          string   `json:"name"`
	Weight        float64  `json:"weight"`
	Score         *float64 `json:"score"`
	Justification string   `json:"justification,omitempty"`
	Contribution  float64  `json:"contribution"`
}

// ScoreDisplay renders the raw score or "N/A" when absent.
func (b CriterionBreakdown) ScoreDisplay() string {
	if b.Score == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*b.Score, 'f', -1, 64)
}

// ContributionDisplay renders the weighted contribution with one decimal.
func (b CriterionBreakdown) ContributionDisplay() string {
	return fmt.Sprintf("%.1f", b.Contribution)
}

// RankedResult is a subject's position in a ranking.
type RankedResult struct {
	Rank      int                  `json:"rank"`
	Subject   Subject              `json:"subject"`
	Total     float64              `json:"total"`
	Breakdown []CriterionBreakdown `json:"breakdown"`
}

// TotalDisplay renders the total with two decimals.
func (r RankedResult) TotalDisplay() string {
	return fmt.Sprintf("%.2f", r.Total)
}

// TotalWeight sums the weights of all criteria.
func TotalWeight(criteria []ScoringCriterion) float64 {
	var total float64
	for _, c := range criteria {
		total += c.Weight
	}
	return total
}

// WeightWarning returns the non-blocking warning shown when the weights do
// not sum to 100, or "" when they do.
func WeightWarning(total float64) string {
	if total == 100 {
		return ""
	}
	return "Total weight: " + strconv.FormatFloat(total, 'f', -1, 64) + "%"
}

// CriteriaReport is returned with every criteria read or write.
type CriteriaReport struct {
	ScopeID     string             `json:"scope_id"`
	Criteria    []ScoringCriterion `json:"criteria"`
	TotalWeight float64            `json:"total_weight"`
	Warning     string             `json:"warning,omitempty"`
}

// NewCriteriaReport computes the total weight and warning.
func NewCriteriaReport(scopeID string, criteria []ScoringCriterion) *CriteriaReport {
	total := TotalWeight(criteria)
	return &CriteriaReport{
		ScopeID:     scopeID,
		Criteria:    criteria,
		TotalWeight: total,
		Warning:     WeightWarning(total),
	}
}

// ValidateCriteria rejects criteria without IDs and weights outside 0..100.
// A weight sum other than 100 is not an error.
func ValidateCriteria(criteria []ScoringCriterion) error {
	for _, c := range criteria {
		if strings.TrimSpace(c.ID) == "" {
			return NewValidationError("id", MsgCriterionIDRequired)
		}
		if c.Weight < 0 || c.Weight > 100 {
			return NewValidationError("weight", MsgWeightOutOfRange)
		}
	}
	return nil
}

// FindCriterion returns the criterion with the given ID.
func FindCriterion(criteria []ScoringCriterion, id string) (*ScoringCriterion, bool) {
	for i := range criteria {
		if criteria[i].ID == id {
			return &criteria[i], true
		}
	}
	return nil, false
}

// ApplySelfAssessment records the AI scores on the criterion and on the
// questions it names. Unknown question IDs are ignored.
func (c *ScoringCriterion) ApplySelfAssessment(a *SelfAssessment) {
	score := a.CriterionScore.Score
	c.AIScore = &score
	c.AIJustification = a.CriterionScore.Justification
	for _, qs := range a.QuestionScores {
		for i := range c.Questions {
			if c.Questions[i].ID == qs.QuestionID {
				s := qs.Score
				c.Questions[i].AIScore = &s
				c.Questions[i].AIJustification = qs.Justification
			}
		}
	}
}

// CloneCriteria deep-copies a criteria list.
func CloneCriteria(in []ScoringCriterion) []ScoringCriterion {
	out := make([]ScoringCriterion, len(in))
	for i, c := range in {
		if c.AIScore != nil {
			s := *c.AIScore
			c.AIScore = &s
		}
		qs := make([]Question, len(c.Questions))
		for j, q := range c.Questions {
			if q.AIScore != nil {
				s := *q.AIScore
				q.AIScore = &s
			}
			qs[j] = q
		}
		c.Questions = qs
		out[i] = c
	}
	return out
}

// DefaultScoringCriteria returns the criteria used when a scope has none.
func DefaultScoringCriteria() []ScoringCriterion {
	return []ScoringCriterion{
		{
			ID:     "crit-1",
			Name:   "技術/服務創新性",
			Weight: 30,
			Questions: []Question{
				{ID: "q-1-1", Text: "創新點是否具前瞻性？"},
				{ID: "q-1-2", Text: "與現有方案差異化是否明顯？"},
			},
		},
		{
			ID:     "crit-2",
			Name:   "市場潛力與商業模式",
			Weight: 30,
			Questions: []Question{
				{ID: "q-2-1", Text: "市場規模與增長潛力是否足夠？"},
				{ID: "q-2-2", Text: "商業模式是否清晰可行？"},
			},
		},
		{
			ID:     "crit-3",
			Name:   "執行可行性",
			Weight: 25,
			Questions: []Question{
				{ID: "q-3-1", Text: "團隊組成與資源是否充足？"},
				{ID: "q-3-2", Text: "時程與里程碑規劃是否合理？"},
			},
		},
		{
			ID:     "crit-4",
			Name:   "預期效益",
			Weight: 15,
			Questions: []Question{
				{ID: "q-4-1", Text: "KPI 是否具體且可量化？"},
				{ID: "q-4-2", Text: "對產業或社會的貢獻度為何？"},
			},
		},
	}
}
