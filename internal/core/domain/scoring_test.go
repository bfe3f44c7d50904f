package domain

import (
	"errors"
	"testing"
)

func TestTotalWeightAndWarning(t *testing.T) {
	criteria := DefaultScoringCriteria()
	if got := TotalWeight(criteria); got != 100 {
		t.Errorf("expected default weights to sum to 100, got %v", got)
	}
	if w := WeightWarning(100); w != "" {
		t.Errorf("expected no warning, got %q", w)
	}
	if w := WeightWarning(87); w != "Total weight: 87%" {
		t.Errorf("unexpected warning %q", w)
	}
	if w := WeightWarning(112.5); w != "Total weight: 112.5%" {
		t.Errorf("unexpected warning %q", w)
	}
}

func TestNewCriteriaReport(t *testing.T) {
	criteria := []ScoringCriterion{{ID: "a", Weight: 50}, {ID: "b", Weight: 37}}
	report := NewCriteriaReport("prop-1", criteria)

	if report.TotalWeight != 87 {
		t.Errorf("expected total 87, got %v", report.TotalWeight)
	}
	if report.Warning != "Total weight: 87%" {
		t.Errorf("unexpected warning %q", report.Warning)
	}
}

func TestValidateCriteria(t *testing.T) {
	tests := []struct {
		name     string
		criteria []ScoringCriterion
		wantErr  bool
	}{
		{"defaults", DefaultScoringCriteria(), false},
		{"sum not 100", []ScoringCriterion{{ID: "a", Weight: 10}}, false},
		{"negative", []ScoringCriterion{{ID: "a", Weight: -1}}, true},
		{"over 100", []ScoringCriterion{{ID: "a", Weight: 101}}, true},
		{"missing id", []ScoringCriterion{{Weight: 10}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCriteria(tt.criteria)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateCriteria() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestBreakdownDisplay(t *testing.T) {
	score := 82.5
	b := CriterionBreakdown{Score: &score, Contribution: 24.74}
	if b.ScoreDisplay() != "82.5" {
		t.Errorf("unexpected score display %q", b.ScoreDisplay())
	}
	if b.ContributionDisplay() != "24.7" {
		t.Errorf("unexpected contribution display %q", b.ContributionDisplay())
	}

	missing := CriterionBreakdown{}
	if missing.ScoreDisplay() != "N/A" {
		t.Errorf("expected N/A, got %q", missing.ScoreDisplay())
	}

	r := RankedResult{Total: 45}
	if r.TotalDisplay() != "45.00" {
		t.Errorf("unexpected total display %q", r.TotalDisplay())
	}
}

func TestScoreMatrix(t *testing.T) {
	m := ScoreMatrix{}
	m.Set("A", "c1", CriterionScore{Score: 90})

	if s, ok := m.Lookup("A", "c1"); !ok || s.Score != 90 {
		t.Errorf("expected score 90, got %v (%v)", s.Score, ok)
	}
	if _, ok := m.Lookup("A", "c2"); ok {
		t.Error("expected missing criterion")
	}
	if _, ok := m.Lookup("B", "c1"); ok {
		t.Error("expected missing subject")
	}
}

func TestApplySelfAssessment(t *testing.T) {
	criteria := DefaultScoringCriteria()
	c, ok := FindCriterion(criteria, "crit-1")
	if !ok {
		t.Fatal("expected crit-1")
	}

	c.ApplySelfAssessment(&SelfAssessment{
		CriterionID:    "crit-1",
		CriterionScore: CriterionScore{Score: 70, Justification: "ok"},
		QuestionScores: []QuestionScore{
			{QuestionID: "q-1-1", Score: 95, Justification: "strong"},
			{QuestionID: "q-9-9", Score: 10},
		},
	})

	if criteria[0].AIScore == nil || *criteria[0].AIScore != 70 {
		t.Error("expected criterion score 70 to be stored as given")
	}
	if criteria[0].Questions[0].AIScore == nil || *criteria[0].Questions[0].AIScore != 95 {
		t.Error("expected question score 95")
	}
	if criteria[0].Questions[1].AIScore != nil {
		t.Error("expected unscored question to stay empty")
	}
}

func TestCloneCriteria(t *testing.T) {
	score := 50.0
	in := []ScoringCriterion{{ID: "a", AIScore: &score, Questions: []Question{{ID: "q"}}}}
	out := CloneCriteria(in)
	*out[0].AIScore = 10
	out[0].Questions[0].Text = "changed"

	if *in[0].AIScore != 50 || in[0].Questions[0].Text != "" {
		t.Error("expected deep copy")
	}
}
