package domain

import (
	"encoding/json"
	"fmt"
)

// Placeholder and failure texts shown in the content field while or after
// a generation request runs.
const (
	PlaceholderGenerating = "AI 正在生成內容..."
	PlaceholderRefining   = "AI 正在精修內容..."
	GenerationFailedText  = "生成失敗，請重試。"
)

// GenerationKind identifies what the content generator is asked to produce.
type GenerationKind string

const (
	GenerationChapterDraft      GenerationKind = "chapter_draft"
	GenerationChapterRefine     GenerationKind = "chapter_refine"
	GenerationGapCheck          GenerationKind = "gap_check"
	GenerationReviewerFeedback  GenerationKind = "reviewer_feedback"
	GenerationReviewerQuestions GenerationKind = "reviewer_questions"
	GenerationScorePrediction   GenerationKind = "score_prediction"
	GenerationComparison        GenerationKind = "comparison"
)

// Structured returns true if the kind expects a JSON document rather than
// free text.
func (k GenerationKind) Structured() bool {
	switch k {
	case GenerationReviewerFeedback, GenerationReviewerQuestions,
		GenerationScorePrediction, GenerationComparison:
		return true
	default:
		return false
	}
}

// Tone selects the writing persona of the generator.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneStartup      Tone = "startup"
	ToneAcademic     Tone = "academic"
)

// IsValid returns true if this is a known tone
func (t Tone) IsValid() bool {
	switch t {
	case ToneProfessional, ToneStartup, ToneAcademic:
		return true
	default:
		return false
	}
}

// DisplayName returns the label shown to users.
func (t Tone) DisplayName() string {
	switch t {
	case ToneStartup:
		return "新創科技"
	case ToneAcademic:
		return "學術研究"
	default:
		return "專業顧問"
	}
}

// Context keys understood by the prompt builder.
const (
	CtxProposalTitle = "proposal_title"
	CtxSummary       = "summary"
	CtxChapterTitle  = "chapter_title"
	CtxUserInput     = "user_input"
	CtxContent       = "content"
	CtxTemplateKey   = "template_key"
	CtxFullText      = "full_text"
	CtxCriterion     = "criterion"
	CtxCriteria      = "criteria"
	CtxProposals     = "proposals"
)

// GenerationRequest asks the content generator for one result.
type GenerationRequest struct {
	Kind    GenerationKind    `json:"kind"`
	Tone    Tone              `json:"tone"`
	Context map[string]string `json:"context"`
}

// NewGenerationRequest creates a request with an empty context.
func NewGenerationRequest(kind GenerationKind, tone Tone) *GenerationRequest {
	if !tone.IsValid() {
		tone = ToneProfessional
	}
	return &GenerationRequest{Kind: kind, Tone: tone, Context: make(map[string]string)}
}

// With sets a context value and returns the request for chaining.
func (r *GenerationRequest) With(key, value string) *GenerationRequest {
	r.Context[key] = value
	return r
}

// ResultStatus tags a GenerationResult.
type ResultStatus string

const (
	ResultOK         ResultStatus = "ok"
	ResultParseError ResultStatus = "parse_error"
)

// GenerationResult is either ok (Text, and Data for structured kinds) or
// parse_error (Raw and Problem).
type GenerationResult struct {
	Status  ResultStatus    `json:"status"`
	Text    string          `json:"text,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Raw     string          `json:"raw,omitempty"`
	Problem string          `json:"problem,omitempty"`
}

// TextResult creates an ok result carrying free text.
func TextResult(text string) *GenerationResult {
	return &GenerationResult{Status: ResultOK, Text: text}
}

// DataResult creates an ok result carrying a validated JSON document.
func DataResult(raw string, data json.RawMessage) *GenerationResult {
	return &GenerationResult{Status: ResultOK, Text: raw, Data: data}
}

// ParseErrorResult creates a parse_error result.
func ParseErrorResult(raw, problem string) *GenerationResult {
	return &GenerationResult{Status: ResultParseError, Raw: raw, Problem: problem}
}

// OK returns true for an ok result.
func (r *GenerationResult) OK() bool {
	return r != nil && r.Status == ResultOK
}

// Err returns nil for an ok result and an ErrParseFailure otherwise.
func (r *GenerationResult) Err() error {
	if r == nil {
		return fmt.Errorf("%w: empty result", ErrParseFailure)
	}
	if r.Status != ResultOK {
		return fmt.Errorf("%w: %s", ErrParseFailure, r.Problem)
	}
	return nil
}

// Decode unmarshals the structured payload into v.
func (r *GenerationResult) Decode(v any) error {
	if err := r.Err(); err != nil {
		return err
	}
	if len(r.Data) == 0 {
		return fmt.Errorf("%w: no structured data", ErrParseFailure)
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	return nil
}

// ReviewerFeedback is the structured result of a chapter review.
type ReviewerFeedback struct {
	ReviewerQuestions        string `json:"reviewerQuestions"`
	StrengtheningSuggestions string `json:"strengtheningSuggestions"`
}

// ScorePrediction is the structured result of a criterion self-assessment.
type ScorePrediction struct {
	CriterionScore CriterionScore  `json:"criterionScore"`
	QuestionScores []QuestionScore `json:"questionScores"`
}

// ComparisonOutput is the structured result of a proposal comparison.
type ComparisonOutput struct {
	Scores  map[string]map[string]CriterionScore `json:"scores"`
	Summary string                               `json:"summary"`
}

// Comparison is a ranked comparison of several proposals.
type Comparison struct {
	ScopeID     string         `json:"scope_id"`
	Results     []RankedResult `json:"results"`
	Summary     string         `json:"summary"`
	TotalWeight float64        `json:"total_weight"`
	Warning     string         `json:"warning,omitempty"`
}
