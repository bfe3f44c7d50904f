package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/runtime"
)

// generationRunner resolves the current generator and applies the retry
// policy to every call
type generationRunner struct {
	services *runtime.Services
	retry    *RetryPolicy
}

func newGenerationRunner(services *runtime.Services, retry *RetryPolicy) generationRunner {
	if retry == nil {
		retry = DefaultRetryPolicy()
	}
	return generationRunner{services: services, retry: retry}
}

func (r generationRunner) generator() (driven.ContentGenerator, error) {
	return r.services.RequireGenerator()
}

func (r generationRunner) tone(t domain.Tone) domain.Tone {
	return r.services.ResolveTone(t)
}

// text runs a free-text request
func (r generationRunner) text(ctx context.Context, gen driven.ContentGenerator, req *domain.GenerationRequest) (string, error) {
	result, err := r.retry.Generate(ctx, gen, req)
	if err != nil {
		return "", err
	}
	if err := result.Err(); err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Text), nil
}

// decode runs a structured request and unmarshals the validated payload
func (r generationRunner) decode(ctx context.Context, req *domain.GenerationRequest, v any) error {
	gen, err := r.generator()
	if err != nil {
		return err
	}
	result, err := r.retry.Generate(ctx, gen, req)
	if err != nil {
		return err
	}
	return result.Decode(v)
}

func toJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func chapterDraftRequest(p *domain.Proposal, chapter *domain.Chapter, userInput string, tone domain.Tone) *domain.GenerationRequest {
	req := domain.NewGenerationRequest(domain.GenerationChapterDraft, tone).
		With(domain.CtxProposalTitle, p.Title).
		With(domain.CtxSummary, toJSON(p.Summary)).
		With(domain.CtxChapterTitle, chapter.Title).
		With(domain.CtxUserInput, userInput)
	if tpl, ok := domain.TemplateByKey(chapter.TemplateKey); ok {
		req.With(domain.CtxTemplateKey, tpl.Key)
	}
	return req
}

func chapterRefineRequest(chapter *domain.Chapter, content string, tone domain.Tone) *domain.GenerationRequest {
	return domain.NewGenerationRequest(domain.GenerationChapterRefine, tone).
		With(domain.CtxChapterTitle, chapter.Title).
		With(domain.CtxContent, content)
}

func gapCheckRequest(p *domain.Proposal, chapter *domain.Chapter, tone domain.Tone) *domain.GenerationRequest {
	return domain.NewGenerationRequest(domain.GenerationGapCheck, tone).
		With(domain.CtxProposalTitle, p.Title).
		With(domain.CtxChapterTitle, chapter.Title).
		With(domain.CtxContent, domain.BodyWithoutReferences(chapter.Content))
}

func reviewerFeedbackRequest(p *domain.Proposal, chapter *domain.Chapter, tone domain.Tone) *domain.GenerationRequest {
	return domain.NewGenerationRequest(domain.GenerationReviewerFeedback, tone).
		With(domain.CtxProposalTitle, p.Title).
		With(domain.CtxChapterTitle, chapter.Title).
		With(domain.CtxContent, domain.BodyWithoutReferences(chapter.Content))
}

func reviewerQuestionsRequest(pc *domain.ProposalWithChapters, criteria []domain.ScoringCriterion, tone domain.Tone) *domain.GenerationRequest {
	return domain.NewGenerationRequest(domain.GenerationReviewerQuestions, tone).
		With(domain.CtxProposalTitle, pc.Proposal.Title).
		With(domain.CtxFullText, pc.FullText()).
		With(domain.CtxCriteria, toJSON(criteria))
}

func scorePredictionRequest(pc *domain.ProposalWithChapters, criterion domain.ScoringCriterion, tone domain.Tone) *domain.GenerationRequest {
	return domain.NewGenerationRequest(domain.GenerationScorePrediction, tone).
		With(domain.CtxProposalTitle, pc.Proposal.Title).
		With(domain.CtxFullText, pc.FullText()).
		With(domain.CtxCriterion, toJSON(criterion))
}

// comparisonSubject is the per-proposal context sent for a comparison
type comparisonSubject struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Content string `json:"content"`
}

func comparisonRequest(proposals []*domain.ProposalWithChapters, criteria []domain.ScoringCriterion, tone domain.Tone) *domain.GenerationRequest {
	subjects := make([]comparisonSubject, len(proposals))
	for i, pc := range proposals {
		subjects[i] = comparisonSubject{
			ID:      pc.Proposal.ID,
			Title:   pc.Proposal.Title,
			Summary: pc.Proposal.Summary.What,
			Content: pc.FullText(),
		}
	}
	return domain.NewGenerationRequest(domain.GenerationComparison, tone).
		With(domain.CtxProposals, toJSON(subjects)).
		With(domain.CtxCriteria, toJSON(criteria))
}
