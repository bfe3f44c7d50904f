package ai

import (
	"fmt"
	"strings"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// Excerpt limits, in runes, for long context values
const (
	gapCheckExcerpt = 2000
	fullTextExcerpt = 4000
)

var toneInstructions = map[domain.Tone]string{
	domain.ToneProfessional: "你是一位『政府補助案配對顧問＋專業計畫案寫手』，熟悉台灣各部會補助規範與審查邏輯。" +
		"風格：專業、條理分明、結論先行、內容可查核。未確定部分以［待補］標示。" +
		"若偵測到條件不符或比例超標，須主動註記並建議修正依據（年份/單位）。",
	domain.ToneStartup: "你是一位充滿活力的「新創公司策略長」，目標是為一個顛覆性的技術或商業模式爭取種子輪資金或政府的創新補助。\n" +
		"【語氣與風格】熱情、有遠見、強調市場潛力與破壞式創新。使用更具說服力和故事性的語言，但仍需以數據支撐。" +
		"重點在於傳達願景、市場機會、團隊的獨特優勢，以及計畫將如何帶來高成長的回報。",
	domain.ToneAcademic: "You are an experienced academic researcher and grant writer at a top university. " +
		"You are familiar with the rigorous standards of national science and technology grants.\n" +
		"Your style is formal, precise, and evidence-based. Emphasize theoretical contributions, methodological rigor, " +
		"and potential for scholarly impact.\n" +
		"All claims must be backed by logical reasoning or references to established literature (if applicable). " +
		"Use structured, academic language.",
}

// systemInstruction returns the persona for a tone
func systemInstruction(tone domain.Tone) string {
	if s, ok := toneInstructions[tone]; ok {
		return s
	}
	return toneInstructions[domain.ToneProfessional]
}

// prompt is one rendered request
type prompt struct {
	System string
	User   string
	JSON   bool
	Object bool
}

// buildPrompt renders a generation request
func buildPrompt(req *domain.GenerationRequest) (prompt, error) {
	ctx := req.Context
	var b strings.Builder

	switch req.Kind {
	case domain.GenerationChapterDraft:
		writeChapterDraft(&b, ctx)
	case domain.GenerationChapterRefine:
		fmt.Fprintf(&b, "Refine and improve the following chapter content.\nChapter: %q\nOriginal Content: %q\n",
			ctx[domain.CtxChapterTitle], ctx[domain.CtxContent])
		b.WriteString("Focus on strengthening policy alignment and improving logical flow. " +
			"Enhance the professional tone and clarity. Return only the improved content.")
	case domain.GenerationGapCheck:
		b.WriteString("Review the following chapter for completeness and identify any missing key information " +
			"that a grant reviewer would expect to see.\n")
		fmt.Fprintf(&b, "Proposal Title: %q\nChapter: %q\nContent: %q\n\n",
			ctx[domain.CtxProposalTitle], ctx[domain.CtxChapterTitle], excerpt(ctx[domain.CtxContent], gapCheckExcerpt))
		b.WriteString("Provide a brief report on any gaps or missing information. If there are no gaps, " +
			"confirm that the chapter appears complete. Format the response in markdown.")
	case domain.GenerationReviewerFeedback:
		fmt.Fprintf(&b, "Review the following chapter %q of the proposal %q.\nContent: %q\n",
			ctx[domain.CtxChapterTitle], ctx[domain.CtxProposalTitle], ctx[domain.CtxContent])
		b.WriteString("Provide feedback from a reviewer's perspective. Return a JSON object with two keys: " +
			`"reviewerQuestions" (a string with 2-3 likely questions) and ` +
			`"strengtheningSuggestions" (a string with concrete suggestions for improvement).`)
	case domain.GenerationReviewerQuestions:
		fmt.Fprintf(&b, "Act as a critical reviewer for the proposal %q. ", ctx[domain.CtxProposalTitle])
		b.WriteString("Based on the full proposal text and the following scoring criteria, generate a list of 5-7 " +
			"challenging questions you would ask during a review meeting.\n")
		fmt.Fprintf(&b, "Proposal Text: %q\nScoring Criteria: %s\n",
			excerpt(ctx[domain.CtxFullText], fullTextExcerpt), ctx[domain.CtxCriteria])
		b.WriteString("Return a JSON array of strings.")
	case domain.GenerationScorePrediction:
		b.WriteString("Evaluate a proposal based on a specific scoring criterion.\n")
		fmt.Fprintf(&b, "Proposal Text: %q\nCriterion to evaluate: %s\n\n",
			excerpt(ctx[domain.CtxFullText], fullTextExcerpt), ctx[domain.CtxCriterion])
		b.WriteString("Provide scores (0-100) and brief justifications. Return a JSON object with " +
			`"criterionScore" ({"score", "justification"}) and "questionScores" ` +
			`(an array of {"id", "score", "justification"}, one per guiding question).`)
	case domain.GenerationComparison:
		b.WriteString("Compare the following grant proposals based on the provided scoring criteria.\n")
		fmt.Fprintf(&b, "Projects: %s\nScoring Criteria: %s\n\n", ctx[domain.CtxProposals], ctx[domain.CtxCriteria])
		b.WriteString("Return a single JSON object with two keys:\n" +
			`1. "scores": An object where each key is a project id. The value is another object where each key ` +
			`is a criterion id. The value for this is an object with "score" (0-100) and a brief "justification".` + "\n" +
			`2. "summary": A high-level executive summary comparing the projects and recommending a winner, with justification.`)
	default:
		return prompt{}, fmt.Errorf("%w: unknown generation kind %q", domain.ErrInvalidInput, req.Kind)
	}

	return prompt{
		System: systemInstruction(req.Tone),
		User:   b.String(),
		JSON:   req.Kind.Structured(),
		Object: expectsObject(req.Kind),
	}, nil
}

func writeChapterDraft(b *strings.Builder, ctx map[string]string) {
	title := ctx[domain.CtxChapterTitle]
	userInput := strings.TrimSpace(ctx[domain.CtxUserInput])
	templateKey := ctx[domain.CtxTemplateKey]

	if templateKey != "" && userInput == "" {
		fmt.Fprintf(b, "The user has created a new chapter %q using the %q template.\n", title, templateKey)
		b.WriteString("Generate a structured boilerplate/outline for this chapter in markdown format.\n" +
			"Include headings, subheadings, and placeholder text like \"[請在此說明...]\" to guide the user on what to fill in.\n" +
			"Do not write a full draft, only the template structure.")
		return
	}

	b.WriteString("Based on the proposal's core concept AND the user's specific notes for this chapter, " +
		"automatically generate the full content for the chapter.\n")
	fmt.Fprintf(b, "Proposal Title: %s\nCore Concept (Why, What, Who, Benefits): %s\nChapter to Write: %q",
		ctx[domain.CtxProposalTitle], ctx[domain.CtxSummary], title)
	if userInput != "" {
		fmt.Fprintf(b, "\n\nUSER'S NOTES/DRAFT (This is the most important context, expand on this): \"\"\"%s\"\"\"", userInput)
	}
	if templateKey != "" {
		fmt.Fprintf(b, "\n\nIMPORTANT: Structure the content based on the %q template's focus.", templateKey)
	}
	b.WriteString("\n\nPlease provide a comprehensive draft for this chapter, adhering to the professional tone of a grant writer. " +
		"The content should be structured, clear, and directly address the chapter's topic.")
}

// excerpt truncates s to n runes, marking the cut
func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
