package domain

import (
	"strings"
	"time"
)

// ConceptionSummary is the problem framing captured before drafting.
type ConceptionSummary struct {
	Why          string `json:"why"`
	What         string `json:"what"`
	WhoNeedsIt   string `json:"who_needs_it"`
	WhatToVerify string `json:"what_to_verify"`
	Benefits     string `json:"benefits"`
}

// IsEmpty returns true if no field has been filled in.
func (s ConceptionSummary) IsEmpty() bool {
	return strings.TrimSpace(s.Why+s.What+s.WhoNeedsIt+s.WhatToVerify+s.Benefits) == ""
}

// Proposal is a grant proposal. Chapters reference it by ProposalID.
type Proposal struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Summary   ConceptionSummary `json:"summary"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewProposal creates a proposal with a fresh ID.
func NewProposal(title string, summary ConceptionSummary) *Proposal {
	now := time.Now()
	return &Proposal{
		ID:        NewID("prop"),
		Title:     strings.TrimSpace(title),
		Summary:   summary,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ProposalSummary is a lightweight listing item
type ProposalSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	ChapterCount int       `json:"chapter_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProposalWithChapters bundles a proposal and its ordered chapters.
type ProposalWithChapters struct {
	Proposal *Proposal `json:"proposal"`
	Chapters []*Chapter `json:"chapters"`
}

// FullText concatenates the chapter bodies under their titles.
func (p *ProposalWithChapters) FullText() string {
	var sb strings.Builder
	for i, c := range p.Chapters {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("## ")
		sb.WriteString(c.Title)
		sb.WriteString("\n")
		sb.WriteString(BodyWithoutReferences(c.Content))
	}
	return sb.String()
}
