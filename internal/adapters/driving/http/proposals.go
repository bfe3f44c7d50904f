package http

import (
	"net/http"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driving"
)

// renameChapterRequest is the body of a chapter rename
type renameChapterRequest struct {
	Title string `json:"title" example:"計畫背景與目的"`
}

// revertRequest selects a history entry by storage index
type revertRequest struct {
	Index int `json:"index" example:"0"`
}

// handleListProposals godoc
// @Summary      List proposals
// @Description  Returns every proposal with its chapter count
// @Tags         Proposals
// @Produce      json
// @Success      200  {array}   domain.ProposalSummary
// @Failure      500  {object}  ErrorResponse
// @Router       /proposals [get]
func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := s.proposalService.ListProposals(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proposals)
}

// handleCreateProposal godoc
// @Summary      Create proposal
// @Description  Creates a proposal from a title and conception summary
// @Tags         Proposals
// @Accept       json
// @Produce      json
// @Param        request  body      driving.CreateProposalRequest  true  "Proposal"
// @Success      201      {object}  domain.Proposal
// @Failure      400      {object}  ErrorResponse
// @Router       /proposals [post]
func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req driving.CreateProposalRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	proposal, err := s.proposalService.CreateProposal(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, proposal)
}

// handleGetProposal godoc
// @Summary      Get proposal
// @Description  Returns a proposal with its ordered chapters
// @Tags         Proposals
// @Produce      json
// @Param        id   path      string  true  "Proposal ID"
// @Success      200  {object}  domain.ProposalWithChapters
// @Failure      404  {object}  ErrorResponse
// @Router       /proposals/{id} [get]
func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposal, err := s.proposalService.GetProposal(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

// handleUpdateProposal godoc
// @Summary      Update proposal
// @Description  Updates the title and/or conception summary
// @Tags         Proposals
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Proposal ID"
// @Param        request  body      driving.UpdateProposalRequest  true  "Fields to update"
// @Success      200      {object}  domain.Proposal
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /proposals/{id} [put]
func (s *Server) handleUpdateProposal(w http.ResponseWriter, r *http.Request) {
	var req driving.UpdateProposalRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	proposal, err := s.proposalService.UpdateProposal(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

// handleDeleteProposal godoc
// @Summary      Delete proposal
// @Description  Deletes a proposal and all of its chapters
// @Tags         Proposals
// @Param        id   path  string  true  "Proposal ID"
// @Success      204  "No Content"
// @Failure      404  {object}  ErrorResponse
// @Router       /proposals/{id} [delete]
func (s *Server) handleDeleteProposal(w http.ResponseWriter, r *http.Request) {
	if err := s.proposalService.DeleteProposal(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListTemplates godoc
// @Summary      List chapter templates
// @Tags         Proposals
// @Produce      json
// @Success      200  {array}  domain.ChapterTemplate
// @Router       /templates [get]
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.ChapterTemplates)
}

// handleListChapters godoc
// @Summary      List chapters
// @Description  Returns the proposal's chapters in position order
// @Tags         Chapters
// @Produce      json
// @Param        id   path      string  true  "Proposal ID"
// @Success      200  {array}   domain.Chapter
// @Failure      404  {object}  ErrorResponse
// @Router       /proposals/{id}/chapters [get]
func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := s.proposalService.ListChapters(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chapters)
}

// handleAddChapter godoc
// @Summary      Add chapter
// @Description  Appends a chapter, optionally based on a template
// @Tags         Chapters
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Proposal ID"
// @Param        request  body      driving.AddChapterRequest  true  "Chapter"
// @Success      201      {object}  domain.Chapter
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /proposals/{id}/chapters [post]
func (s *Server) handleAddChapter(w http.ResponseWriter, r *http.Request) {
	var req driving.AddChapterRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	chapter, err := s.proposalService.AddChapter(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chapter)
}

// handleGetChapter godoc
// @Summary      Get chapter
// @Tags         Chapters
// @Produce      json
// @Param        id   path      string  true  "Chapter ID"
// @Success      200  {object}  domain.Chapter
// @Failure      404  {object}  ErrorResponse
// @Router       /chapters/{id} [get]
func (s *Server) handleGetChapter(w http.ResponseWriter, r *http.Request) {
	chapter, err := s.proposalService.GetChapter(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chapter)
}

// handleRenameChapter godoc
// @Summary      Rename chapter
// @Tags         Chapters
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Chapter ID"
// @Param        request  body      renameChapterRequest  true  "New title"
// @Success      200      {object}  domain.Chapter
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /chapters/{id} [put]
func (s *Server) handleRenameChapter(w http.ResponseWriter, r *http.Request) {
	var req renameChapterRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	chapter, err := s.proposalService.RenameChapter(r.Context(), r.PathValue("id"), req.Title)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chapter)
}

// handleDeleteChapter godoc
// @Summary      Delete chapter
// @Description  Deletes a chapter and names the chapter to activate next
// @Tags         Chapters
// @Produce      json
// @Param        id   path      string  true  "Chapter ID"
// @Success      200  {object}  driving.DeleteChapterResult
// @Failure      404  {object}  ErrorResponse
// @Router       /chapters/{id} [delete]
func (s *Server) handleDeleteChapter(w http.ResponseWriter, r *http.Request) {
	result, err := s.proposalService.DeleteChapter(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleChapterHistory godoc
// @Summary      Chapter history
// @Description  Returns the chapter's history, most recent first
// @Tags         Chapters
// @Produce      json
// @Param        id   path      string  true  "Chapter ID"
// @Success      200  {array}   domain.IndexedHistoryEntry
// @Failure      404  {object}  ErrorResponse
// @Router       /chapters/{id}/history [get]
func (s *Server) handleChapterHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.proposalService.History(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleRevertChapter godoc
// @Summary      Revert chapter
// @Description  Restores a history entry after preserving the current state
// @Tags         Chapters
// @Accept       json
// @Produce      json
// @Param        id       path      string         true  "Chapter ID"
// @Param        request  body      revertRequest  true  "History index"
// @Success      200      {object}  domain.Chapter
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /chapters/{id}/revert [post]
func (s *Server) handleRevertChapter(w http.ResponseWriter, r *http.Request) {
	var req revertRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	chapter, err := s.proposalService.Revert(r.Context(), r.PathValue("id"), req.Index)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chapter)
}

// handleChapterArchive godoc
// @Summary      Archived chapter history
// @Description  Reads the long-term history archive, newest first
// @Tags         Chapters
// @Produce      json
// @Param        id     path      string  true   "Chapter ID"
// @Param        limit  query     int     false  "Maximum entries"  default(20)
// @Success      200    {array}   domain.HistoryEntry
// @Failure      404    {object}  ErrorResponse
// @Router       /chapters/{id}/archive [get]
func (s *Server) handleChapterArchive(w http.ResponseWriter, r *http.Request) {
	entries, err := s.proposalService.ArchivedHistory(r.Context(), r.PathValue("id"), queryInt(r, "limit", 20))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleReviewChapter godoc
// @Summary      Review chapter
// @Description  Generates reviewer questions and strengthening suggestions
// @Tags         Chapters
// @Accept       json
// @Produce      json
// @Param        id       path      string       true   "Chapter ID"
// @Param        request  body      toneRequest  false  "Tone override"
// @Success      200      {object}  domain.Chapter
// @Failure      404      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Failure      429      {object}  ErrorResponse
// @Failure      502      {object}  ErrorResponse
// @Failure      503      {object}  ErrorResponse
// @Router       /chapters/{id}/review [post]
func (s *Server) handleReviewChapter(w http.ResponseWriter, r *http.Request) {
	var req toneRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	chapter, err := s.generationService.ReviewChapter(r.Context(), r.PathValue("id"), req.Tone)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chapter)
}

// handleGapCheck godoc
// @Summary      Gap check
// @Description  Generates a completeness report for the chapter
// @Tags         Chapters
// @Accept       json
// @Produce      json
// @Param        id       path      string       true   "Chapter ID"
// @Param        request  body      toneRequest  false  "Tone override"
// @Success      200      {object}  domain.Chapter
// @Failure      404      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Failure      429      {object}  ErrorResponse
// @Failure      502      {object}  ErrorResponse
// @Failure      503      {object}  ErrorResponse
// @Router       /chapters/{id}/gap-check [post]
func (s *Server) handleGapCheck(w http.ResponseWriter, r *http.Request) {
	var req toneRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	chapter, err := s.generationService.GapCheck(r.Context(), r.PathValue("id"), req.Tone)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chapter)
}
