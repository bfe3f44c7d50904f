package http

import (
	"net/http"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driving"
)

// openSessionRequest names the chapter to load into a draft buffer
type openSessionRequest struct {
	ProposalID string `json:"proposal_id" example:"prop-1"`
	ChapterID  string `json:"chapter_id" example:"chap-1"`
}

// switchChapterRequest names the chapter to switch to
type switchChapterRequest struct {
	ChapterID string `json:"chapter_id" example:"chap-2"`
}

// selectionRequest sets the content selection; null clears it
type selectionRequest struct {
	Selection *domain.SelectionRange `json:"selection"`
}

// handleOpenSession godoc
// @Summary      Open editing session
// @Description  Loads a chapter into a fresh draft buffer
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        request  body      openSessionRequest  true  "Chapter to edit"
// @Success      201      {object}  driving.SessionView
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /sessions [post]
func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	view, err := s.editorService.OpenSession(r.Context(), req.ProposalID, req.ChapterID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// handleGetSession godoc
// @Summary      Get editing session
// @Tags         Sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  driving.SessionView
// @Failure      404  {object}  ErrorResponse
// @Router       /sessions/{id} [get]
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.editorService.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleCloseSession godoc
// @Summary      Close editing session
// @Description  Flushes pending edits and discards the session
// @Tags         Sessions
// @Param        id   path  string  true  "Session ID"
// @Success      204  "No Content"
// @Failure      404  {object}  ErrorResponse
// @Router       /sessions/{id} [delete]
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.editorService.CloseSession(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleChangeDraft godoc
// @Summary      Edit draft
// @Description  Replaces one field of the draft and restarts the autosave timer
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Session ID"
// @Param        request  body      driving.ChangeRequest  true  "Field change"
// @Success      200      {object}  driving.SessionView
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Router       /sessions/{id}/draft [patch]
func (s *Server) handleChangeDraft(w http.ResponseWriter, r *http.Request) {
	var req driving.ChangeRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	view, err := s.editorService.Change(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSelect godoc
// @Summary      Set selection
// @Description  Sets or clears the content selection used for citations
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        id       path      string            true  "Session ID"
// @Param        request  body      selectionRequest  true  "Selection"
// @Success      200      {object}  driving.SessionView
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /sessions/{id}/selection [put]
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	view, err := s.editorService.Select(r.Context(), r.PathValue("id"), req.Selection)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleFlush godoc
// @Summary      Save now
// @Description  Commits pending edits immediately
// @Tags         Sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  driving.SessionView
// @Failure      404  {object}  ErrorResponse
// @Router       /sessions/{id}/flush [post]
func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	view, err := s.editorService.Flush(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSwitchChapter godoc
// @Summary      Switch chapter
// @Description  Flushes pending edits and loads another chapter of the proposal
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Session ID"
// @Param        request  body      switchChapterRequest  true  "Target chapter"
// @Success      200      {object}  driving.SessionView
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /sessions/{id}/switch [post]
func (s *Server) handleSwitchChapter(w http.ResponseWriter, r *http.Request) {
	var req switchChapterRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	view, err := s.editorService.SwitchChapter(r.Context(), r.PathValue("id"), req.ChapterID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleInsertCitation godoc
// @Summary      Insert citation
// @Description  Inserts a citation marker after the selection and rebuilds the reference list
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Session ID"
// @Param        request  body      driving.InsertCitationRequest  true  "Citation source"
// @Success      200      {object}  driving.SessionView
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /sessions/{id}/citations [post]
func (s *Server) handleInsertCitation(w http.ResponseWriter, r *http.Request) {
	var req driving.InsertCitationRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	view, err := s.editorService.InsertCitation(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSessionRevert godoc
// @Summary      Revert draft
// @Description  Restores a history entry into the session's chapter
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        id       path      string         true  "Session ID"
// @Param        request  body      revertRequest  true  "History index"
// @Success      200      {object}  driving.SessionView
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /sessions/{id}/revert [post]
func (s *Server) handleSessionRevert(w http.ResponseWriter, r *http.Request) {
	var req revertRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	view, err := s.editorService.Revert(r.Context(), r.PathValue("id"), req.Index)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleGenerate godoc
// @Summary      Generate chapter draft
// @Description  Drafts the chapter content from its notes
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true   "Session ID"
// @Param        request  body      driving.GenerateRequest  false  "Tone override"
// @Success      200      {object}  driving.SessionView
// @Failure      404      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Failure      429      {object}  ErrorResponse
// @Failure      502      {object}  ErrorResponse
// @Failure      503      {object}  ErrorResponse
// @Router       /sessions/{id}/generate [post]
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req driving.GenerateRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	view, err := s.editorService.Generate(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleRefine godoc
// @Summary      Refine chapter
// @Description  Rewrites the existing chapter content
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true   "Session ID"
// @Param        request  body      driving.GenerateRequest  false  "Tone override"
// @Success      200      {object}  driving.SessionView
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Failure      429      {object}  ErrorResponse
// @Failure      502      {object}  ErrorResponse
// @Failure      503      {object}  ErrorResponse
// @Router       /sessions/{id}/refine [post]
func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	var req driving.GenerateRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	view, err := s.editorService.Refine(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
