package http

import (
	"net/http"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driving"
)

// saveCriteriaRequest replaces a scope's criteria
type saveCriteriaRequest struct {
	Criteria []domain.ScoringCriterion `json:"criteria"`
}

// reviewerQuestionsResponse lists simulated review-meeting questions
type reviewerQuestionsResponse struct {
	Questions []string `json:"questions"`
}

// handleGetCriteria godoc
// @Summary      Get scoring criteria
// @Description  Returns the proposal's criteria, or the defaults, with the weight total
// @Tags         Scoring
// @Produce      json
// @Param        id   path      string  true  "Proposal ID"
// @Success      200  {object}  domain.CriteriaReport
// @Router       /proposals/{id}/criteria [get]
func (s *Server) handleGetCriteria(w http.ResponseWriter, r *http.Request) {
	report, err := s.scoringService.Criteria(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleSaveCriteria godoc
// @Summary      Save scoring criteria
// @Description  Stores criteria. Weights not summing to 100 produce a warning.
// @Tags         Scoring
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Proposal ID"
// @Param        request  body      saveCriteriaRequest  true  "Criteria"
// @Success      200      {object}  domain.CriteriaReport
// @Failure      400      {object}  ErrorResponse
// @Router       /proposals/{id}/criteria [put]
func (s *Server) handleSaveCriteria(w http.ResponseWriter, r *http.Request) {
	var req saveCriteriaRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	report, err := s.scoringService.SaveCriteria(r.Context(), r.PathValue("id"), req.Criteria)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handlePredictCriterion godoc
// @Summary      Predict criterion score
// @Description  Asks the generator to self-assess one criterion and stores the scores
// @Tags         Scoring
// @Accept       json
// @Produce      json
// @Param        id           path      string       true   "Proposal ID"
// @Param        criterionID  path      string       true   "Criterion ID"
// @Param        request      body      toneRequest  false  "Tone override"
// @Success      200          {object}  domain.SelfAssessment
// @Failure      404          {object}  ErrorResponse
// @Failure      429          {object}  ErrorResponse
// @Failure      502          {object}  ErrorResponse
// @Failure      503          {object}  ErrorResponse
// @Router       /proposals/{id}/criteria/{criterionID}/predict [post]
func (s *Server) handlePredictCriterion(w http.ResponseWriter, r *http.Request) {
	var req toneRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	assessment, err := s.scoringService.PredictCriterion(r.Context(), r.PathValue("id"), r.PathValue("criterionID"), req.Tone)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

// handleReviewerQuestions godoc
// @Summary      Simulate reviewer questions
// @Tags         Scoring
// @Accept       json
// @Produce      json
// @Param        id       path      string       true   "Proposal ID"
// @Param        request  body      toneRequest  false  "Tone override"
// @Success      200      {object}  reviewerQuestionsResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      429      {object}  ErrorResponse
// @Failure      502      {object}  ErrorResponse
// @Failure      503      {object}  ErrorResponse
// @Router       /proposals/{id}/reviewer-questions [post]
func (s *Server) handleReviewerQuestions(w http.ResponseWriter, r *http.Request) {
	var req toneRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	questions, err := s.scoringService.SimulateReviewerQuestions(r.Context(), r.PathValue("id"), req.Tone)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewerQuestionsResponse{Questions: questions})
}

// handleRank godoc
// @Summary      Rank subjects
// @Description  Computes weighted totals and a deterministic ranking
// @Tags         Scoring
// @Accept       json
// @Produce      json
// @Param        request  body      driving.RankRequest  true  "Subjects, criteria and scores"
// @Success      200      {object}  driving.RankingReport
// @Failure      400      {object}  ErrorResponse
// @Router       /scoring/rank [post]
func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req driving.RankRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	writeJSON(w, http.StatusOK, s.scoringService.Rank(req))
}

// handleCompare godoc
// @Summary      Compare proposals
// @Description  Scores two or more proposals with the generator and ranks them
// @Tags         Scoring
// @Accept       json
// @Produce      json
// @Param        request  body      driving.CompareRequest  true  "Proposals to compare"
// @Success      200      {object}  domain.Comparison
// @Failure      400      {object}  ErrorResponse
// @Failure      429      {object}  ErrorResponse
// @Failure      502      {object}  ErrorResponse
// @Failure      503      {object}  ErrorResponse
// @Router       /comparisons [post]
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req driving.CompareRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	comparison, err := s.scoringService.Compare(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}

// handleGenerateAll godoc
// @Summary      Generate all chapters
// @Description  Queues a background draft of every empty chapter
// @Tags         Generation
// @Accept       json
// @Produce      json
// @Param        id       path      string       true   "Proposal ID"
// @Param        request  body      toneRequest  false  "Tone override"
// @Success      202      {object}  domain.Task
// @Failure      404      {object}  ErrorResponse
// @Router       /proposals/{id}/generate-all [post]
func (s *Server) handleGenerateAll(w http.ResponseWriter, r *http.Request) {
	var req toneRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	task, err := s.generationService.EnqueueGenerateAll(r.Context(), r.PathValue("id"), req.Tone)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, task)
}

// handleGetTask godoc
// @Summary      Get task
// @Description  Returns a queued task with its status and result
// @Tags         Generation
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  domain.Task
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id} [get]
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.generationService.Task(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
