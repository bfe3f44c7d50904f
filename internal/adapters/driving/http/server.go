package http

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	proposalService   driving.ProposalService
	editorService     driving.EditorService
	scoringService    driving.ScoringService
	generationService driving.GenerationService
	settingsService   driving.SettingsService

	// Infrastructure
	hub    *Hub
	checks map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	Version     string
	CORSOrigins []string
	Logger      *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:        "0.0.0.0",
		Port:        8080,
		Version:     "dev",
		CORSOrigins: []string{"*"},
	}
}

// Services groups the driving ports the server exposes
type Services struct {
	Proposals  driving.ProposalService
	Editor     driving.EditorService
	Scoring    driving.ScoringService
	Generation driving.GenerationService
	Settings   driving.SettingsService
}

// NewServer creates a new HTTP server. checks are pinged by /ready; hub may
// be nil when live notifications are not served by this process.
func NewServer(cfg Config, svc Services, hub *Hub, checks map[string]Pinger) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:            http.NewServeMux(),
		version:           cfg.Version,
		logger:            logger,
		proposalService:   svc.Proposals,
		editorService:     svc.Editor,
		scoringService:    svc.Scoring,
		generationService: svc.Generation,
		settingsService:   svc.Settings,
		hub:               hub,
		checks:            checks,
	}

	s.setupRoutes()

	var handler http.Handler = s.router
	handler = NewCORSMiddleware(cfg.CORSOrigins).Handler(handler)
	handler = NewLoggingMiddleware(logger).Handler(handler)
	handler = RequestIDMiddleware{}.Handler(handler)
	handler = NewRecoveryMiddleware(logger).Handler(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 150 * time.Second, // generation calls can be slow
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.router.HandleFunc("GET /api/v1/ready", s.handleReady)
	s.router.HandleFunc("GET /api/v1/version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// Proposals
	s.router.HandleFunc("GET /api/v1/proposals", s.handleListProposals)
	s.router.HandleFunc("POST /api/v1/proposals", s.handleCreateProposal)
	s.router.HandleFunc("GET /api/v1/proposals/{id}", s.handleGetProposal)
	s.router.HandleFunc("PUT /api/v1/proposals/{id}", s.handleUpdateProposal)
	s.router.HandleFunc("DELETE /api/v1/proposals/{id}", s.handleDeleteProposal)
	s.router.HandleFunc("GET /api/v1/templates", s.handleListTemplates)

	// Chapters
	s.router.HandleFunc("GET /api/v1/proposals/{id}/chapters", s.handleListChapters)
	s.router.HandleFunc("POST /api/v1/proposals/{id}/chapters", s.handleAddChapter)
	s.router.HandleFunc("GET /api/v1/chapters/{id}", s.handleGetChapter)
	s.router.HandleFunc("PUT /api/v1/chapters/{id}", s.handleRenameChapter)
	s.router.HandleFunc("DELETE /api/v1/chapters/{id}", s.handleDeleteChapter)
	s.router.HandleFunc("GET /api/v1/chapters/{id}/history", s.handleChapterHistory)
	s.router.HandleFunc("POST /api/v1/chapters/{id}/revert", s.handleRevertChapter)
	s.router.HandleFunc("GET /api/v1/chapters/{id}/archive", s.handleChapterArchive)
	s.router.HandleFunc("POST /api/v1/chapters/{id}/review", s.handleReviewChapter)
	s.router.HandleFunc("POST /api/v1/chapters/{id}/gap-check", s.handleGapCheck)

	// Editing sessions
	s.router.HandleFunc("POST /api/v1/sessions", s.handleOpenSession)
	s.router.HandleFunc("GET /api/v1/sessions/{id}", s.handleGetSession)
	s.router.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleCloseSession)
	s.router.HandleFunc("PATCH /api/v1/sessions/{id}/draft", s.handleChangeDraft)
	s.router.HandleFunc("PUT /api/v1/sessions/{id}/selection", s.handleSelect)
	s.router.HandleFunc("POST /api/v1/sessions/{id}/flush", s.handleFlush)
	s.router.HandleFunc("POST /api/v1/sessions/{id}/switch", s.handleSwitchChapter)
	s.router.HandleFunc("POST /api/v1/sessions/{id}/citations", s.handleInsertCitation)
	s.router.HandleFunc("POST /api/v1/sessions/{id}/revert", s.handleSessionRevert)
	s.router.HandleFunc("POST /api/v1/sessions/{id}/generate", s.handleGenerate)
	s.router.HandleFunc("POST /api/v1/sessions/{id}/refine", s.handleRefine)

	// Scoring
	s.router.HandleFunc("GET /api/v1/proposals/{id}/criteria", s.handleGetCriteria)
	s.router.HandleFunc("PUT /api/v1/proposals/{id}/criteria", s.handleSaveCriteria)
	s.router.HandleFunc("POST /api/v1/proposals/{id}/criteria/{criterionID}/predict", s.handlePredictCriterion)
	s.router.HandleFunc("POST /api/v1/proposals/{id}/reviewer-questions", s.handleReviewerQuestions)
	s.router.HandleFunc("POST /api/v1/scoring/rank", s.handleRank)
	s.router.HandleFunc("POST /api/v1/comparisons", s.handleCompare)

	// Generation jobs
	s.router.HandleFunc("POST /api/v1/proposals/{id}/generate-all", s.handleGenerateAll)
	s.router.HandleFunc("GET /api/v1/tasks/{id}", s.handleGetTask)

	// Settings
	s.router.HandleFunc("GET /api/v1/settings/ai", s.handleGetAISettings)
	s.router.HandleFunc("PUT /api/v1/settings/ai", s.handleUpdateAISettings)
	s.router.HandleFunc("GET /api/v1/settings/ai/status", s.handleGetAIStatus)
	s.router.HandleFunc("POST /api/v1/settings/ai/test", s.handleTestAIConnection)

	// Live notifications
	if s.hub != nil {
		s.router.Handle("GET /api/v1/ws", s.hub)
	}
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Stop(shutdownCtx)
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("Server stopped")
	return nil
}
