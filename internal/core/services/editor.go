package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driving"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/runtime"
)

// Ensure editorService implements EditorService
var _ driving.EditorService = (*editorService)(nil)

// DefaultGenerationLockTTL bounds how long a crashed request can block a
// chapter. It covers the full retry schedule.
const DefaultGenerationLockTTL = 5 * time.Minute

// EditorConfig holds configuration for the editor service
type EditorConfig struct {
	Proposals driven.ProposalStore
	Chapters  driven.ChapterStore
	History   *HistoryLog
	Lock      driven.DistributedLock
	Notifier  driven.Notifier // Optional
	Services  *runtime.Services
	Retry     *RetryPolicy
	Clock     Clock
	Logger    *slog.Logger

	Debounce    time.Duration
	SavedWindow time.Duration
	LockTTL     time.Duration
}

type editorService struct {
	proposals driven.ProposalStore
	chapters  driven.ChapterStore
	history   *HistoryLog
	lock      driven.DistributedLock
	notifier  driven.Notifier
	runner    generationRunner
	clock     Clock
	logger    *slog.Logger

	debounce    time.Duration
	savedWindow time.Duration
	lockTTL     time.Duration

	mu       sync.RWMutex
	sessions map[string]*editorSession
}

// editorSession holds one draft buffer. opMu serializes session
// operations; mu guards the fields and is also taken by autosave commits
// running on timer goroutines. opMu is never acquired while mu is held.
type editorSession struct {
	id         string
	proposalID string

	opMu sync.Mutex

	mu       sync.Mutex
	chapter  *domain.Chapter
	buffer   *domain.DraftBuffer
	autosave *AutosaveController
	closed   bool
}

// NewEditorService creates a new EditorService
func NewEditorService(cfg EditorConfig) driving.EditorService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = DefaultGenerationLockTTL
	}
	history := cfg.History
	if history == nil {
		history = NewHistoryLog(HistoryLogConfig{Chapters: cfg.Chapters, Clock: clock, Logger: logger})
	}

	return &editorService{
		proposals:   cfg.Proposals,
		chapters:    cfg.Chapters,
		history:     history,
		lock:        cfg.Lock,
		notifier:    cfg.Notifier,
		runner:      newGenerationRunner(cfg.Services, cfg.Retry),
		clock:       clock,
		logger:      logger,
		debounce:    cfg.Debounce,
		savedWindow: cfg.SavedWindow,
		lockTTL:     lockTTL,
		sessions:    make(map[string]*editorSession),
	}
}

// OpenSession loads a chapter into a new session. An empty chapterID opens
// the proposal's first chapter.
func (e *editorService) OpenSession(ctx context.Context, proposalID, chapterID string) (*driving.SessionView, error) {
	if _, err := e.proposals.Get(ctx, proposalID); err != nil {
		return nil, err
	}

	chapter, err := e.resolveChapter(ctx, proposalID, chapterID)
	if err != nil {
		return nil, err
	}

	sess := &editorSession{
		id:         domain.NewID("sess"),
		proposalID: proposalID,
	}
	e.load(sess, chapter)

	e.mu.Lock()
	e.sessions[sess.id] = sess
	e.mu.Unlock()

	e.logger.Info("editing session opened",
		"session_id", sess.id,
		"proposal_id", proposalID,
		"chapter_id", chapter.ID,
	)
	return sess.view(), nil
}

func (e *editorService) Session(ctx context.Context, sessionID string) (*driving.SessionView, error) {
	sess, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.view(), nil
}

// CloseSession flushes pending edits. If the flush fails the session stays
// open so the edits are not lost.
func (e *editorService) CloseSession(ctx context.Context, sessionID string) error {
	sess, err := e.session(sessionID)
	if err != nil {
		return err
	}

	sess.opMu.Lock()
	defer sess.opMu.Unlock()

	if err := sess.currentAutosave().Flush(); err != nil {
		return err
	}

	sess.mu.Lock()
	sess.closed = true
	autosave := sess.autosave
	sess.mu.Unlock()
	autosave.Stop()

	e.mu.Lock()
	delete(e.sessions, sessionID)
	e.mu.Unlock()

	e.logger.Info("editing session closed", "session_id", sessionID)
	return nil
}

func (e *editorService) Change(ctx context.Context, sessionID string, req driving.ChangeRequest) (*driving.SessionView, error) {
	if !req.Field.IsValid() {
		return nil, domain.NewValidationError("field", domain.MsgUnknownField)
	}
	sess, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.opMu.Lock()
	defer sess.opMu.Unlock()
	sess.mu.Lock()

	buf := sess.buffer
	if buf.Generating && req.Field != domain.DraftFieldUserInput {
		sess.mu.Unlock()
		return nil, domain.ErrGenerationInProgress
	}

	switch req.Field {
	case domain.DraftFieldUserInput:
		buf.UserInput = req.Text
	case domain.DraftFieldContent:
		buf.Content = req.Text
		buf.ContentTransient = false
	case domain.DraftFieldCitations:
		buf.Citations = domain.CloneCitations(req.Citations)
	}

	if buf.IsDirty(sess.chapter) {
		sess.autosave.Touch()
	}
	sess.mu.Unlock()

	return sess.view(), nil
}

func (e *editorService) Select(ctx context.Context, sessionID string, selection *domain.SelectionRange) (*driving.SessionView, error) {
	sess, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.opMu.Lock()
	defer sess.opMu.Unlock()
	sess.mu.Lock()

	if selection == nil {
		sess.buffer.Selection = nil
	} else {
		if selection.Start < 0 || selection.End < selection.Start || !selection.Within(sess.buffer.Content) {
			sess.mu.Unlock()
			return nil, domain.NewValidationError("selection", domain.MsgSelectionRequired)
		}
		sel := *selection
		sess.buffer.Selection = &sel
	}
	sess.mu.Unlock()

	return sess.view(), nil
}

func (e *editorService) Flush(ctx context.Context, sessionID string) (*driving.SessionView, error) {
	sess, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.opMu.Lock()
	defer sess.opMu.Unlock()

	if err := sess.currentAutosave().Flush(); err != nil {
		return nil, err
	}
	return sess.view(), nil
}

// SwitchChapter flushes the current chapter before loading the next one.
// A failed flush keeps the current chapter loaded.
func (e *editorService) SwitchChapter(ctx context.Context, sessionID, chapterID string) (*driving.SessionView, error) {
	sess, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.opMu.Lock()
	defer sess.opMu.Unlock()

	target, err := e.resolveChapter(ctx, sess.proposalID, chapterID)
	if err != nil {
		return nil, err
	}

	old := sess.currentAutosave()
	if err := old.Flush(); err != nil {
		return nil, err
	}

	sess.mu.Lock()
	sameChapter := sess.buffer.ChapterID == target.ID
	sess.mu.Unlock()
	if sameChapter {
		return sess.view(), nil
	}

	old.Stop()
	e.load(sess, target)

	e.logger.Debug("switched chapter",
		"session_id", sessionID,
		"chapter_id", target.ID,
	)
	return sess.view(), nil
}

func (e *editorService) InsertCitation(ctx context.Context, sessionID string, req driving.InsertCitationRequest) (*driving.SessionView, error) {
	sess, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.opMu.Lock()
	defer sess.opMu.Unlock()
	sess.mu.Lock()

	buf := sess.buffer
	if buf.Generating {
		sess.mu.Unlock()
		return nil, domain.ErrGenerationInProgress
	}

	sel := req.Selection
	if sel == nil {
		sel = buf.Selection
	}
	citation, err := InsertCitation(buf, sel, req.SourceName, req.URL)
	if err != nil {
		chapterID := buf.ChapterID
		sess.mu.Unlock()
		e.notify(ctx, sess, chapterID, domain.NotificationWarning, domain.EventValidationError, domain.UserMessage(err))
		return nil, err
	}
	buf.ContentTransient = false
	sess.autosave.Touch()
	chapterID := buf.ChapterID
	sess.mu.Unlock()

	e.notify(ctx, sess, chapterID, domain.NotificationInfo, domain.EventCitationAdded, "已新增引用 "+citation.Key)
	return sess.view(), nil
}

// Revert flushes pending edits, then restores the history entry at index
// and reloads the buffer from the result.
func (e *editorService) Revert(ctx context.Context, sessionID string, index int) (*driving.SessionView, error) {
	sess, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.opMu.Lock()
	defer sess.opMu.Unlock()

	if err := sess.currentAutosave().Flush(); err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.buffer.Generating {
		sess.mu.Unlock()
		return nil, domain.ErrGenerationInProgress
	}
	chapterID := sess.buffer.ChapterID
	current, err := e.chapters.Get(ctx, chapterID)
	if err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	reverted, err := e.history.Revert(ctx, current, index)
	if err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	sess.chapter = reverted
	sess.buffer = domain.NewDraftBuffer(reverted)
	sess.mu.Unlock()

	e.notify(ctx, sess, chapterID, domain.NotificationInfo, domain.EventReverted, "已還原至歷史版本。")
	return sess.view(), nil
}

// Generate drafts the chapter content from its notes
func (e *editorService) Generate(ctx context.Context, sessionID string, req driving.GenerateRequest) (*driving.SessionView, error) {
	return e.runGeneration(ctx, sessionID, domain.GenerationChapterDraft, req.Tone)
}

// Refine rewrites the existing content
func (e *editorService) Refine(ctx context.Context, sessionID string, req driving.GenerateRequest) (*driving.SessionView, error) {
	return e.runGeneration(ctx, sessionID, domain.GenerationChapterRefine, req.Tone)
}

// runGeneration shows a placeholder while the generator runs without any
// session lock held, then applies the outcome. If the chapter is no longer
// in the buffer when the result arrives, a success is committed straight
// to the store and a failure only produces a notification.
func (e *editorService) runGeneration(ctx context.Context, sessionID string, kind domain.GenerationKind, tone domain.Tone) (*driving.SessionView, error) {
	sess, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}
	refine := kind == domain.GenerationChapterRefine

	sess.opMu.Lock()

	gen, err := e.runner.generator()
	if err != nil {
		sess.opMu.Unlock()
		return nil, err
	}

	sess.mu.Lock()
	chapter := sess.chapter.Clone()
	original := sess.buffer.Content
	originalTransient := sess.buffer.ContentTransient
	userInput := sess.buffer.UserInput
	sourceContent := sess.buffer.CommittableContent(chapter)
	sess.mu.Unlock()

	if refine && strings.TrimSpace(sourceContent) == "" {
		sess.opMu.Unlock()
		return nil, domain.NewValidationError("content", domain.MsgRefineNeedsContent)
	}

	proposal, err := e.proposals.Get(ctx, sess.proposalID)
	if err != nil {
		sess.opMu.Unlock()
		return nil, err
	}

	lockName := driven.GenerationLockName(chapter.ID)
	acquired, err := e.lock.Acquire(ctx, lockName, e.lockTTL)
	if err != nil {
		sess.opMu.Unlock()
		return nil, err
	}
	if !acquired {
		sess.opMu.Unlock()
		e.notify(ctx, sess, chapter.ID, domain.NotificationWarning, string(kind), domain.MsgGenerationBusy)
		return nil, domain.ErrGenerationInProgress
	}
	defer func() {
		if err := e.lock.Release(context.Background(), lockName); err != nil {
			e.logger.Warn("failed to release generation lock", "lock", lockName, "error", err)
		}
	}()

	placeholder := domain.PlaceholderGenerating
	if refine {
		placeholder = domain.PlaceholderRefining
	}
	sess.mu.Lock()
	sess.buffer.Content = placeholder
	sess.buffer.Generating = true
	sess.buffer.ContentTransient = false
	sess.mu.Unlock()
	sess.opMu.Unlock()

	resolvedTone := e.runner.tone(tone)
	var genReq *domain.GenerationRequest
	if refine {
		genReq = chapterRefineRequest(chapter, sourceContent, resolvedTone)
	} else {
		genReq = chapterDraftRequest(proposal, chapter, userInput, resolvedTone)
	}

	e.logger.Info("generating chapter content",
		"session_id", sessionID,
		"chapter_id", chapter.ID,
		"kind", kind,
		"tone", resolvedTone,
	)
	text, genErr := e.runner.text(ctx, gen, genReq)
	if genErr == nil && text == "" {
		genErr = domain.ErrServiceError
	}

	sess.opMu.Lock()
	defer sess.opMu.Unlock()

	sess.mu.Lock()
	active := !sess.closed && sess.buffer.ChapterID == chapter.ID && sess.buffer.Generating
	if active {
		sess.buffer.Generating = false
		switch {
		case genErr == nil:
			sess.buffer.Content = text
			sess.buffer.ContentTransient = false
			sess.autosave.Touch()
		case refine:
			sess.buffer.Content = original
			sess.buffer.ContentTransient = originalTransient
		default:
			sess.buffer.Content = domain.GenerationFailedText
			sess.buffer.ContentTransient = true
		}
	}
	autosave := sess.autosave
	sess.mu.Unlock()

	if genErr != nil {
		e.logger.Warn("chapter generation failed",
			"chapter_id", chapter.ID,
			"kind", kind,
			"error", genErr,
		)
		event := domain.EventGenerateFailed
		if refine {
			event = domain.EventRefineFailed
		}
		e.notify(ctx, sess, chapter.ID, domain.NotificationError, event, domain.UserMessage(genErr))
		return nil, genErr
	}

	if active {
		if err := autosave.Flush(); err != nil {
			return nil, err
		}
	} else if err := e.commitGenerated(context.Background(), chapter.ID, text); err != nil {
		e.notify(ctx, sess, chapter.ID, domain.NotificationError, domain.EventSaveFailed, domain.UserMessage(err))
		return nil, err
	}

	event := domain.EventGenerated
	msg := "已生成「" + chapter.Title + "」內容。"
	if refine {
		event = domain.EventRefined
		msg = "已精修「" + chapter.Title + "」內容。"
	}
	e.notify(ctx, sess, chapter.ID, domain.NotificationSuccess, event, msg)
	return sess.view(), nil
}

// commitGenerated records generated content for a chapter that is not in
// the session buffer anymore
func (e *editorService) commitGenerated(ctx context.Context, chapterID, text string) error {
	current, err := e.chapters.Get(ctx, chapterID)
	if err != nil {
		return err
	}
	_, _, err = e.history.Commit(ctx, current, domain.HistoryEntry{
		UserInput: current.UserInput,
		Content:   text,
		Citations: current.Citations,
	})
	return err
}

// commitSession writes the buffer of a session if it still holds
// chapterID and differs from the stored chapter. The chapter is re-read and
// the buffer rebased onto it, so commits from generate-all or a revert
// survive edits to other fields.
func (e *editorService) commitSession(ctx context.Context, sess *editorSession, chapterID string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.buffer == nil || sess.buffer.ChapterID != chapterID {
		return nil
	}

	current, err := e.chapters.Get(ctx, chapterID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	sess.buffer.Rebase(sess.chapter, current)
	if !sess.buffer.IsDirty(current) {
		sess.chapter = current
		return nil
	}

	saved, appended, err := e.history.Commit(ctx, current, sess.buffer.Candidate(current))
	if err != nil {
		return err
	}
	sess.chapter = saved

	e.logger.Debug("draft committed",
		"session_id", sess.id,
		"chapter_id", chapterID,
		"appended", appended,
	)
	return nil
}

// load replaces the session's chapter, buffer and autosave controller.
// The caller has flushed and stopped the previous controller.
func (e *editorService) load(sess *editorSession, chapter *domain.Chapter) {
	chapterID := chapter.ID
	autosave := NewAutosaveController(AutosaveConfig{
		Clock:       e.clock,
		Debounce:    e.debounce,
		SavedWindow: e.savedWindow,
		Logger:      e.logger,
		Commit: func(ctx context.Context) error {
			return e.commitSession(ctx, sess, chapterID)
		},
		OnError: func(err error) {
			e.notify(context.Background(), sess, chapterID, domain.NotificationError, domain.EventSaveFailed,
				"自動儲存失敗，稍後將重試："+domain.UserMessage(err))
		},
	})

	sess.mu.Lock()
	sess.chapter = chapter
	sess.buffer = domain.NewDraftBuffer(chapter)
	sess.autosave = autosave
	sess.mu.Unlock()
}

func (e *editorService) resolveChapter(ctx context.Context, proposalID, chapterID string) (*domain.Chapter, error) {
	if chapterID == "" {
		chapters, err := e.chapters.ListByProposal(ctx, proposalID)
		if err != nil {
			return nil, err
		}
		if len(chapters) == 0 {
			return nil, domain.NewValidationError("chapter_id", domain.MsgNoChapters)
		}
		return chapters[0], nil
	}

	chapter, err := e.chapters.Get(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if chapter.ProposalID != proposalID {
		return nil, domain.ErrNotFound
	}
	return chapter, nil
}

func (e *editorService) session(id string) (*editorSession, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sess, ok := e.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return sess, nil
}

func (e *editorService) notify(ctx context.Context, sess *editorSession, chapterID string, level domain.NotificationLevel, event, message string) {
	if e.notifier == nil {
		return
	}
	n := domain.NewNotification(level, event, message)
	n.Timestamp = e.clock.Now()
	n.SessionID = sess.id
	n.ProposalID = sess.proposalID
	n.ChapterID = chapterID
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.logger.Warn("failed to publish notification", "event", event, "error", err)
	}
}

func (s *editorSession) currentAutosave() *AutosaveController {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autosave
}

func (s *editorSession) view() *driving.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &driving.SessionView{
		ID:                 s.id,
		ProposalID:         s.proposalID,
		ChapterID:          s.chapter.ID,
		ChapterTitle:       s.chapter.Title,
		Draft:              s.buffer.Clone(),
		Status:             s.autosave.Status(),
		Dirty:              s.buffer.IsDirty(s.chapter),
		NeedsTemplateDraft: s.chapter.NeedsTemplateDraft(),
		HistoryLength:      len(s.chapter.History),
	}
}
