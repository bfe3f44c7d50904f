package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven/mocks"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driving"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/runtime"
)

type editorFixture struct {
	editor    driving.EditorService
	proposals *mocks.MockProposalStore
	chapters  *mocks.MockChapterStore
	archive   *mocks.MockHistoryArchive
	lock      *mocks.MockDistributedLock
	notifier  *mocks.MockNotifier
	generator *mocks.MockContentGenerator
	services  *runtime.Services
	clock     *fakeClock
	sleeper   *noSleep

	proposal *domain.Proposal
	first    *domain.Chapter
	second   *domain.Chapter
}

func newEditorFixture(t *testing.T) *editorFixture {
	t.Helper()
	ctx := context.Background()

	f := &editorFixture{
		proposals: mocks.NewMockProposalStore(),
		chapters:  mocks.NewMockChapterStore(),
		archive:   mocks.NewMockHistoryArchive(),
		lock:      mocks.NewMockDistributedLock(),
		notifier:  mocks.NewMockNotifier(),
		generator: mocks.NewMockContentGenerator(),
		services:  runtime.NewServices(domain.NewRuntimeConfig("memory", "memory")),
		clock:     newFakeClock(),
		sleeper:   &noSleep{},
	}
	f.services.SetGenerator(f.generator)

	f.proposal = domain.NewProposal("智慧農業計畫", domain.ConceptionSummary{What: "無人機巡田"})
	require.NoError(t, f.proposals.Save(ctx, f.proposal))

	f.first = domain.NewChapter(f.proposal.ID, "計畫背景", "", 0)
	f.first.UserInput = "缺工"
	f.second = domain.NewChapter(f.proposal.ID, "市場分析", "market", 1)
	require.NoError(t, f.chapters.Save(ctx, f.first))
	require.NoError(t, f.chapters.Save(ctx, f.second))

	retry := DefaultRetryPolicy()
	retry.Sleep = f.sleeper.Sleep

	f.editor = NewEditorService(EditorConfig{
		Proposals: f.proposals,
		Chapters:  f.chapters,
		History:   NewHistoryLog(HistoryLogConfig{Chapters: f.chapters, Archive: f.archive, Clock: f.clock}),
		Lock:      f.lock,
		Notifier:  f.notifier,
		Services:  f.services,
		Retry:     retry,
		Clock:     f.clock,
	})
	return f
}

func (f *editorFixture) open(t *testing.T) *driving.SessionView {
	t.Helper()
	view, err := f.editor.OpenSession(context.Background(), f.proposal.ID, "")
	require.NoError(t, err)
	return view
}

func (f *editorFixture) stored(t *testing.T, id string) *domain.Chapter {
	t.Helper()
	c, err := f.chapters.Get(context.Background(), id)
	require.NoError(t, err)
	return c
}

func setContent(text string) driving.ChangeRequest {
	return driving.ChangeRequest{Field: domain.DraftFieldContent, Text: text}
}

func TestEditor_OpenSessionDefaultsToFirstChapter(t *testing.T) {
	f := newEditorFixture(t)

	view := f.open(t)
	assert.Equal(t, f.first.ID, view.ChapterID)
	assert.Equal(t, "缺工", view.Draft.UserInput)
	assert.Equal(t, domain.SaveStatusIdle, view.Status)
	assert.False(t, view.Dirty)
}

func TestEditor_OpenSessionErrors(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()

	_, err := f.editor.OpenSession(ctx, "prop-missing", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	other := domain.NewProposal("空白計畫", domain.ConceptionSummary{})
	require.NoError(t, f.proposals.Save(ctx, other))
	_, err = f.editor.OpenSession(ctx, other.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.editor.OpenSession(ctx, other.ID, f.first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "chapter of another proposal")
}

func TestEditor_TemplateChapterNeedsDraft(t *testing.T) {
	f := newEditorFixture(t)

	view, err := f.editor.OpenSession(context.Background(), f.proposal.ID, f.second.ID)
	require.NoError(t, err)
	assert.True(t, view.NeedsTemplateDraft)
}

func TestEditor_AutosaveAfterQuietPeriod(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	view := f.open(t)

	for _, text := range []string{"台", "台灣", "台灣農業", "台灣農業缺工"} {
		v, err := f.editor.Change(ctx, view.ID, setContent(text))
		require.NoError(t, err)
		assert.True(t, v.Dirty)
		assert.Equal(t, domain.SaveStatusSaving, v.Status)
		f.clock.Advance(time.Second)
	}
	assert.Empty(t, f.stored(t, f.first.ID).History, "no commit while typing")

	f.clock.Advance(DefaultDebounce)
	stored := f.stored(t, f.first.ID)
	require.Len(t, stored.History, 1)
	assert.Equal(t, "台灣農業缺工", stored.Content)

	v, err := f.editor.Session(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SaveStatusSaved, v.Status)
	assert.False(t, v.Dirty)

	f.clock.Advance(DefaultSavedWindow)
	v, _ = f.editor.Session(ctx, view.ID)
	assert.Equal(t, domain.SaveStatusIdle, v.Status)
}

func TestEditor_ChangeBackToCommittedIsNotDirty(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	view := f.open(t)

	_, err := f.editor.Change(ctx, view.ID, driving.ChangeRequest{Field: domain.DraftFieldUserInput, Text: "缺工"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)

	assert.Empty(t, f.stored(t, f.first.ID).History)
}

func TestEditor_ChangeRejectsUnknownField(t *testing.T) {
	f := newEditorFixture(t)
	view := f.open(t)

	_, err := f.editor.Change(context.Background(), view.ID, driving.ChangeRequest{Field: "title", Text: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEditor_SwitchChapterFlushesPendingEdit(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	view := f.open(t)

	_, err := f.editor.Change(ctx, view.ID, setContent("草稿"))
	require.NoError(t, err)

	v, err := f.editor.SwitchChapter(ctx, view.ID, f.second.ID)
	require.NoError(t, err)
	assert.Equal(t, f.second.ID, v.ChapterID)
	assert.Equal(t, "草稿", f.stored(t, f.first.ID).Content)

	// edits now go to the second chapter only
	_, err = f.editor.Change(ctx, view.ID, setContent("市場"))
	require.NoError(t, err)
	f.clock.Advance(DefaultDebounce)
	assert.Equal(t, "市場", f.stored(t, f.second.ID).Content)
	assert.Equal(t, "草稿", f.stored(t, f.first.ID).Content)
}

func TestEditor_SwitchChapterKeepsBufferWhenFlushFails(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	view := f.open(t)

	_, err := f.editor.Change(ctx, view.ID, setContent("未儲存"))
	require.NoError(t, err)
	f.chapters.SaveFn = func(*domain.Chapter) error { return errors.New("db down") }

	_, err = f.editor.SwitchChapter(ctx, view.ID, f.second.ID)
	require.Error(t, err)

	v, err := f.editor.Session(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, f.first.ID, v.ChapterID)
	assert.Equal(t, "未儲存", v.Draft.Content)
	assert.Equal(t, domain.SaveStatusError, v.Status)
	assert.Equal(t, 1, f.notifier.CountEvent(domain.EventSaveFailed))

	f.chapters.SaveFn = nil
	f.clock.Advance(DefaultDebounce)
	assert.Equal(t, "未儲存", f.stored(t, f.first.ID).Content, "retry commits the edit")
}

func TestEditor_CommitKeepsRenameMadeElsewhere(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	view := f.open(t)

	_, err := f.editor.Change(ctx, view.ID, setContent("內容"))
	require.NoError(t, err)

	renamed := f.stored(t, f.first.ID)
	renamed.Title = "新標題"
	require.NoError(t, f.chapters.Save(ctx, renamed))

	_, err = f.editor.Flush(ctx, view.ID)
	require.NoError(t, err)

	stored := f.stored(t, f.first.ID)
	assert.Equal(t, "新標題", stored.Title)
	assert.Equal(t, "內容", stored.Content)
}

func TestEditor_InsertCitation(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	view := f.open(t)

	_, err := f.editor.Change(ctx, view.ID, setContent("人口老化"))
	require.NoError(t, err)

	_, err = f.editor.InsertCitation(ctx, view.ID, driving.InsertCitationRequest{SourceName: "國發會"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	last, ok := f.notifier.Last()
	require.True(t, ok)
	assert.Equal(t, domain.NotificationWarning, last.Level)
	assert.Equal(t, domain.MsgSelectionRequired, last.Message)

	_, err = f.editor.Select(ctx, view.ID, &domain.SelectionRange{Start: 0, End: 4})
	require.NoError(t, err)
	v, err := f.editor.InsertCitation(ctx, view.ID, driving.InsertCitationRequest{SourceName: "國發會", URL: "https://ndc.gov.tw"})
	require.NoError(t, err)
	assert.Equal(t, "人口老化[1]\n\n--- 資料引用清單 ---\n[1] 國發會: https://ndc.gov.tw", v.Draft.Content)
	assert.Nil(t, v.Draft.Selection)

	_, err = f.editor.Flush(ctx, view.ID)
	require.NoError(t, err)
	stored := f.stored(t, f.first.ID)
	require.Len(t, stored.Citations, 1)
	assert.Equal(t, "[1]", stored.Citations[0].Key)
}

func TestEditor_SelectValidatesRange(t *testing.T) {
	f := newEditorFixture(t)
	view := f.open(t)

	_, err := f.editor.Select(context.Background(), view.ID, &domain.SelectionRange{Start: 0, End: 50})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	v, err := f.editor.Select(context.Background(), view.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, v.Draft.Selection)
}

// blockingGenerator lets a test observe the buffer while generation runs
type blockingGenerator struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	text    string
	err     error
}

func newBlockingGenerator(text string, err error) *blockingGenerator {
	return &blockingGenerator{started: make(chan struct{}), release: make(chan struct{}), text: text, err: err}
}

func (b *blockingGenerator) Generate(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	if b.err != nil {
		return nil, b.err
	}
	return domain.TextResult(b.text), nil
}

func (f *editorFixture) runAsync(sessionID string, refine bool) <-chan error {
	done := make(chan error, 1)
	go func() {
		var err error
		if refine {
			_, err = f.editor.Refine(context.Background(), sessionID, driving.GenerateRequest{})
		} else {
			_, err = f.editor.Generate(context.Background(), sessionID, driving.GenerateRequest{})
		}
		done <- err
	}()
	return done
}

func TestEditor_GenerateShowsPlaceholderThenCommits(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	view := f.open(t)

	gen := newBlockingGenerator("  AI 生成的背景  ", nil)
	f.generator.GenerateFn = gen.Generate

	done := f.runAsync(view.ID, false)
	<-gen.started

	v, err := f.editor.Session(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlaceholderGenerating, v.Draft.Content)
	assert.True(t, v.Draft.Generating)
	assert.False(t, v.Dirty, "placeholder is never committable")

	_, err = f.editor.Change(ctx, view.ID, setContent("手動"))
	assert.ErrorIs(t, err, domain.ErrGenerationInProgress)

	close(gen.release)
	require.NoError(t, <-done)

	stored := f.stored(t, f.first.ID)
	assert.Equal(t, "AI 生成的背景", stored.Content)
	assert.Len(t, stored.History, 1)
	assert.Equal(t, 1, f.notifier.CountEvent(domain.EventGenerated))
	assert.False(t, f.lock.IsHeld(driven.GenerationLockName(f.first.ID)))
}

func TestEditor_GenerateFailureShowsMessageWithoutCommit(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	view := f.open(t)

	f.generator.GenerateFn = func(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
		return nil, domain.ErrServiceError
	}

	_, err := f.editor.Generate(ctx, view.ID, driving.GenerateRequest{})
	assert.ErrorIs(t, err, domain.ErrServiceError)

	v, err := f.editor.Session(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationFailedText, v.Draft.Content)
	assert.False(t, v.Dirty)

	f.clock.Advance(time.Minute)
	assert.Empty(t, f.stored(t, f.first.ID).History)
	assert.Equal(t, 1, f.notifier.CountEvent(domain.EventGenerateFailed))
}

func TestEditor_RefineFailureRestoresOriginal(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	view := f.open(t)

	_, err := f.editor.Change(ctx, view.ID, setContent("原始內容"))
	require.NoError(t, err)
	f.generator.GenerateFn = func(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
		assert.Equal(t, domain.GenerationChapterRefine, req.Kind)
		assert.Equal(t, "原始內容", req.Context[domain.CtxContent])
		return nil, domain.ErrServiceError
	}

	_, err = f.editor.Refine(ctx, view.ID, driving.GenerateRequest{})
	require.Error(t, err)

	v, _ := f.editor.Session(ctx, view.ID)
	assert.Equal(t, "原始內容", v.Draft.Content)
	assert.Equal(t, 1, f.notifier.CountEvent(domain.EventRefineFailed))
}

func TestEditor_RefineRequiresContent(t *testing.T) {
	f := newEditorFixture(t)
	view := f.open(t)

	_, err := f.editor.Refine(context.Background(), view.ID, driving.GenerateRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEditor_GenerateRateLimitExhausted(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	view := f.open(t)

	calls := 0
	f.generator.GenerateFn = func(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
		calls++
		return nil, domain.ErrRateLimited
	}

	_, err := f.editor.Generate(ctx, view.ID, driving.GenerateRequest{})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 5, calls)
	assert.Len(t, f.sleeper.Delays(), 4)

	last, _ := f.notifier.Last()
	assert.Equal(t, domain.MsgRateLimitExhausted, last.Message)
}

func TestEditor_GenerateRejectedWhileLocked(t *testing.T) {
	f := newEditorFixture(t)
	view := f.open(t)
	f.lock.SetLockHeld(driven.GenerationLockName(f.first.ID), time.Minute)

	_, err := f.editor.Generate(context.Background(), view.ID, driving.GenerateRequest{})
	assert.ErrorIs(t, err, domain.ErrGenerationInProgress)

	v, _ := f.editor.Session(context.Background(), view.ID)
	assert.False(t, v.Draft.Generating)
}

func TestEditor_GenerateWithoutGenerator(t *testing.T) {
	f := newEditorFixture(t)
	view := f.open(t)
	f.services.SetGenerator(nil)

	_, err := f.editor.Generate(context.Background(), view.ID, driving.GenerateRequest{})
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestEditor_GenerationFinishingAfterSwitchCommitsToOriginalChapter(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	view := f.open(t)

	gen := newBlockingGenerator("背景草稿", nil)
	f.generator.GenerateFn = gen.Generate

	done := f.runAsync(view.ID, false)
	<-gen.started

	v, err := f.editor.SwitchChapter(ctx, view.ID, f.second.ID)
	require.NoError(t, err)
	assert.Equal(t, f.second.ID, v.ChapterID)

	close(gen.release)
	require.NoError(t, <-done)

	assert.Equal(t, "背景草稿", f.stored(t, f.first.ID).Content)
	assert.Empty(t, f.stored(t, f.second.ID).Content)

	v, _ = f.editor.Session(ctx, view.ID)
	assert.Equal(t, f.second.ID, v.ChapterID)
	assert.Empty(t, v.Draft.Content, "second chapter buffer is untouched")
}

func TestEditor_Revert(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	view := f.open(t)

	for _, text := range []string{"第一版", "第二版"} {
		_, err := f.editor.Change(ctx, view.ID, setContent(text))
		require.NoError(t, err)
		_, err = f.editor.Flush(ctx, view.ID)
		require.NoError(t, err)
	}

	v, err := f.editor.Revert(ctx, view.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "第一版", v.Draft.Content)
	assert.Equal(t, 2, v.HistoryLength)
	assert.Equal(t, "第一版", f.stored(t, f.first.ID).Content)

	_, err = f.editor.Revert(ctx, view.ID, 9)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEditor_CloseSessionFlushes(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	view := f.open(t)

	_, err := f.editor.Change(ctx, view.ID, setContent("結束前"))
	require.NoError(t, err)
	require.NoError(t, f.editor.CloseSession(ctx, view.ID))

	assert.Equal(t, "結束前", f.stored(t, f.first.ID).Content)
	_, err = f.editor.Session(ctx, view.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEditor_NotesEditKeepsDraftFromGenerateAll(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	view := f.open(t)

	f.generator.GenerateFn = func(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
		return domain.TextResult("計畫背景草稿"), nil
	}
	generation := NewGenerationService(GenerationConfig{
		Proposals: f.proposals,
		Chapters:  f.chapters,
		Lock:      f.lock,
		Queue:     mocks.NewMockTaskQueue(),
		Notifier:  f.notifier,
		Services:  f.services,
		Retry:     DefaultRetryPolicy(),
		Sleep:     f.sleeper.Sleep,
	})
	_, err := generation.GenerateAll(ctx, f.proposal.ID, "")
	require.NoError(t, err)
	require.Equal(t, "計畫背景草稿", f.stored(t, f.first.ID).Content)

	_, err = f.editor.Change(ctx, view.ID, driving.ChangeRequest{Field: domain.DraftFieldUserInput, Text: "缺工與老化"})
	require.NoError(t, err)
	v, err := f.editor.Flush(ctx, view.ID)
	require.NoError(t, err)

	stored := f.stored(t, f.first.ID)
	assert.Equal(t, "計畫背景草稿", stored.Content)
	assert.Equal(t, "缺工與老化", stored.UserInput)
	assert.Equal(t, "計畫背景草稿", v.Draft.Content, "the buffer follows the new draft")
}

func TestEditor_NotesEditKeepsRevertMadeElsewhere(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	view := f.open(t)

	for _, text := range []string{"第一版", "第二版"} {
		_, err := f.editor.Change(ctx, view.ID, setContent(text))
		require.NoError(t, err)
		_, err = f.editor.Flush(ctx, view.ID)
		require.NoError(t, err)
	}

	history := NewHistoryLog(HistoryLogConfig{Chapters: f.chapters, Archive: f.archive, Clock: f.clock})
	proposals := NewProposalService(f.proposals, f.chapters, history, nil)
	_, err := proposals.Revert(ctx, f.first.ID, 0)
	require.NoError(t, err)

	_, err = f.editor.Change(ctx, view.ID, driving.ChangeRequest{Field: domain.DraftFieldUserInput, Text: "補充人力"})
	require.NoError(t, err)
	_, err = f.editor.Flush(ctx, view.ID)
	require.NoError(t, err)

	stored := f.stored(t, f.first.ID)
	assert.Equal(t, "第一版", stored.Content)
	assert.Equal(t, "補充人力", stored.UserInput)
}

func TestEditor_ContentEditStillWinsOverOutsideCommit(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	view := f.open(t)

	_, err := f.editor.Change(ctx, view.ID, setContent("使用者改寫"))
	require.NoError(t, err)

	outside := f.stored(t, f.first.ID)
	outside.Content = "外部草稿"
	outside.UserInput = "外部筆記"
	require.NoError(t, f.chapters.Save(ctx, outside))

	_, err = f.editor.Flush(ctx, view.ID)
	require.NoError(t, err)

	stored := f.stored(t, f.first.ID)
	assert.Equal(t, "使用者改寫", stored.Content)
	assert.Equal(t, "外部筆記", stored.UserInput, "untouched notes follow the stored chapter")
}
