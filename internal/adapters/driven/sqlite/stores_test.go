package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/adapters/driven/secrets"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "plana.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestProposalAndChapterStores(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	proposals := NewProposalStore(db)
	chapters := NewChapterStore(db)

	p := domain.NewProposal("智慧農業", domain.ConceptionSummary{Why: "缺工"})
	require.NoError(t, proposals.Save(ctx, p))

	second := domain.NewChapter(p.ID, "市場", "market", 1)
	first := domain.NewChapter(p.ID, "背景", "", 0)
	first.Content = "內容[1]"
	first.Citations = []domain.Citation{{Key: "[1]", SourceName: "農委會"}}
	first.History = []domain.HistoryEntry{{Timestamp: time.Now().UTC().Truncate(time.Second), Content: "內容[1]"}}
	require.NoError(t, chapters.Save(ctx, second))
	require.NoError(t, chapters.Save(ctx, first))

	got, err := proposals.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "缺工", got.Summary.Why)

	list, err := chapters.ListByProposal(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, "農委會", list[0].Citations[0].SourceName)
	require.Len(t, list[0].History, 1)
	assert.True(t, first.History[0].Timestamp.Equal(list[0].History[0].Timestamp))
	assert.Equal(t, "market", list[1].TemplateKey)
	assert.Empty(t, list[1].History)

	first.Title = "計畫緣起"
	require.NoError(t, chapters.Save(ctx, first))
	reloaded, err := chapters.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "計畫緣起", reloaded.Title)

	require.NoError(t, chapters.Delete(ctx, second.ID))
	assert.ErrorIs(t, chapters.Delete(ctx, second.ID), domain.ErrNotFound)

	criteria := NewCriteriaStore(db)
	require.NoError(t, criteria.SaveCriteria(ctx, p.ID, domain.DefaultScoringCriteria()))

	require.NoError(t, proposals.Delete(ctx, p.ID))
	_, err = criteria.GetCriteria(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "criteria scoped to the proposal are removed")
	_, err = chapters.Get(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "chapters cascade with their proposal")
	_, err = proposals.Get(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, proposals.Delete(ctx, p.ID), domain.ErrNotFound)
}

func TestProposalStore_DeleteRollsBackOnFailure(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	proposals := NewProposalStore(db)

	p := domain.NewProposal("智慧農業", domain.ConceptionSummary{})
	require.NoError(t, proposals.Save(ctx, p))

	_, err := db.db.ExecContext(ctx, `DROP TABLE scoring_criteria`)
	require.NoError(t, err)

	assert.Error(t, proposals.Delete(ctx, p.ID))
	_, err = proposals.Get(ctx, p.ID)
	assert.NoError(t, err, "the proposal survives a failed criteria delete")
}

func TestCriteriaStore(t *testing.T) {
	store := NewCriteriaStore(openTestDB(t))
	ctx := context.Background()

	_, err := store.GetCriteria(ctx, "prop-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	score := 77.0
	criteria := domain.DefaultScoringCriteria()
	criteria[0].AIScore = &score
	require.NoError(t, store.SaveCriteria(ctx, "prop-1", criteria))

	got, err := store.GetCriteria(ctx, "prop-1")
	require.NoError(t, err)
	assert.Equal(t, criteria, got)
}

func TestSettingsStore_KeysAreSealed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	enc, err := secrets.NewEncryptor([]byte("0123456789abcdef0123456789abcdef"), nil)
	require.NoError(t, err)
	store := NewSettingsStore(db, enc)

	_, err = store.GetAISettings(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	settings := domain.DefaultAISettings()
	settings.Provider = domain.AIProviderHybrid
	settings.Gemini.APIKey = "AIza-1"
	settings.OpenAI.APIKey = "sk-2"
	require.NoError(t, store.SaveAISettings(ctx, settings))

	var raw []byte
	require.NoError(t, db.db.QueryRowContext(ctx, `SELECT sealed_keys FROM ai_settings`).Scan(&raw))
	assert.NotContains(t, string(raw), "sk-2")

	got, err := store.GetAISettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderHybrid, got.Provider)
	assert.Equal(t, "AIza-1", got.Gemini.APIKey)
	assert.Equal(t, "sk-2", got.OpenAI.APIKey)
	assert.Equal(t, domain.DefaultOpenAIModel, got.OpenAI.Model)
}
