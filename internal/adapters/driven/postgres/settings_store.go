package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/adapters/driven/secrets"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore implements driven.SettingsStore using PostgreSQL.
// API keys are sealed into one BYTEA column; the rest is stored in clear.
type SettingsStore struct {
	db        *DB
	encryptor *secrets.Encryptor
}

// NewSettingsStore creates a new SettingsStore
func NewSettingsStore(db *DB, encryptor *secrets.Encryptor) *SettingsStore {
	return &SettingsStore{db: db, encryptor: encryptor}
}

// GetAISettings retrieves the AI settings
func (s *SettingsStore) GetAISettings(ctx context.Context) (*domain.AISettings, error) {
	query := `
		SELECT provider, tone, gemini_model, gemini_base_url,
			   openai_model, openai_base_url, sealed_keys, updated_at
		FROM ai_settings
		WHERE id = 1
	`

	var settings domain.AISettings
	var sealed []byte
	err := s.db.QueryRowContext(ctx, query).Scan(
		&settings.Provider,
		&settings.Tone,
		&settings.Gemini.Model,
		&settings.Gemini.BaseURL,
		&settings.OpenAI.Model,
		&settings.OpenAI.BaseURL,
		&sealed,
		&settings.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ai settings: %w", err)
	}

	keys, err := s.encryptor.OpenKeys(sealed)
	if err != nil {
		return nil, fmt.Errorf("open api keys: %w", err)
	}
	settings.Gemini.APIKey = keys.Gemini
	settings.OpenAI.APIKey = keys.OpenAI
	return &settings, nil
}

// SaveAISettings persists the AI settings
func (s *SettingsStore) SaveAISettings(ctx context.Context, settings *domain.AISettings) error {
	sealed, err := s.encryptor.SealKeys(secrets.APIKeys{
		Gemini: settings.Gemini.APIKey,
		OpenAI: settings.OpenAI.APIKey,
	})
	if err != nil {
		return fmt.Errorf("seal api keys: %w", err)
	}

	query := `
		INSERT INTO ai_settings (id, provider, tone, gemini_model, gemini_base_url,
								 openai_model, openai_base_url, sealed_keys, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			provider = EXCLUDED.provider,
			tone = EXCLUDED.tone,
			gemini_model = EXCLUDED.gemini_model,
			gemini_base_url = EXCLUDED.gemini_base_url,
			openai_model = EXCLUDED.openai_model,
			openai_base_url = EXCLUDED.openai_base_url,
			sealed_keys = EXCLUDED.sealed_keys,
			updated_at = EXCLUDED.updated_at
	`

	settings.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx, query,
		string(settings.Provider),
		string(settings.Tone),
		settings.Gemini.Model,
		settings.Gemini.BaseURL,
		settings.OpenAI.Model,
		settings.OpenAI.BaseURL,
		sealed,
		settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save ai settings: %w", err)
	}
	return nil
}
