package runtime

import (
	"context"
	"sync"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

// Services holds the content generator, which can be replaced at runtime
// via the settings API, together with the default tone.
// Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	config *domain.RuntimeConfig

	generator driven.ContentGenerator
	tone      domain.Tone
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{
		config: config,
		tone:   domain.ToneProfessional,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// Generator returns the current content generator (may be nil)
func (s *Services) Generator() driven.ContentGenerator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generator
}

// RequireGenerator returns the current generator or ErrNotConfigured
func (s *Services) RequireGenerator() (driven.ContentGenerator, error) {
	gen := s.Generator()
	if gen == nil {
		return nil, domain.ErrNotConfigured
	}
	return gen, nil
}

// Tone returns the default tone
func (s *Services) Tone() domain.Tone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tone
}

// ResolveTone returns tone when valid, otherwise the default
func (s *Services) ResolveTone(tone domain.Tone) domain.Tone {
	if tone.IsValid() {
		return tone
	}
	return s.Tone()
}

// SetTone updates the default tone. Invalid tones are ignored.
func (s *Services) SetTone(tone domain.Tone) {
	if !tone.IsValid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tone = tone
}

// SetGenerator replaces the generator, closing the old one, and updates
// the availability flag.
func (s *Services) SetGenerator(gen driven.ContentGenerator) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generator != nil && s.generator != gen {
		_ = s.generator.Close()
	}

	s.generator = gen
	if gen != nil {
		s.config.SetGenerator(gen.Provider())
	} else {
		s.config.SetGenerator("")
	}
}

// ValidateAndSetGenerator pings the generator before installing it.
// A nil generator clears the current one.
func (s *Services) ValidateAndSetGenerator(ctx context.Context, gen driven.ContentGenerator) error {
	if gen == nil {
		s.SetGenerator(nil)
		return nil
	}

	if err := gen.Ping(ctx); err != nil {
		_ = gen.Close()
		return err
	}

	s.SetGenerator(gen)
	return nil
}

// Close shuts down the generator
func (s *Services) Close() error {
	s.SetGenerator(nil)
	return nil
}
