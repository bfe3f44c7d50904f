package domain

import "time"

// AIProvider identifies the content generation backend
type AIProvider string

const (
	AIProviderGemini AIProvider = "gemini"
	AIProviderOpenAI AIProvider = "openai"
	// AIProviderHybrid uses Gemini and falls back to OpenAI on service errors
	AIProviderHybrid AIProvider = "hybrid"
)

// IsValid returns true if this is a known provider
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderGemini, AIProviderOpenAI, AIProviderHybrid:
		return true
	default:
		return false
	}
}

// DisplayName returns the label shown to users.
func (p AIProvider) DisplayName() string {
	switch p {
	case AIProviderGemini:
		return "Gemini"
	case AIProviderOpenAI:
		return "ChatGPT"
	case AIProviderHybrid:
		return "混合模式"
	default:
		return string(p)
	}
}

// Default models per provider
const (
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// ProviderCredentials configures one backend.
type ProviderCredentials struct {
	Model   string `json:"model"`
	APIKey  string `json:"-"` // Never serialize to JSON
	BaseURL string `json:"base_url,omitempty"`
}

// HasKey returns true when an API key is set.
func (c *ProviderCredentials) HasKey() bool {
	return c.APIKey != ""
}

// AISettings holds content generation configuration.
// This can be updated at runtime via API
type AISettings struct {
	Provider  AIProvider          `json:"provider"`
	Tone      Tone                `json:"tone"`
	Gemini    ProviderCredentials `json:"gemini"`
	OpenAI    ProviderCredentials `json:"openai"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// DefaultAISettings returns settings with no keys.
func DefaultAISettings() *AISettings {
	return &AISettings{
		Provider:  AIProviderGemini,
		Tone:      ToneProfessional,
		Gemini:    ProviderCredentials{Model: DefaultGeminiModel},
		OpenAI:    ProviderCredentials{Model: DefaultOpenAIModel},
		UpdatedAt: time.Now(),
	}
}

// IsConfigured returns true if the selected provider has the keys it needs
func (s *AISettings) IsConfigured() bool {
	switch s.Provider {
	case AIProviderGemini:
		return s.Gemini.HasKey()
	case AIProviderOpenAI:
		return s.OpenAI.HasKey()
	case AIProviderHybrid:
		return s.Gemini.HasKey() && s.OpenAI.HasKey()
	default:
		return false
	}
}

// AISettingsView is the API representation with keys masked
type AISettingsView struct {
	Provider        AIProvider `json:"provider"`
	Tone            Tone       `json:"tone"`
	GeminiModel     string     `json:"gemini_model"`
	GeminiKeySet    bool       `json:"gemini_key_set"`
	GeminiKeyMasked string     `json:"gemini_key_masked,omitempty"`
	OpenAIModel     string     `json:"openai_model"`
	OpenAIBaseURL   string     `json:"openai_base_url,omitempty"`
	OpenAIKeySet    bool       `json:"openai_key_set"`
	OpenAIKeyMasked string     `json:"openai_key_masked,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// View returns the masked representation.
func (s *AISettings) View() *AISettingsView {
	return &AISettingsView{
		Provider:        s.Provider,
		Tone:            s.Tone,
		GeminiModel:     s.Gemini.Model,
		GeminiKeySet:    s.Gemini.HasKey(),
		GeminiKeyMasked: MaskKey(s.Gemini.APIKey),
		OpenAIModel:     s.OpenAI.Model,
		OpenAIBaseURL:   s.OpenAI.BaseURL,
		OpenAIKeySet:    s.OpenAI.HasKey(),
		OpenAIKeyMasked: MaskKey(s.OpenAI.APIKey),
		UpdatedAt:       s.UpdatedAt,
	}
}

// MaskKey keeps the last four characters of a key.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// AIStatus reports whether content generation is usable
type AIStatus struct {
	Provider   AIProvider `json:"provider"`
	Configured bool       `json:"configured"`
	Available  bool       `json:"available"`
	Tone       Tone       `json:"tone"`
}
