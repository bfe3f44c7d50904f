package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PLANA_CONFIG", "HOST", "PORT", "CORS_ORIGINS", "STORAGE_DRIVER", "DATABASE_URL",
	"SQLITE_PATH", "REDIS_URL", "EDITOR_DEBOUNCE_MS", "GENERATION_MAX_ATTEMPTS",
	"AI_PROVIDER", "GEMINI_API_KEY", "OPENAI_API_KEY", "ARCHIVE_DIR", "ARCHIVE_DISABLED",
	"WORKER_CONCURRENCY", "WORKER_DEQUEUE_TIMEOUT", "WORKER_TASK_TIMEOUT_SEC", "MASTER_KEY",
}

// clearEnv blanks every variable Load reads so the host cannot leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plana.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 1500*time.Millisecond, cfg.Editor.Debounce)
	assert.Equal(t, 5, cfg.Generation.MaxAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Worker.TaskTimeout)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
server:
  port: 9090
  cors_origins: ["https://studio.example.com"]
storage:
  driver: postgres
  database_url: postgres://file
editor:
  debounce: 800ms
ai:
  provider: hybrid
  gemini_api_key: from-file
worker:
  concurrency: 4
  task_timeout: 10m
`)
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://env", cfg.Storage.DatabaseURL, "environment wins over the file")
	assert.Equal(t, 800*time.Millisecond, cfg.Editor.Debounce)
	assert.Equal(t, "hybrid", cfg.AI.Provider)
	assert.Equal(t, "from-file", cfg.AI.GeminiAPIKey)
	assert.Equal(t, "sk-env", cfg.AI.OpenAIAPIKey)
	assert.True(t, cfg.AI.HasKeys())
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, 10*time.Minute, cfg.Worker.TaskTimeout)
	assert.Equal(t, 25, cfg.Storage.MaxOpenConns, "unset values keep their defaults")
}

func TestLoad_MissingFiles(t *testing.T) {
	clearEnv(t)
	t.Setenv("PLANA_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load("")
	require.NoError(t, err, "the default path is optional")
	assert.Equal(t, 8080, cfg.Server.Port)

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err, "an explicit path must exist")
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeFile(t, "server: [not a map"))
	assert.ErrorContains(t, err, "parse")
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PLANA_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("PORT", "7000")
	t.Setenv("EDITOR_DEBOUNCE_MS", "250")
	t.Setenv("GENERATION_MAX_ATTEMPTS", "3")
	t.Setenv("ARCHIVE_DISABLED", "true")
	t.Setenv("WORKER_TASK_TIMEOUT_SEC", "90")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port, "unparseable numbers keep the default")
	assert.Equal(t, 250*time.Millisecond, cfg.Editor.Debounce)
	assert.Equal(t, 3, cfg.Generation.MaxAttempts)
	assert.Empty(t, cfg.Archive.Dir)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 90*time.Second, cfg.Worker.TaskTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mysql" }, "unknown storage driver"},
		{"postgres needs url", func(c *Config) { c.Storage.Driver = DriverPostgres; c.Storage.DatabaseURL = "" }, "database_url"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "out of range"},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "out of range"},
		{"non-positive debounce", func(c *Config) { c.Editor.Debounce = 0 }, "debounce"},
		{"no attempts", func(c *Config) { c.Generation.MaxAttempts = 0 }, "max_attempts"},
		{"short master key", func(c *Config) { c.Secrets.MasterKey = "short" }, "master_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}
