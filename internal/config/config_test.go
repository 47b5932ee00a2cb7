package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 10, cfg.SCM.ContextWindow)
	assert.Equal(t, "deepseek/deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, 60000, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.InDelta(t, 8.5, cfg.Review.QualityThreshold, 1e-9)
	assert.Contains(t, cfg.Review.IgnorePatterns, "**/node_modules/")
	assert.Contains(t, cfg.Review.IgnorePatterns, "**/*.min.js")
	assert.InDelta(t, 0.3, cfg.Review.ScoringRules["security"], 1e-9)
	assert.InDelta(t, 0.3, cfg.Review.ScoringRules["best_practice"], 1e-9)
	assert.Equal(t, 1, cfg.Server.Workers)

	require.NoError(t, cfg.Validate())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
scm:
  url: https://git.example.com
  token: secret-token
  context_window: 5
llm:
  model: openai/gpt-4o
  api_key: sk-test
  max_tokens: 30000
review:
  quality_threshold: 9.0
  ignore_patterns:
    - "**/generated/"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "https://git.example.com", cfg.SCM.URL)
	assert.Equal(t, "secret-token", cfg.SCM.Token)
	assert.Equal(t, 5, cfg.SCM.ContextWindow)
	assert.Equal(t, "openai/gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 30000, cfg.LLM.MaxTokens)
	assert.InDelta(t, 9.0, cfg.Review.QualityThreshold, 1e-9)
	assert.Equal(t, []string{"**/generated/"}, cfg.Review.IgnorePatterns)
	// untouched sections keep defaults
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.InDelta(t, 0.2, cfg.Review.ScoringRules["performance"], 1e-9)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scm:\n  url: https://file.example.com\n"), 0600))

	t.Setenv("GITEA_URL", "https://env.example.com")
	t.Setenv("GITEA_TOKEN", "env-token")
	t.Setenv("REVIEW_QUALITY_THRESHOLD", "7.5")
	t.Setenv("REVIEW_IGNORE_PATTERNS", "**/dist/, **/*.lock ,")
	t.Setenv("LLM_TIMEOUT", "90s")
	t.Setenv("WEBHOOK_WORKERS", "2")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.SCM.URL)
	assert.Equal(t, "env-token", cfg.SCM.Token)
	assert.InDelta(t, 7.5, cfg.Review.QualityThreshold, 1e-9)
	assert.Equal(t, []string{"**/dist/", "**/*.lock"}, cfg.Review.IgnorePatterns)
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 2, cfg.Server.Workers)
}

func TestLoadMissingFileIsFine(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.SCM.ContextWindow)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("LLM_MODEL=deepseek/deepseek-coder\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("LLM_MODEL") })

	cfg, err := Load("", envPath)
	require.NoError(t, err)
	assert.Equal(t, "deepseek/deepseek-coder", cfg.LLM.Model)

	_, err = Load("", filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero context window",
			mutate:  func(c *Config) { c.SCM.ContextWindow = 0 },
			wantErr: "context_window",
		},
		{
			name:    "empty model",
			mutate:  func(c *Config) { c.LLM.Model = "" },
			wantErr: "model",
		},
		{
			name:    "negative max tokens",
			mutate:  func(c *Config) { c.LLM.MaxTokens = -1 },
			wantErr: "max_tokens",
		},
		{
			name:    "threshold out of range",
			mutate:  func(c *Config) { c.Review.QualityThreshold = 10.5 },
			wantErr: "quality_threshold",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Server.Workers = 0 },
			wantErr: "workers",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.SCM.URL = "https://git.example.com"
	cfg.SCM.Token = "tok"
	cfg.Review.QualityThreshold = 9.2
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, cfg.SCM.URL, loaded.SCM.URL)
	assert.InDelta(t, 9.2, loaded.Review.QualityThreshold, 1e-9)
	assert.Equal(t, cfg.Review.IgnorePatterns, loaded.Review.IgnorePatterns)
}
