// Package config assembles the immutable runtime configuration. Values
// are resolved once in main (defaults, then an optional YAML file, then
// environment variables) and handed to components at construction; no
// package reads configuration globally after startup.
package config

import (
	"fmt"
	"time"
)

// SCMConfig configures the Gitea forge client.
type SCMConfig struct {
	URL           string        `yaml:"url"`
	Token         string        `yaml:"token"`
	ContextWindow int           `yaml:"context_window"`
	Timeout       time.Duration `yaml:"timeout"`
}

// LLMConfig configures the review model client. Model names may carry a
// provider prefix ("deepseek/deepseek-chat"); the base URL is derived
// from the prefix unless set explicitly. MaxTokens is the per-request
// token budget used by the chunker, not a generation cap.
type LLMConfig struct {
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	MaxTokens         int           `yaml:"max_tokens"`
	Temperature       float64       `yaml:"temperature"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	BurstLimit        int           `yaml:"burst_limit"`
}

// ReviewConfig configures review policy. ScoringRules are rendered into
// the report table for reviewers; aggregation itself is an unweighted
// minimum.
type ReviewConfig struct {
	QualityThreshold float64            `yaml:"quality_threshold"`
	IgnorePatterns   []string           `yaml:"ignore_patterns"`
	ScoringRules     map[string]float64 `yaml:"scoring_rules"`
}

// ServerConfig configures the webhook HTTP server.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	GinMode         string        `yaml:"gin_mode"`
	WebhookSecret   string        `yaml:"webhook_secret"`
	QueueSize       int           `yaml:"queue_size"`
	Workers         int           `yaml:"workers"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	Output    string `yaml:"output"`
	AddSource bool   `yaml:"add_source"`
}

// Config is the full application configuration.
type Config struct {
	SCM     SCMConfig     `yaml:"scm"`
	LLM     LLMConfig     `yaml:"llm"`
	Review  ReviewConfig  `yaml:"review"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// Default returns the configuration used before any file or environment
// overrides.
func Default() *Config {
	return &Config{
		SCM: SCMConfig{
			ContextWindow: 10,
			Timeout:       30 * time.Second,
		},
		LLM: LLMConfig{
			Model:             "deepseek/deepseek-chat",
			MaxTokens:         60000,
			Temperature:       0.2,
			Timeout:           120 * time.Second,
			RequestsPerMinute: 30,
			BurstLimit:        5,
		},
		Review: ReviewConfig{
			QualityThreshold: 8.5,
			IgnorePatterns:   defaultIgnorePatterns(),
			ScoringRules: map[string]float64{
				"security":      0.3,
				"performance":   0.2,
				"readability":   0.2,
				"best_practice": 0.3,
			},
		},
		Server: ServerConfig{
			Port:            "8080",
			GinMode:         "release",
			QueueSize:       100,
			Workers:         1,
			ShutdownTimeout: 10 * time.Second,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

func defaultIgnorePatterns() []string {
	return []string{
		"**/node_modules/", "**/vendor/", "**/venv/", "**/.venv/",
		"**/bower_components/", "**/jspm_packages/", "**/packages/",
		"**/deps/", "**/dist/", "**/build/", "**/out/", "**/target/",
		"**/bin/", "**/obj/", "**/*.exe", "**/*.dll", "**/*.so",
		"**/*.a", "**/*.jar", "**/*.class", "**/*.pyc",
		"**/__pycache__/", "**/*.egg-info/", "**/.DS_Store",
		"**/Thumbs.db", "**/Desktop.ini", "**/.idea/", "**/.vscode/",
		"**/.vs/", "**/*.suo", "**/*.user", "**/*.sublime-project",
		"**/*.sublime-workspace", "**/*.log", "**/logs/", "**/tmp/",
		"**/*.tmp", "**/*.swp", "**/*.swo", "**/.sass-cache/",
		"**/coverage/", "**/.nyc_output/", "**/junit.xml",
		"**/test-results/", "**/*.min.js", "**/*.min.css", "**/*.map",
		"**/public/static/", "**/compiled/", "**/generated/", "**/.env",
		"**/.env.local", "**/.env.*.local", "**/docker-compose.override.yml",
		"**/*.key", "**/*.pem", "**/*.crt", "**/docs/_build/",
		"**/site/", "**/.vuepress/dist/", "**/package-lock.json",
		"**/yarn.lock", "**/Gemfile.lock", "**/Podfile.lock",
	}
}

// Validate checks the configuration for values the services cannot run
// with. Credentials are checked by the callers that need them so tests
// and dry runs can build partial configs.
func (c *Config) Validate() error {
	if err := c.validateSCM(); err != nil {
		return fmt.Errorf("scm config: %w", err)
	}
	if err := c.validateLLM(); err != nil {
		return fmt.Errorf("llm config: %w", err)
	}
	if err := c.validateReview(); err != nil {
		return fmt.Errorf("review config: %w", err)
	}
	if err := c.validateServer(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

func (c *Config) validateSCM() error {
	if c.SCM.ContextWindow <= 0 {
		return fmt.Errorf("context_window must be positive")
	}
	if c.SCM.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0, 2]")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

func (c *Config) validateReview() error {
	if c.Review.QualityThreshold < 0 || c.Review.QualityThreshold > 10 {
		return fmt.Errorf("quality_threshold must be in [0, 10]")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.Server.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive")
	}
	if c.Server.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	return nil
}
