package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load resolves the configuration. Precedence, lowest to highest:
// compiled defaults, the YAML file at configPath (skipped when absent),
// then environment variables. envFile, when non-empty, is loaded into
// the environment first; otherwise a ./.env file is picked up if
// present.
func Load(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := Default()

	if configPath != "" {
		if err := cfg.mergeFile(configPath); err != nil {
			return nil, err
		}
	}

	cfg.mergeEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() {
	c.SCM.URL = getEnvString("GITEA_URL", c.SCM.URL)
	c.SCM.Token = getEnvString("GITEA_TOKEN", c.SCM.Token)
	c.SCM.ContextWindow = getEnvInt("GITEA_CONTEXT_WINDOW", c.SCM.ContextWindow)
	c.SCM.Timeout = getEnvDuration("GITEA_TIMEOUT", c.SCM.Timeout)

	c.LLM.Model = getEnvString("LLM_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnvString("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnvString("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.MaxTokens = getEnvInt("LLM_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.Temperature = getEnvFloat("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvDuration("LLM_TIMEOUT", c.LLM.Timeout)
	c.LLM.RequestsPerMinute = getEnvInt("LLM_REQUESTS_PER_MINUTE", c.LLM.RequestsPerMinute)
	c.LLM.BurstLimit = getEnvInt("LLM_BURST_LIMIT", c.LLM.BurstLimit)

	c.Review.QualityThreshold = getEnvFloat("REVIEW_QUALITY_THRESHOLD", c.Review.QualityThreshold)
	if v := getEnvString("REVIEW_IGNORE_PATTERNS", ""); v != "" {
		c.Review.IgnorePatterns = splitPatterns(v)
	}

	c.Server.Port = getEnvString("PORT", c.Server.Port)
	c.Server.GinMode = getEnvString("GIN_MODE", c.Server.GinMode)
	c.Server.WebhookSecret = getEnvString("WEBHOOK_SECRET", c.Server.WebhookSecret)
	c.Server.QueueSize = getEnvInt("WEBHOOK_QUEUE_SIZE", c.Server.QueueSize)
	c.Server.Workers = getEnvInt("WEBHOOK_WORKERS", c.Server.Workers)

	c.Logging.Level = getEnvString("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnvString("LOG_FORMAT", c.Logging.Format)
	c.Logging.Output = getEnvString("LOG_OUTPUT", c.Logging.Output)
	c.Logging.AddSource = getEnvBool("LOG_ADD_SOURCE", c.Logging.AddSource)
}

// Save writes the configuration back to a YAML file with the same keys
// Load reads. Deployments that template config.yaml and the reviewpr
// tool's -write-config flag use this.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file %s: %w", path, err)
	}
	return nil
}

func splitPatterns(s string) []string {
	parts := strings.Split(s, ",")
	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
