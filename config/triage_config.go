package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-latest",
}

type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"env"`
	LogLevel    string `yaml:"log_level"`

	// LLM
	LLMProvider     string `yaml:"llm_provider"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	LLMModel        string `yaml:"llm_model"`
	LLMBaseURL      string `yaml:"llm_base_url"`
	LLMTimeoutSec   int    `yaml:"llm_timeout_sec"`

	// Classification
	BatchMaxSize       int  `yaml:"batch_max_size"`
	BatchIsolateErrors bool `yaml:"batch_isolate_errors"`
	StrictLabels       bool `yaml:"strict_labels"`

	// Circuit breaker around the LLM gateway
	BreakerEnabled bool `yaml:"breaker_enabled"`

	// HTTP
	StaticDir      string   `yaml:"static_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	BodyLimitMB    int      `yaml:"body_limit_mb"`
}

func defaults() *Config {
	return &Config{
		Port:               "8080",
		Environment:        "development",
		LogLevel:           "info",
		LLMProvider:        ProviderOpenAI,
		LLMTimeoutSec:      30,
		BatchMaxSize:       10,
		BatchIsolateErrors: true,
		StrictLabels:       true,
		BreakerEnabled:     true,
		StaticDir:          "static",
		AllowedOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		BodyLimitMB:        20,
	}
}

// Load reads the optional YAML file named by CONFIG_PATH (default config.yaml)
// and then applies environment overrides. A missing credential is not an
// error here; the gateway reports it on first use.
func Load() (*Config, error) {
	cfg := defaults()

	path := getEnv("CONFIG_PATH", "config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Environment = getEnv("ENV", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.LLMProvider = strings.ToLower(getEnv("LLM_PROVIDER", cfg.LLMProvider))
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.LLMBaseURL = getEnv("LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.LLMTimeoutSec = getEnvInt("LLM_TIMEOUT_SEC", cfg.LLMTimeoutSec)

	cfg.BatchMaxSize = getEnvInt("BATCH_MAX_SIZE", cfg.BatchMaxSize)
	cfg.BatchIsolateErrors = getEnvBool("BATCH_ISOLATE_ERRORS", cfg.BatchIsolateErrors)
	cfg.StrictLabels = getEnvBool("STRICT_LABELS", cfg.StrictLabels)
	cfg.BreakerEnabled = getEnvBool("BREAKER_ENABLED", cfg.BreakerEnabled)

	cfg.StaticDir = getEnv("STATIC_DIR", cfg.StaticDir)
	cfg.AllowedOrigins = getEnvSlice("ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.BodyLimitMB = getEnvInt("BODY_LIMIT_MB", cfg.BodyLimitMB)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModels[cfg.LLMProvider]
	}
	return cfg, nil
}

// Validate checks values that would make the service misbehave silently.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.BatchMaxSize < 1 {
		return fmt.Errorf("BATCH_MAX_SIZE must be positive, got %d", c.BatchMaxSize)
	}
	if c.LLMTimeoutSec < 1 {
		return fmt.Errorf("LLM_TIMEOUT_SEC must be positive, got %d", c.LLMTimeoutSec)
	}
	return nil
}

// LLMTimeout returns the per-call bound for remote completions.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSec) * time.Second
}

// APIKey returns the credential of the selected provider.
func (c *Config) APIKey() string {
	if c.LLMProvider == ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, v := range strings.Split(value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
