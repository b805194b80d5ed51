package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        string     `env:"PORT" envDefault:"8080"`
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string     `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level `env:"-"`

	RedisURL       string        `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`

	LLMProvider     string `env:"LLM_PROVIDER" envDefault:"gemini"`
	ModelName       string `env:"MODEL_NAME"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	VeniceAPIKey    string `env:"VENICE_API_KEY"`
	ContentFilter   bool   `env:"CONTENT_FILTER" envDefault:"false"`
	PromptsFile     string `env:"PROMPTS_FILE"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from vars instead of the process
// environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.LLMProvider = strings.ToLower(cfg.LLMProvider)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected provider can be used.
func (c *Config) Validate() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	var key string
	switch c.LLMProvider {
	case "gemini":
		key = c.GeminiAPIKey
	case "anthropic":
		key = c.AnthropicAPIKey
	case "venice":
		key = c.VeniceAPIKey
	case "mock":
		return nil
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q", c.LLMProvider)
	}
	if key == "" {
		return fmt.Errorf("%s_API_KEY is required when LLM_PROVIDER=%s", strings.ToUpper(c.LLMProvider), c.LLMProvider)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
