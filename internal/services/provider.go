package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ProviderConfig selects and configures an LLM provider.
type ProviderConfig struct {
	Provider        string
	ModelName       string
	GeminiAPIKey    string
	AnthropicAPIKey string
	VeniceAPIKey    string
}

// Providers lists the accepted LLM_PROVIDER values.
var Providers = []string{"gemini", "anthropic", "venice", "mock"}

// NewLLMService builds the configured provider.
func NewLLMService(ctx context.Context, cfg ProviderConfig, logger *slog.Logger) (LLMService, error) {
	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini API key is required when using gemini provider")
		}
		return NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.ModelName, logger)
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic API key is required when using anthropic provider")
		}
		return NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, logger), nil
	case "venice":
		if cfg.VeniceAPIKey == "" {
			return nil, fmt.Errorf("venice API key is required when using venice provider")
		}
		return NewVeniceService(cfg.VeniceAPIKey, cfg.ModelName, logger), nil
	case "mock":
		return NewMockLLMAPI(), nil
	default:
		return nil, fmt.Errorf("invalid LLM provider %q, supported: %s", cfg.Provider, strings.Join(Providers, ", "))
	}
}
