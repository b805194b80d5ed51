package services

import (
	"context"

	"github.com/jwebster45206/nightmare-engine/pkg/chat"
)

const msgNoResponse = "(no response)"

// GenerateRequest is a single round trip to an LLM.
type GenerateRequest struct {
	Messages    []chat.ChatMessage
	Schema      *chat.ResponseSchema // optional structured output hint
	Temperature float64
}

// LLMService defines the interface for interacting with an LLM provider
type LLMService interface {
	// InitModel selects the model on startup. An empty name keeps the
	// provider's default.
	InitModel(ctx context.Context, modelName string) error

	// Model is the model requests are sent to
	Model() string

	// Generate sends the messages and returns the model's text
	Generate(ctx context.Context, req GenerateRequest) (*chat.ChatResponse, error)

	// Name identifies the provider in logs and health checks
	Name() string
}
