package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/jwebster45206/nightmare-engine/pkg/chat"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiService implements LLMService for Google Gemini
type GeminiService struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

// NewGeminiService creates a Gemini client. Extra client options are
// appended after the API key.
func NewGeminiService(ctx context.Context, apiKey string, modelName string, logger *slog.Logger, opts ...option.ClientOption) (*GeminiService, error) {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiService{
		client:    client,
		modelName: modelName,
		logger:    logger,
	}, nil
}

func (g *GeminiService) Name() string { return "gemini" }

func (g *GeminiService) InitModel(ctx context.Context, modelName string) error {
	if modelName != "" {
		g.modelName = modelName
	}
	g.logger.Debug("Gemini model selected", "model", g.modelName)
	return nil
}

func (g *GeminiService) Model() string { return g.modelName }

// Close releases the underlying client
func (g *GeminiService) Close() error {
	return g.client.Close()
}

func (g *GeminiService) Generate(ctx context.Context, req GenerateRequest) (*chat.ChatResponse, error) {
	// A model value per request keeps configuration from leaking between
	// concurrent calls.
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(float32(req.Temperature))

	system, conversation := chat.SplitSystem(req.Messages)
	if system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}
	if req.Schema != nil {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = geminiSchema(req.Schema)
	}

	parts := make([]genai.Part, 0, len(conversation))
	for _, msg := range conversation {
		parts = append(parts, genai.Text(msg.Content))
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no user content to send")
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("Gemini response received", "model", g.modelName, "length", len(text))
	return &chat.ChatResponse{Message: text, Model: g.modelName}, nil
}

// geminiSchema converts a flat string-field schema to Gemini's format
func geminiSchema(s *chat.ResponseSchema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Properties))
	for _, p := range s.Properties {
		props[p.Name] = &genai.Schema{
			Type:        genai.TypeString,
			Description: p.Description,
		}
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   s.Required(),
	}
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no content returned from Gemini")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", fmt.Errorf("no content returned from Gemini (finish reason %s)", cand.FinishReason)
	}

	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("unexpected response type from Gemini")
	}
	return b.String(), nil
}
