package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/nightmare-engine/pkg/chat"
)

const (
	veniceBaseURL = "https://api.venice.ai/api/v1"

	DefaultVeniceModel     = "llama-3.3-70b"
	DefaultVeniceMaxTokens = 512
)

// VeniceService implements LLMService for Venice AI
type VeniceService struct {
	apiKey     string
	modelName  string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type VeniceResponseFormat struct {
	Type       string           `json:"type"`
	JSONSchema VeniceJSONSchema `json:"json_schema"`
}

type VeniceJSONSchema struct {
	Name   string                 `json:"name"`
	Strict bool                   `json:"strict"`
	Schema map[string]interface{} `json:"schema"`
}

type VeniceParameters struct {
	IncludeVeniceSystemPrompt bool   `json:"include_venice_system_prompt"`
	EnableWebSearch           string `json:"enable_web_search"`
}

// VeniceChatRequest represents the request structure for Venice AI chat completions
type VeniceChatRequest struct {
	Model            string                `json:"model"`
	Messages         []chat.ChatMessage    `json:"messages"`
	Temperature      float64               `json:"temperature,omitempty"`
	MaxTokens        int                   `json:"max_tokens,omitempty"`
	Stream           bool                  `json:"stream"`
	ResponseFormat   *VeniceResponseFormat `json:"response_format,omitempty"`
	VeniceParameters VeniceParameters      `json:"venice_parameters"`
}

// VeniceChatChoice represents a single choice in the Venice AI response
type VeniceChatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// VeniceChatResponse represents the response structure for Venice AI chat completions
type VeniceChatResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []VeniceChatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewVeniceService creates a new Venice AI service
func NewVeniceService(apiKey string, modelName string, logger *slog.Logger) *VeniceService {
	if modelName == "" {
		modelName = DefaultVeniceModel
	}
	return &VeniceService{
		apiKey:    apiKey,
		modelName: modelName,
		baseURL:   veniceBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// WithBaseURL points the service at a different API root.
func (v *VeniceService) WithBaseURL(baseURL string) *VeniceService {
	v.baseURL = strings.TrimRight(baseURL, "/")
	return v
}

func (v *VeniceService) Name() string { return "venice" }

// InitModel selects the model. Venice needs no other initialization.
func (v *VeniceService) InitModel(ctx context.Context, modelName string) error {
	if modelName != "" {
		v.modelName = modelName
	}
	v.logger.Debug("Venice model selected", "model", v.modelName)
	return nil
}

func (v *VeniceService) Model() string { return v.modelName }

// responseFormat converts a schema into Venice's strict json_schema format
func responseFormat(schema *chat.ResponseSchema) *VeniceResponseFormat {
	if schema == nil {
		return nil
	}
	return &VeniceResponseFormat{
		Type: "json_schema",
		JSONSchema: VeniceJSONSchema{
			Name:   schema.Name,
			Strict: true,
			Schema: schema.JSONSchema(),
		},
	}
}

func (v *VeniceService) Generate(ctx context.Context, req GenerateRequest) (*chat.ChatResponse, error) {
	veniceReq := VeniceChatRequest{
		Model:          v.modelName,
		Messages:       req.Messages,
		Temperature:    req.Temperature,
		MaxTokens:      DefaultVeniceMaxTokens,
		Stream:         false,
		ResponseFormat: responseFormat(req.Schema),
		VeniceParameters: VeniceParameters{
			IncludeVeniceSystemPrompt: false,
			EnableWebSearch:           "off",
		},
	}

	reqBody, err := json.Marshal(veniceReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+v.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var veniceResp VeniceChatResponse
	if err := json.Unmarshal(body, &veniceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if veniceResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", veniceResp.Error.Message)
	}

	if len(veniceResp.Choices) == 0 {
		return &chat.ChatResponse{Message: msgNoResponse, Model: veniceResp.Model}, nil
	}

	v.logger.Debug("Venice response received",
		"model", veniceResp.Model,
		"finish_reason", veniceResp.Choices[0].FinishReason)

	return &chat.ChatResponse{
		Message: veniceResp.Choices[0].Message.Content,
		Model:   veniceResp.Model,
	}, nil
}
