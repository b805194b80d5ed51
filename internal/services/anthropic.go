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
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"

	DefaultAnthropicModel     = "claude-3-5-haiku-latest"
	DefaultAnthropicMaxTokens = 1024
)

// AnthropicService implements LLMService for Anthropic Claude
type AnthropicService struct {
	apiKey     string
	modelName  string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type AnthropicChatRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []chat.ChatMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
}

type AnthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type AnthropicChatResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Content    []AnthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewAnthropicService(apiKey string, modelName string, logger *slog.Logger) *AnthropicService {
	if modelName == "" {
		modelName = DefaultAnthropicModel
	}
	return &AnthropicService{
		apiKey:    apiKey,
		modelName: modelName,
		baseURL:   anthropicBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// WithBaseURL points the service at a different API root.
func (a *AnthropicService) WithBaseURL(baseURL string) *AnthropicService {
	a.baseURL = strings.TrimRight(baseURL, "/")
	return a
}

func (a *AnthropicService) Name() string { return "anthropic" }

func (a *AnthropicService) InitModel(ctx context.Context, modelName string) error {
	if modelName != "" {
		a.modelName = modelName
	}
	a.logger.Debug("Anthropic model selected", "model", a.modelName)
	return nil
}

func (a *AnthropicService) Model() string { return a.modelName }

// Generate makes a messages request. A schema becomes an instruction in
// the system prompt.
func (a *AnthropicService) Generate(ctx context.Context, req GenerateRequest) (*chat.ChatResponse, error) {
	systemPrompt, conversation := chat.SplitSystem(req.Messages)
	if req.Schema != nil {
		hint := fmt.Sprintf("Respond only with a JSON object with the string fields: %s.", strings.Join(req.Schema.Required(), ", "))
		if systemPrompt != "" {
			systemPrompt += "\n\n"
		}
		systemPrompt += hint
	}

	temperature := req.Temperature
	anthropicReq := AnthropicChatRequest{
		Model:       a.modelName,
		MaxTokens:   DefaultAnthropicMaxTokens,
		Temperature: &temperature,
		Messages:    conversation,
		System:      systemPrompt,
	}

	reqBody, err := json.Marshal(anthropicReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("content-type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
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

	var anthropicResp AnthropicChatResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if anthropicResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", anthropicResp.Error.Message)
	}

	var text strings.Builder
	for _, block := range anthropicResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	a.logger.Debug("Anthropic response received",
		"model", anthropicResp.Model,
		"stop_reason", anthropicResp.StopReason,
		"input_tokens", anthropicResp.Usage.InputTokens,
		"output_tokens", anthropicResp.Usage.OutputTokens)

	content := text.String()
	if content == "" {
		content = msgNoResponse
	}
	return &chat.ChatResponse{Message: content, Model: anthropicResp.Model}, nil
}
