package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/jwebster45206/nightmare-engine/pkg/chat"
)

func TestMockLLMService(t *testing.T) {
	mockService := NewMockLLMAPI()

	err := mockService.InitModel(context.Background(), "test-model")
	if err != nil {
		t.Errorf("InitModel failed: %v", err)
	}

	if len(mockService.InitModelCalls) != 1 {
		t.Errorf("Expected 1 InitModel call, got %d", len(mockService.InitModelCalls))
	}

	if mockService.InitModelCalls[0] != "test-model" {
		t.Errorf("Expected model name 'test-model', got '%s'", mockService.InitModelCalls[0])
	}

	response, err := mockService.Generate(context.Background(), GenerateRequest{
		Messages: []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: "Hello"}},
	})
	if err != nil {
		t.Errorf("Generate failed: %v", err)
	}

	if response.Message != MockEnvironmentResponse {
		t.Errorf("Expected environment response, got '%s'", response.Message)
	}

	response, err = mockService.Generate(context.Background(), GenerateRequest{
		Schema: &chat.ResponseSchema{Name: "objective"},
	})
	if err != nil {
		t.Errorf("Generate failed: %v", err)
	}
	if response.Message != MockObjectiveResponse {
		t.Errorf("Expected objective response, got '%s'", response.Message)
	}

	if len(mockService.Calls()) != 2 {
		t.Errorf("Expected 2 Generate calls, got %d", len(mockService.Calls()))
	}

	mockService.Reset()
	if len(mockService.Calls()) != 0 {
		t.Error("Expected calls to be cleared after Reset")
	}
}

func TestMockLLMService_ErrorHandling(t *testing.T) {
	mockService := NewMockLLMAPI()

	expectedErr := fmt.Errorf("initialization failed")
	mockService.SetInitModelError(expectedErr)

	err := mockService.InitModel(context.Background(), "test-model")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	if err.Error() != expectedErr.Error() {
		t.Errorf("Expected error '%s', got '%s'", expectedErr.Error(), err.Error())
	}

	mockService.SetGenerateError(fmt.Errorf("provider down"))
	if _, err := mockService.Generate(context.Background(), GenerateRequest{}); err == nil {
		t.Error("Expected Generate error, got nil")
	}

	mockService.SetGenerateResponse("custom")
	resp, err := mockService.Generate(context.Background(), GenerateRequest{})
	if err != nil || resp.Message != "custom" {
		t.Errorf("Expected custom response, got %v, %v", resp, err)
	}
}

func TestNewLLMService(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProviderConfig
		want    string
		wantErr bool
	}{
		{name: "mock", cfg: ProviderConfig{Provider: "mock"}, want: "mock"},
		{name: "anthropic", cfg: ProviderConfig{Provider: "anthropic", AnthropicAPIKey: "k"}, want: "anthropic"},
		{name: "venice uppercase", cfg: ProviderConfig{Provider: "VENICE", VeniceAPIKey: "k"}, want: "venice"},
		{name: "anthropic without key", cfg: ProviderConfig{Provider: "anthropic"}, wantErr: true},
		{name: "gemini without key", cfg: ProviderConfig{Provider: "gemini"}, wantErr: true},
		{name: "unknown", cfg: ProviderConfig{Provider: "ouija"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewLLMService(context.Background(), tt.cfg, testLogger())
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if svc.Name() != tt.want {
				t.Errorf("Expected provider %s, got %s", tt.want, svc.Name())
			}
		})
	}
}

func TestNewLLMService_DefaultModels(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProviderConfig
		want string
	}{
		{name: "anthropic default", cfg: ProviderConfig{Provider: "anthropic", AnthropicAPIKey: "k"}, want: DefaultAnthropicModel},
		{name: "venice default", cfg: ProviderConfig{Provider: "venice", VeniceAPIKey: "k"}, want: DefaultVeniceModel},
		{name: "gemini default", cfg: ProviderConfig{Provider: "gemini", GeminiAPIKey: "k"}, want: DefaultGeminiModel},
		{name: "anthropic explicit", cfg: ProviderConfig{Provider: "anthropic", AnthropicAPIKey: "k", ModelName: "claude-3-opus-latest"}, want: "claude-3-opus-latest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewLLMService(context.Background(), tt.cfg, testLogger())
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if closer, ok := svc.(interface{ Close() error }); ok {
				defer func() { _ = closer.Close() }()
			}

			if err := svc.InitModel(context.Background(), tt.cfg.ModelName); err != nil {
				t.Fatalf("InitModel failed: %v", err)
			}
			if svc.Model() != tt.want {
				t.Errorf("Expected model %s, got %s", tt.want, svc.Model())
			}
		})
	}
}

func TestInitModel_SelectsModel(t *testing.T) {
	anthropic := NewAnthropicService("k", "", testLogger())
	venice := NewVeniceService("k", "", testLogger())

	for _, svc := range []LLMService{anthropic, venice} {
		if err := svc.InitModel(context.Background(), "override-model"); err != nil {
			t.Fatalf("InitModel failed: %v", err)
		}
		if svc.Model() != "override-model" {
			t.Errorf("%s: expected override-model, got %s", svc.Name(), svc.Model())
		}
		if err := svc.InitModel(context.Background(), ""); err != nil {
			t.Fatalf("InitModel failed: %v", err)
		}
		if svc.Model() != "override-model" {
			t.Errorf("%s: empty name should keep the current model, got %s", svc.Name(), svc.Model())
		}
	}
}
