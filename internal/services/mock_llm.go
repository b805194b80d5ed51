package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/nightmare-engine/pkg/chat"
)

// Canned responses returned by MockLLMAPI when no GenerateFunc is set.
const (
	MockEnvironmentResponse = `{"description":"Fog presses against cracked windows. Somewhere below, a music box winds itself."}`
	MockObjectiveResponse   = `{"objective":"Silence the music box before it finishes its song","reward":"Tarnished Music Box Key"}`
)

// MockLLMAPI is a mock implementation of LLMService for testing and
// offline play
type MockLLMAPI struct {
	InitModelFunc func(ctx context.Context, modelName string) error
	GenerateFunc  func(ctx context.Context, req GenerateRequest) (*chat.ChatResponse, error)

	// Track calls for testing
	InitModelCalls []string
	GenerateCalls  []GenerateRequest

	mu sync.Mutex // protects all fields above
}

// Ensure MockLLMAPI implements LLMService interface
var _ LLMService = (*MockLLMAPI)(nil)

// NewMockLLMAPI creates a new mock LLM service
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		InitModelCalls: make([]string, 0),
		GenerateCalls:  make([]GenerateRequest, 0),
	}
}

func (m *MockLLMAPI) Name() string { return "mock" }

func (m *MockLLMAPI) Model() string { return "mock" }

// InitModel mocks model initialization
func (m *MockLLMAPI) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	m.InitModelCalls = append(m.InitModelCalls, modelName)
	fn := m.InitModelFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, modelName)
	}
	return nil
}

// Generate mocks response generation. The lock is released before
// GenerateFunc runs so tests can block inside it.
func (m *MockLLMAPI) Generate(ctx context.Context, req GenerateRequest) (*chat.ChatResponse, error) {
	m.mu.Lock()
	m.GenerateCalls = append(m.GenerateCalls, req)
	fn := m.GenerateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	if req.Schema != nil && req.Schema.Name == "objective" {
		return &chat.ChatResponse{Message: MockObjectiveResponse, Model: "mock"}, nil
	}
	return &chat.ChatResponse{Message: MockEnvironmentResponse, Model: "mock"}, nil
}

// SetGenerateError sets up the mock to return an error on Generate
func (m *MockLLMAPI) SetGenerateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateFunc = func(ctx context.Context, req GenerateRequest) (*chat.ChatResponse, error) {
		return nil, err
	}
}

// SetGenerateResponse sets up the mock to return message on every call
func (m *MockLLMAPI) SetGenerateResponse(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateFunc = func(ctx context.Context, req GenerateRequest) (*chat.ChatResponse, error) {
		return &chat.ChatResponse{Message: message}, nil
	}
}

// SetInitModelError sets up the mock to return an error on InitModel
func (m *MockLLMAPI) SetInitModelError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelFunc = func(ctx context.Context, modelName string) error {
		return err
	}
}

// Calls returns a copy of the Generate calls in a thread-safe way
func (m *MockLLMAPI) Calls() []GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]GenerateRequest, len(m.GenerateCalls))
	copy(calls, m.GenerateCalls)
	return calls
}

// Reset clears all call tracking
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelCalls = make([]string, 0)
	m.GenerateCalls = make([]GenerateRequest, 0)
}
