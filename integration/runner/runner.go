package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/nightmare-engine/pkg/session"
)

// Runner drives a running nightmare-engine API.
type Runner struct {
	BaseURL string
	Client  *http.Client
	Logger  func(format string, args ...interface{})
}

// Result is the body of a game operation response.
type Result struct {
	State        *session.State        `json:"session"`
	Notification *session.Notification `json:"notification,omitempty"`
}

// StatusError is returned for any unexpected status code.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Client:  &http.Client{Timeout: 90 * time.Second},
		Logger:  func(string, ...interface{}) {},
	}
}

func (r *Runner) Healthy(ctx context.Context) bool {
	err := r.do(ctx, http.MethodGet, "/health", nil, http.StatusOK, nil)
	return err == nil
}

func (r *Runner) CreateSession(ctx context.Context) (*session.State, error) {
	var s session.State
	if err := r.do(ctx, http.MethodPost, "/v1/sessions", nil, http.StatusCreated, &s); err != nil {
		return nil, err
	}
	r.Logger("Created session %s", s.ID)
	return &s, nil
}

func (r *Runner) Session(ctx context.Context, id uuid.UUID) (*session.State, error) {
	var s session.State
	if err := r.do(ctx, http.MethodGet, "/v1/sessions/"+id.String(), nil, http.StatusOK, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Runner) SubmitEnvironment(ctx context.Context, id uuid.UUID, prompt string) (*Result, error) {
	return r.action(ctx, id, "environment", map[string]string{"prompt": prompt})
}

func (r *Runner) SubmitObjective(ctx context.Context, id uuid.UUID, difficulty session.Difficulty) (*Result, error) {
	return r.action(ctx, id, "objective", map[string]string{"difficulty": string(difficulty)})
}

func (r *Runner) CompleteObjective(ctx context.Context, id uuid.UUID) (*Result, error) {
	return r.action(ctx, id, "complete", nil)
}

func (r *Runner) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return r.do(ctx, http.MethodDelete, "/v1/sessions/"+id.String(), nil, http.StatusNoContent, nil)
}

func (r *Runner) action(ctx context.Context, id uuid.UUID, name string, body interface{}) (*Result, error) {
	start := time.Now()
	var res Result
	if err := r.do(ctx, http.MethodPost, "/v1/sessions/"+id.String()+"/"+name, body, http.StatusOK, &res); err != nil {
		return nil, err
	}
	r.Logger("%s completed in %v", name, time.Since(start))
	return &res, nil
}

func (r *Runner) do(ctx context.Context, method, path string, body interface{}, want int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != want {
		return &StatusError{Status: resp.StatusCode, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
