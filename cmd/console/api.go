package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jwebster45206/nightmare-engine/pkg/session"
)

// ErrorResponse is the API's error body.
type ErrorResponse struct {
	Error        string                `json:"error"`
	Field        string                `json:"field,omitempty"`
	Notification *session.Notification `json:"notification,omitempty"`
}

// APIError is a non-success response from the API.
type APIError struct {
	Status int
	ErrorResponse
}

func (e *APIError) Error() string {
	if e.ErrorResponse.Error == "" {
		return fmt.Sprintf("API returned status %d", e.Status)
	}
	return e.ErrorResponse.Error
}

// Result mirrors the body of a game operation response.
type Result struct {
	State        *session.State        `json:"session"`
	Notification *session.Notification `json:"notification,omitempty"`
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func createSession(client *http.Client, baseURL string) (*session.State, error) {
	var s session.State
	if err := doJSON(client, http.MethodPost, baseURL+"/v1/sessions", nil, http.StatusCreated, &s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &s, nil
}

func getSession(client *http.Client, baseURL string, id uuid.UUID) (*session.State, error) {
	var s session.State
	if err := doJSON(client, http.MethodGet, fmt.Sprintf("%s/v1/sessions/%s", baseURL, id), nil, http.StatusOK, &s); err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

func submitEnvironment(client *http.Client, baseURL string, id uuid.UUID, prompt string) (*Result, error) {
	body := map[string]string{"prompt": prompt}
	return sessionAction(client, fmt.Sprintf("%s/v1/sessions/%s/environment", baseURL, id), body)
}

func submitObjective(client *http.Client, baseURL string, id uuid.UUID, difficulty session.Difficulty) (*Result, error) {
	body := map[string]string{"difficulty": string(difficulty)}
	return sessionAction(client, fmt.Sprintf("%s/v1/sessions/%s/objective", baseURL, id), body)
}

func completeObjective(client *http.Client, baseURL string, id uuid.UUID) (*Result, error) {
	return sessionAction(client, fmt.Sprintf("%s/v1/sessions/%s/complete", baseURL, id), nil)
}

func sessionAction(client *http.Client, url string, body interface{}) (*Result, error) {
	var res Result
	if err := doJSON(client, http.MethodPost, url, body, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// doJSON sends body (if any) as JSON and decodes a response with the
// wanted status into out. Other statuses become *APIError.
func doJSON(client *http.Client, method, url string, body interface{}, want int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(data, &apiErr.ErrorResponse); err != nil {
			apiErr.ErrorResponse.Error = fmt.Sprintf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
