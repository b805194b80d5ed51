package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/nightmare-engine/internal/game"
	"github.com/jwebster45206/nightmare-engine/pkg/session"
)

// maxBodyBytes caps request bodies; prompts are at most a few hundred
// characters.
const maxBodyBytes = 16 << 10

type EnvironmentRequest struct {
	Prompt string `json:"prompt"`
}

type ObjectiveRequest struct {
	Difficulty string `json:"difficulty"`
}

type SessionHandler struct {
	controller *game.Controller
	events     *EventsHandler
	logger     *slog.Logger
}

// NewSessionHandler creates the session routes. events may be nil, in
// which case the event stream is not served.
func NewSessionHandler(controller *game.Controller, events *EventsHandler, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		controller: controller,
		events:     events,
		logger:     logger,
	}
}

// ServeHTTP handles HTTP requests for session operations
// Routes:
// POST /v1/sessions                  - Create new session
// GET /v1/sessions/{id}              - Read session
// DELETE /v1/sessions/{id}           - Delete session
// POST /v1/sessions/{id}/environment - Generate an environment
// POST /v1/sessions/{id}/objective   - Generate an objective
// POST /v1/sessions/{id}/complete    - Complete the current objective
// GET /v1/sessions/{id}/events       - Server-sent events
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			h.methodNotAllowed(w, r)
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) > 2 {
		writeError(w, h.logger, http.StatusNotFound, "Not found")
		return
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.handleRead(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		h.handleDelete(w, r, id)
	case action == "environment" && r.Method == http.MethodPost:
		h.handleEnvironment(w, r, id)
	case action == "objective" && r.Method == http.MethodPost:
		h.handleObjective(w, r, id)
	case action == "complete" && r.Method == http.MethodPost:
		h.handleComplete(w, r, id)
	case action == "events" && r.Method == http.MethodGet && h.events != nil:
		h.events.serve(w, r, id)
	case action == "" || action == "environment" || action == "objective" || action == "complete" || action == "events":
		h.methodNotAllowed(w, r)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *SessionHandler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.logger.Warn("Method not allowed", "method", r.Method, "path", r.URL.Path)
	writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	s, err := h.controller.CreateSession(r.Context())
	if err != nil {
		writeGameError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, s)
}

func (h *SessionHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	s, err := h.controller.Session(r.Context(), id)
	if err != nil {
		writeGameError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, s)
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.controller.DeleteSession(r.Context(), id); err != nil {
		writeGameError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleEnvironment(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req EnvironmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.controller.SubmitEnvironment(r.Context(), id, req.Prompt)
	if err != nil {
		writeGameError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}

func (h *SessionHandler) handleObjective(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req ObjectiveRequest
	if !h.decode(w, r, &req) {
		return
	}
	difficulty, err := session.ParseDifficulty(req.Difficulty)
	if err != nil {
		writeGameError(w, h.logger, err)
		return
	}
	res, err := h.controller.SubmitObjective(r.Context(), id, difficulty)
	if err != nil {
		writeGameError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}

func (h *SessionHandler) handleComplete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	res, err := h.controller.CompleteObjective(r.Context(), id)
	if err != nil {
		writeGameError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}

func (h *SessionHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Warn("Invalid request body", "error", err, "path", r.URL.Path)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
