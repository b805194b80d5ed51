package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/nightmare-engine/internal/flows"
	"github.com/jwebster45206/nightmare-engine/internal/storage"
	"github.com/jwebster45206/nightmare-engine/pkg/session"
)

type ErrorResponse struct {
	Error        string                `json:"error"`
	Field        string                `json:"field,omitempty"`
	Notification *session.Notification `json:"notification,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	writeJSON(w, logger, status, ErrorResponse{Error: message})
}

// writeGameError maps a controller error to a status and body. Internal
// causes are never written.
func writeGameError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		vErr   *session.ValidationError
		genErr *flows.GenerationError
	)

	switch {
	case errors.As(err, &vErr):
		writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: vErr.Message, Field: vErr.Field})
	case errors.Is(err, storage.ErrSessionNotFound):
		writeError(w, logger, http.StatusNotFound, "Session not found")
	case errors.Is(err, session.ErrRequestInFlight),
		errors.Is(err, session.ErrNoEnvironment),
		errors.Is(err, session.ErrStaleResponse):
		writeError(w, logger, http.StatusConflict, err.Error())
	case errors.As(err, &genErr):
		n := genErr.Notification
		writeJSON(w, logger, http.StatusBadGateway, ErrorResponse{Error: genErr.Message, Notification: &n})
	default:
		logger.Error("Unhandled game error", "error", err)
		writeError(w, logger, http.StatusInternalServerError, "Internal server error")
	}
}
