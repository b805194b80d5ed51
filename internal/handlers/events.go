package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/nightmare-engine/internal/events"
	"github.com/jwebster45206/nightmare-engine/internal/game"
	"github.com/jwebster45206/nightmare-engine/pkg/apparition"
)

const keepaliveInterval = 30 * time.Second

// Subscriber opens a session's event stream.
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID uuid.UUID) (*events.Subscription, error)
}

// EventsHandler streams a session's notifications and state changes as
// Server-Sent Events. Each connection also runs its own apparition
// scheduler for as long as it stays open.
type EventsHandler struct {
	controller     *game.Controller
	subscriber     Subscriber
	logger         *slog.Logger
	apparitionOpts []apparition.Option
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(controller *game.Controller, subscriber Subscriber, logger *slog.Logger, apparitionOpts ...apparition.Option) *EventsHandler {
	return &EventsHandler{
		controller:     controller,
		subscriber:     subscriber,
		logger:         logger,
		apparitionOpts: apparitionOpts,
	}
}

func (h *EventsHandler) serve(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	ctx := r.Context()

	s, err := h.controller.Session(ctx, id)
	if err != nil {
		writeGameError(w, h.logger, err)
		return
	}

	sub, err := h.subscriber.Subscribe(ctx, id)
	if err != nil {
		h.logger.Error("Failed to subscribe to session events", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer func() {
		if err := sub.Close(); err != nil {
			h.logger.Error("Failed to close subscription", "error", err)
		}
	}()

	h.logger.Info("SSE connection established",
		"session_id", id.String(),
		"remote_addr", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	// Pulses are decorative; a slow client just misses some.
	pulses := make(chan apparition.Pulse, 8)
	ghost := apparition.New(func(p apparition.Pulse) {
		select {
		case pulses <- p:
		default:
		}
	}, append([]apparition.Option{apparition.WithLogger(h.logger)}, h.apparitionOpts...)...)
	if err := ghost.Start(ctx); err != nil {
		h.logger.Error("Failed to start apparition scheduler", "error", err)
		return
	}
	defer ghost.Stop()

	keepaliveTicker := time.NewTicker(keepaliveInterval)
	defer keepaliveTicker.Stop()

	if !h.sendSSE(w, "connected", s) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("SSE client disconnected", "session_id", id.String())
			return

		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if !h.sendSSE(w, string(event.Type), event.Data) {
				return
			}

		case p := <-pulses:
			if !h.sendSSE(w, string(events.EventTypePulse), p) {
				return
			}

		case <-keepaliveTicker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				h.logger.Error("Failed to write keepalive", "error", err)
				return
			}
			flush(w)
		}
	}
}

// sendSSE writes one event and reports whether the client is still there.
func (h *EventsHandler) sendSSE(w http.ResponseWriter, eventType string, data interface{}) bool {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return true
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		h.logger.Debug("Failed to write event", "error", err)
		return false
	}
	flush(w)
	return true
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
