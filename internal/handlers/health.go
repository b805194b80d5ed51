package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/nightmare-engine/internal/services"
	"github.com/jwebster45206/nightmare-engine/internal/storage"
)

type HealthResponse struct {
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Service    string                 `json:"service"`
	Components map[string]interface{} `json:"components"`
}

type HealthHandler struct {
	store      storage.HealthChecker
	llmService services.LLMService
	logger     *slog.Logger
}

func NewHealthHandler(store storage.HealthChecker, llmService services.LLMService, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:      store,
		llmService: llmService,
		logger:     logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]interface{})
	overallStatus := "healthy"

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("Store health check failed", "error", err)
		components["store"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["store"] = "healthy"
	}
	components["llm_provider"] = h.llmService.Name()

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "nightmare-engine",
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, statusCode, response)
}
