package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/nightmare-engine/internal/config"
	"github.com/jwebster45206/nightmare-engine/internal/events"
	"github.com/jwebster45206/nightmare-engine/internal/flows"
	"github.com/jwebster45206/nightmare-engine/internal/game"
	"github.com/jwebster45206/nightmare-engine/internal/handlers"
	"github.com/jwebster45206/nightmare-engine/internal/logger"
	"github.com/jwebster45206/nightmare-engine/internal/middleware"
	"github.com/jwebster45206/nightmare-engine/internal/services"
	"github.com/jwebster45206/nightmare-engine/internal/storage"
	"github.com/jwebster45206/nightmare-engine/pkg/prompts"
	"github.com/jwebster45206/nightmare-engine/pkg/textfilter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Nightmare Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName)

	startCtx, startCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer startCancel()

	llmService, err := services.NewLLMService(startCtx, services.ProviderConfig{
		Provider:        cfg.LLMProvider,
		ModelName:       cfg.ModelName,
		GeminiAPIKey:    cfg.GeminiAPIKey,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		VeniceAPIKey:    cfg.VeniceAPIKey,
	}, log)
	if err != nil {
		log.Error("Failed to create LLM service", "error", err)
		os.Exit(1)
	}
	if closer, ok := llmService.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}
	if err := llmService.InitModel(startCtx, cfg.ModelName); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}
	log.Info("Using LLM provider", "provider", llmService.Name(), "model", llmService.Model())

	store, err := storage.NewRedisStore(cfg.RedisURL, cfg.SessionTTL, log)
	if err != nil {
		log.Error("Invalid store configuration", "error", err)
		os.Exit(1)
	}
	if err := store.WaitForConnection(startCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	var flowOpts []flows.Option
	if cfg.ContentFilter {
		flowOpts = append(flowOpts, flows.WithFilter(textfilter.New()))
		log.Info("Content filter enabled")
	}
	if cfg.PromptsFile != "" {
		pack, err := prompts.Load(cfg.PromptsFile)
		if err != nil {
			log.Error("Failed to load prompt templates", "file", cfg.PromptsFile, "error", err)
			os.Exit(1)
		}
		flowOpts = append(flowOpts, flows.WithPrompts(pack))
		log.Info("Prompt templates loaded", "file", cfg.PromptsFile)
	}
	actions := flows.NewActions(
		flows.NewEnvironmentFlow(llmService, log, flowOpts...),
		flows.NewObjectiveFlow(llmService, log, flowOpts...),
		log)

	broadcaster := events.NewBroadcaster(store.Client(), log)
	controller := game.NewController(store, actions, actions, broadcaster, log, cfg.RequestTimeout)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, llmService, log)
	mux.Handle("/health", healthHandler)

	eventsHandler := handlers.NewEventsHandler(controller, broadcaster, log)
	sessionHandler := handlers.NewSessionHandler(controller, eventsHandler, log)
	mux.Handle("/v1/sessions", sessionHandler)
	mux.Handle("/v1/sessions/", sessionHandler)

	// Event streams end when the server shuts down.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	handler := middleware.LoggerWith(log)(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the event stream stays open for the whole game
		IdleTimeout: 60 * time.Second,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancelBase)

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
