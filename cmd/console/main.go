package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/nightmare-engine/pkg/apparition"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		// generation can take the full server-side request timeout
		Timeout: 90 * time.Second,
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	if !testConnection(client, cfg.APIBaseURL) {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	s, err := createSession(client, cfg.APIBaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create session: %v\n", err)
		os.Exit(1)
	}

	pulses := make(chan apparition.Pulse, 8)
	ghost := apparition.New(func(p apparition.Pulse) {
		select {
		case pulses <- p:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := ghost.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start apparition scheduler: %v\n", err)
		os.Exit(1)
	}
	defer ghost.Stop()

	p := tea.NewProgram(NewConsoleUI(cfg, client, s, pulses),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		ghost.Stop()
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
