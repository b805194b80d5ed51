package flows

import (
	"context"
	"log/slog"

	"github.com/jwebster45206/nightmare-engine/pkg/session"
)

// GenerationError is what callers see when a flow fails. Message and
// Notification are fixed; Cause is for logs only.
type GenerationError struct {
	Message      string
	Notification session.Notification
	Cause        error
}

func (e *GenerationError) Error() string {
	return e.Message
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Actions exposes the flows to the game controller. Any failure is
// logged and replaced with a fixed player-facing message.
type Actions struct {
	environment *EnvironmentFlow
	objective   *ObjectiveFlow
	logger      *slog.Logger
}

func NewActions(environment *EnvironmentFlow, objective *ObjectiveFlow, logger *slog.Logger) *Actions {
	return &Actions{
		environment: environment,
		objective:   objective,
		logger:      logger,
	}
}

// GenerateEnvironment returns a description for prompt.
func (a *Actions) GenerateEnvironment(ctx context.Context, prompt string) (string, error) {
	out, err := a.environment.Generate(ctx, EnvironmentInput{Prompt: prompt})
	if err != nil {
		a.logger.Error("Error generating environment", "error", err)
		n := session.EnvironmentFailed()
		return "", &GenerationError{Message: n.Description, Notification: n, Cause: err}
	}
	return out.Description, nil
}

// GenerateObjective returns a quest for the environment at difficulty.
func (a *Actions) GenerateObjective(ctx context.Context, environment string, difficulty session.Difficulty) (session.Objective, error) {
	out, err := a.objective.Generate(ctx, ObjectiveInput{Environment: environment, Difficulty: difficulty})
	if err != nil {
		a.logger.Error("Error generating objective", "error", err, "difficulty", difficulty)
		n := session.ObjectiveFailed()
		return session.Objective{}, &GenerationError{Message: n.Description, Notification: n, Cause: err}
	}
	return out, nil
}
