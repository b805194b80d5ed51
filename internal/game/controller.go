// Package game mediates a session's generation requests and local actions.
package game

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/nightmare-engine/internal/flows"
	"github.com/jwebster45206/nightmare-engine/internal/storage"
	"github.com/jwebster45206/nightmare-engine/pkg/session"
)

const DefaultRequestTimeout = 60 * time.Second

// EnvironmentGenerator produces an environment description for a prompt.
type EnvironmentGenerator interface {
	GenerateEnvironment(ctx context.Context, prompt string) (string, error)
}

// ObjectiveGenerator produces a quest for an environment.
type ObjectiveGenerator interface {
	GenerateObjective(ctx context.Context, environment string, difficulty session.Difficulty) (session.Objective, error)
}

// Notifier delivers notifications and state changes to a session's
// listeners.
type Notifier interface {
	Notify(ctx context.Context, sessionID uuid.UUID, n session.Notification) error
	SessionUpdated(ctx context.Context, s *session.State) error
}

// Result is the outcome of a game operation.
type Result struct {
	State        *session.State        `json:"session"`
	Notification *session.Notification `json:"notification,omitempty"`
}

// errNothingToComplete abandons a completion update without writing.
var errNothingToComplete = errors.New("no objective to complete")

// Controller owns every mutation of a session.
type Controller struct {
	store          storage.Store
	environment    EnvironmentGenerator
	objective      ObjectiveGenerator
	notifier       Notifier
	logger         *slog.Logger
	requestTimeout time.Duration
	now            func() time.Time
}

// NewController creates a controller. notifier may be nil.
func NewController(store storage.Store, environment EnvironmentGenerator, objective ObjectiveGenerator, notifier Notifier, logger *slog.Logger, requestTimeout time.Duration) *Controller {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	return &Controller{
		store:          store,
		environment:    environment,
		objective:      objective,
		notifier:       notifier,
		logger:         logger,
		requestTimeout: requestTimeout,
		now:            time.Now,
	}
}

// CreateSession starts a new, empty game.
func (c *Controller) CreateSession(ctx context.Context) (*session.State, error) {
	s := session.New()
	if err := c.store.Create(ctx, s); err != nil {
		return nil, err
	}
	c.logger.Info("Session created", "session_id", s.ID)
	return s, nil
}

// Session loads a session, abandoning a request that has been in flight
// longer than the request timeout.
func (c *Controller) Session(ctx context.Context, id uuid.UUID) (*session.State, error) {
	s, err := c.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.Expire(c.now(), c.requestTimeout) {
		return s, nil
	}

	c.logger.Warn("Abandoning stuck generation request", "session_id", id, "phase", s.Phase)
	return c.store.Update(ctx, id, func(st *session.State) error {
		st.Expire(c.now(), c.requestTimeout)
		return nil
	})
}

func (c *Controller) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := c.store.Delete(ctx, id); err != nil {
		return err
	}
	c.logger.Info("Session deleted", "session_id", id)
	return nil
}

// SubmitEnvironment generates a new environment for prompt. A prompt
// outside the length bounds is rejected before anything else happens.
func (c *Controller) SubmitEnvironment(ctx context.Context, id uuid.UUID, prompt string) (*Result, error) {
	if err := session.ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	var token uint64
	s, err := c.store.Update(ctx, id, func(st *session.State) error {
		st.Expire(c.now(), c.requestTimeout)
		t, err := st.BeginEnvironment(prompt)
		token = t
		return err
	})
	if err != nil {
		return nil, err
	}
	c.publishState(ctx, s)
	c.logger.Debug("Environment requested", "session_id", id, "token", token)

	genCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	description, genErr := c.environment.GenerateEnvironment(genCtx, prompt)
	cancel()

	// The outcome is recorded even if the caller has gone away.
	ctx = context.WithoutCancel(ctx)

	if genErr != nil {
		s, err = c.store.Update(ctx, id, func(st *session.State) error {
			return st.FailEnvironment(token)
		})
		return nil, c.failure(ctx, id, s, err, genErr, session.EnvironmentFailed())
	}

	s, err = c.store.Update(ctx, id, func(st *session.State) error {
		return st.ApplyEnvironment(token, description)
	})
	if err != nil {
		return nil, c.dropped(id, err)
	}
	c.publishState(ctx, s)
	c.logger.Info("Environment generated", "session_id", id, "length", len(description))
	return &Result{State: s}, nil
}

// SubmitObjective generates an objective for the current environment.
func (c *Controller) SubmitObjective(ctx context.Context, id uuid.UUID, difficulty session.Difficulty) (*Result, error) {
	if !difficulty.Valid() {
		return nil, &session.ValidationError{Field: session.FieldDifficulty, Message: session.MsgDifficultyRequired}
	}

	var (
		token       uint64
		environment string
	)
	s, err := c.store.Update(ctx, id, func(st *session.State) error {
		st.Expire(c.now(), c.requestTimeout)
		t, err := st.BeginObjective(difficulty)
		token, environment = t, st.Environment
		return err
	})
	if err != nil {
		return nil, err
	}
	c.publishState(ctx, s)
	c.logger.Debug("Objective requested", "session_id", id, "token", token, "difficulty", difficulty)

	genCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	objective, genErr := c.objective.GenerateObjective(genCtx, environment, difficulty)
	cancel()

	ctx = context.WithoutCancel(ctx)

	if genErr != nil {
		s, err = c.store.Update(ctx, id, func(st *session.State) error {
			return st.FailObjective(token)
		})
		return nil, c.failure(ctx, id, s, err, genErr, session.ObjectiveFailed())
	}

	s, err = c.store.Update(ctx, id, func(st *session.State) error {
		return st.ApplyObjective(token, objective)
	})
	if err != nil {
		return nil, c.dropped(id, err)
	}
	c.publishState(ctx, s)
	c.logger.Info("Objective generated", "session_id", id, "difficulty", difficulty)
	return &Result{State: s}, nil
}

// CompleteObjective awards the current objective's reward. With no
// current objective it changes nothing and reports no notification.
func (c *Controller) CompleteObjective(ctx context.Context, id uuid.UUID) (*Result, error) {
	var reward string
	s, err := c.store.Update(ctx, id, func(st *session.State) error {
		r, ok := st.CompleteObjective()
		if !ok {
			return errNothingToComplete
		}
		reward = r
		return nil
	})
	if errors.Is(err, errNothingToComplete) {
		s, err = c.store.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		return &Result{State: s}, nil
	}
	if err != nil {
		return nil, err
	}

	n := session.ObjectiveCompleted(reward)
	c.publishState(ctx, s)
	c.notify(ctx, id, n)
	c.logger.Info("Objective completed", "session_id", id, "reward", reward, "score", s.Score)
	return &Result{State: s, Notification: &n}, nil
}

// failure records a failed generation. The returned error is always a
// *flows.GenerationError unless the result was stale or the store failed.
func (c *Controller) failure(ctx context.Context, id uuid.UUID, s *session.State, storeErr, genErr error, fallback session.Notification) error {
	if storeErr != nil {
		return c.dropped(id, storeErr)
	}

	var ge *flows.GenerationError
	if !errors.As(genErr, &ge) {
		c.logger.Error("Generation failed", "session_id", id, "error", genErr)
		ge = &flows.GenerationError{Message: fallback.Description, Notification: fallback, Cause: genErr}
	}
	c.publishState(ctx, s)
	c.notify(ctx, id, ge.Notification)
	return ge
}

// dropped logs a late result that no longer matches the outstanding
// request.
func (c *Controller) dropped(id uuid.UUID, err error) error {
	if errors.Is(err, session.ErrStaleResponse) {
		c.logger.Warn("Dropping stale generation result", "session_id", id)
	}
	return err
}

func (c *Controller) notify(ctx context.Context, id uuid.UUID, n session.Notification) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, id, n); err != nil {
		c.logger.Warn("Failed to publish notification", "session_id", id, "error", err)
	}
}

func (c *Controller) publishState(ctx context.Context, s *session.State) {
	if c.notifier == nil || s == nil {
		return
	}
	if err := c.notifier.SessionUpdated(ctx, s); err != nil {
		c.logger.Warn("Failed to publish session update", "session_id", s.ID, "error", err)
	}
}
