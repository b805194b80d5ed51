package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jwebster45206/nightmare-engine/pkg/session"
)

// ErrSessionNotFound is returned when no session exists for an id.
var ErrSessionNotFound = errors.New("session not found")

// HealthChecker defines basic health check capabilities
type HealthChecker interface {
	// Ping tests the store connection
	Ping(ctx context.Context) error
}

// Closer defines cleanup capabilities
type Closer interface {
	// Close closes the store connection
	Close() error
}

// UpdateFunc mutates a session in place. Returning an error abandons the
// update and nothing is written.
type UpdateFunc func(s *session.State) error

// Store defines the interface for session persistence
type Store interface {
	HealthChecker
	Closer

	// Create saves a new session
	Create(ctx context.Context, s *session.State) error

	// Load retrieves a session by id, or ErrSessionNotFound
	Load(ctx context.Context, id uuid.UUID) (*session.State, error)

	// Update applies fn to the stored session atomically and returns the
	// saved result. Concurrent writers never interleave.
	Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*session.State, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionKey is the Redis key for a session.
func SessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}
