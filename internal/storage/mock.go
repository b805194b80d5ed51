package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/nightmare-engine/pkg/session"
)

// MockStore is an in-memory implementation of Store for testing
type MockStore struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*session.State
	pingError error

	// Track calls for testing
	UpdateCalls int
}

// Ensure MockStore implements Store interface
var _ Store = (*MockStore)(nil)

// NewMockStore creates a new mock store
func NewMockStore() *MockStore {
	return &MockStore{
		sessions: make(map[uuid.UUID]*session.State),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStore) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// Ping mocks store ping
func (m *MockStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingError
}

// Close mocks store close
func (m *MockStore) Close() error {
	return nil
}

func (m *MockStore) Create(ctx context.Context, s *session.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MockStore) Load(ctx context.Context, id uuid.UUID) (*session.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

// Update holds the lock for the whole call, so fn must not call back
// into the store.
func (m *MockStore) Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*session.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	working := s.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = time.Now()
	m.sessions[id] = working
	return working.Clone(), nil
}

func (m *MockStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Put stores s directly, bypassing Create's existence check
func (m *MockStore) Put(s *session.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
}
