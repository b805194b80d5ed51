package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/nightmare-engine/pkg/session"
)

// MockNotifier records notifications for testing
type MockNotifier struct {
	mu            sync.Mutex
	Notifications []session.Notification
	Sessions      []*session.State
	Err           error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, sessionID uuid.UUID, n session.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notifications = append(m.Notifications, n)
	return m.Err
}

func (m *MockNotifier) SessionUpdated(ctx context.Context, s *session.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sessions = append(m.Sessions, s.Clone())
	return m.Err
}

// Sent returns a copy of the recorded notifications
func (m *MockNotifier) Sent() []session.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]session.Notification(nil), m.Notifications...)
}
