package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/nightmare-engine/pkg/session"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeNotification EventType = "notification"
	EventTypeSession      EventType = "session"
	EventTypePulse        EventType = "pulse"
)

// Event is the envelope sent to session subscribers
type Event struct {
	Type      EventType       `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEvent encodes data into an event envelope
func NewEvent(t EventType, sessionID uuid.UUID, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s event: %w", t, err)
	}
	return Event{Type: t, SessionID: sessionID.String(), Data: raw}, nil
}

// Channel is the pub/sub channel for a session
func Channel(sessionID uuid.UUID) string {
	return "session-events:" + sessionID.String()
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Notify publishes a notification event
func (b *Broadcaster) Notify(ctx context.Context, sessionID uuid.UUID, n session.Notification) error {
	event, err := NewEvent(EventTypeNotification, sessionID, n)
	if err != nil {
		return err
	}
	return b.publish(ctx, sessionID, event)
}

// SessionUpdated publishes the session's new state
func (b *Broadcaster) SessionUpdated(ctx context.Context, s *session.State) error {
	event, err := NewEvent(EventTypeSession, s.ID, s)
	if err != nil {
		return err
	}
	return b.publish(ctx, s.ID, event)
}

func (b *Broadcaster) publish(ctx context.Context, sessionID uuid.UUID, event Event) error {
	channel := Channel(sessionID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
	)

	return nil
}

// Subscription delivers a session's events until closed
type Subscription struct {
	pubsub *redis.PubSub
	events chan Event
	done   chan struct{}
	once   sync.Once
}

// Subscribe listens on a session's channel. The subscription is confirmed
// before Subscribe returns, so nothing published afterwards is missed.
func (b *Broadcaster) Subscribe(ctx context.Context, sessionID uuid.UUID) (*Subscription, error) {
	pubsub := b.redisClient.Subscribe(ctx, Channel(sessionID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	sub := &Subscription{pubsub: pubsub, events: make(chan Event), done: make(chan struct{})}
	go func() {
		defer close(sub.events)
		for msg := range pubsub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("Dropping malformed event", "channel", msg.Channel, "error", err)
				continue
			}
			select {
			case sub.events <- event:
			case <-sub.done:
				return
			}
		}
	}()
	return sub, nil
}

// Events is closed when the subscription ends
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}
