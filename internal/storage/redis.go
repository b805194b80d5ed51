package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/nightmare-engine/pkg/session"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultSessionTTL = 24 * time.Hour

	// maxUpdateAttempts bounds optimistic transaction retries.
	maxUpdateAttempts = 10
)

// RedisStore implements Store using Redis. Sessions are stored as JSON
// and their TTL is refreshed on every write.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// Ensure RedisStore implements Store interface
var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to redisURL, which may be a redis:// URL or a
// bare host:port.
func NewRedisStore(redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisStore, error) {
	opts := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		var err error
		opts, err = redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
	}
	return NewRedisStoreFromClient(redis.NewClient(opts), ttl, logger), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Client exposes the connection for the events broadcaster.
func (r *RedisStore) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStore) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Session operations

func (r *RedisStore) Create(ctx context.Context, s *session.State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ok, err := r.client.SetNX(ctx, SessionKey(s.ID), data, r.ttl).Result()
	if err != nil {
		r.logger.Error("Failed to save session", "session_id", s.ID, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, id uuid.UUID) (*session.State, error) {
	data, err := r.client.Get(ctx, SessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		r.logger.Error("Failed to load session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return decodeSession(data)
}

// Update runs fn inside a WATCH/MULTI transaction and retries when another
// writer touches the key first.
func (r *RedisStore) Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*session.State, error) {
	key := SessionKey(id)
	var saved *session.State

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrSessionNotFound
			}
			return err
		}

		s, err := decodeSession(data)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		s.UpdatedAt = time.Now()

		out, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, r.ttl)
			return nil
		})
		if err == nil {
			saved = s
		}
		return err
	}

	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return saved, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			r.logger.Debug("Session update conflicted, retrying", "session_id", id, "attempt", attempt)
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("session %s update failed after %d attempts: %w", id, maxUpdateAttempts, redis.TxFailedErr)
}

func (r *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, SessionKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete session", "session_id", id, "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func decodeSession(data []byte) (*session.State, error) {
	var s session.State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if s.Inventory == nil {
		s.Inventory = make([]string, 0)
	}
	return &s, nil
}
