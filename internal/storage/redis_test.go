package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/nightmare-engine/pkg/session"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store, err := NewRedisStore("redis://"+mr.Addr(), time.Hour, logger)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create store: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
		mr.Close()
	})
	return store, mr
}

func TestRedisStore_CreateAndLoad(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	s := session.New()
	s.Environment = "a drowned chapel"
	require.NoError(t, store.Create(ctx, s))

	assert.True(t, mr.Exists("session:"+s.ID.String()))
	assert.Equal(t, time.Hour, mr.TTL(SessionKey(s.ID)))

	loaded, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, loaded.ID)
	assert.Equal(t, "a drowned chapel", loaded.Environment)
	assert.Equal(t, session.PhaseIdle, loaded.Phase)
	assert.NotNil(t, loaded.Inventory)

	assert.Error(t, store.Create(ctx, s), "creating the same id twice fails")
}

func TestRedisStore_LoadMissing(t *testing.T) {
	store, _ := setupTestRedis(t)

	_, err := store.Load(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_UpdateAppliesAndRefreshesTTL(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	s := session.New()
	require.NoError(t, store.Create(ctx, s))
	mr.FastForward(30 * time.Minute)

	saved, err := store.Update(ctx, s.ID, func(st *session.State) error {
		st.Score = 300
		st.Inventory = append(st.Inventory, "Candle")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 300, saved.Score)
	assert.Equal(t, time.Hour, mr.TTL(SessionKey(s.ID)))

	loaded, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 300, loaded.Score)
	assert.Equal(t, []string{"Candle"}, loaded.Inventory)
	assert.False(t, loaded.UpdatedAt.Before(s.UpdatedAt))
}

func TestRedisStore_UpdateErrorWritesNothing(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	s := session.New()
	require.NoError(t, store.Create(ctx, s))

	_, err := store.Update(ctx, s.ID, func(st *session.State) error {
		st.Score = 999
		return session.ErrRequestInFlight
	})
	assert.ErrorIs(t, err, session.ErrRequestInFlight)

	loaded, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Zero(t, loaded.Score)
}

func TestRedisStore_UpdateMissing(t *testing.T) {
	store, _ := setupTestRedis(t)

	_, err := store.Update(context.Background(), uuid.New(), func(st *session.State) error { return nil })
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_UpdateRetriesOnConflict(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	s := session.New()
	require.NoError(t, store.Create(ctx, s))

	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = other.Close() }()

	attempts := 0
	saved, err := store.Update(ctx, s.ID, func(st *session.State) error {
		attempts++
		if attempts == 1 {
			// a competing writer lands between WATCH and EXEC
			competing := st.Clone()
			competing.Inventory = []string{"Competing Relic"}
			data, err := json.Marshal(competing)
			if err != nil {
				return err
			}
			if err := other.Set(ctx, SessionKey(st.ID), data, time.Hour).Err(); err != nil {
				return err
			}
		}
		st.Score += session.ScorePerObjective
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, session.ScorePerObjective, saved.Score)
	assert.Equal(t, []string{"Competing Relic"}, saved.Inventory, "retry sees the competing write")
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	s := session.New()
	require.NoError(t, store.Create(ctx, s))
	require.NoError(t, store.Delete(ctx, s.ID))
	assert.False(t, mr.Exists(SessionKey(s.ID)))

	assert.NoError(t, store.Delete(ctx, uuid.New()))
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	s := session.New()
	require.NoError(t, store.Create(ctx, s))
	mr.FastForward(2 * time.Hour)

	_, err := store.Load(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_PingFailure(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	err := store.Ping(context.Background())
	assert.Error(t, err)
}

func TestNewRedisStore_BareAddress(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(mr.Addr(), 0, slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	assert.NoError(t, store.Ping(context.Background()))
	assert.Equal(t, DefaultSessionTTL, store.ttl)
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	_, err := NewRedisStore("redis://localhost:6379/notadb", time.Hour, slog.Default())
	assert.Error(t, err)
}

func TestMockStore(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	s := session.New()
	require.NoError(t, store.Create(ctx, s))

	loaded, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	loaded.Score = 500

	again, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Zero(t, again.Score, "loaded sessions are copies")

	_, err = store.Update(ctx, s.ID, func(st *session.State) error {
		st.Score = 100
		return errors.New("abandon")
	})
	assert.Error(t, err)
	again, _ = store.Load(ctx, s.ID)
	assert.Zero(t, again.Score)

	store.SetPingError(errors.New("down"))
	assert.Error(t, store.Ping(ctx))

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Load(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
