package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/nightmare-engine/internal/events"
	"github.com/jwebster45206/nightmare-engine/internal/services"
	"github.com/jwebster45206/nightmare-engine/internal/storage"
	"github.com/jwebster45206/nightmare-engine/pkg/apparition"
	"github.com/jwebster45206/nightmare-engine/pkg/session"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// alwaysRand triggers a pulse on every tick.
type alwaysRand struct{}

func (alwaysRand) Float64() float64 { return 0.05 }

type sseEvent struct {
	name string
	data string
}

type sseStream struct {
	events chan sseEvent
}

func openStream(t *testing.T, ctx context.Context, url string) (*http.Response, *sseStream) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	stream := &sseStream{events: make(chan sseEvent, 32)}
	go func() {
		defer close(stream.events)
		scanner := bufio.NewScanner(resp.Body)
		var current sseEvent
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				current.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				current.data = strings.TrimPrefix(line, "data: ")
			case line == "" && current.name != "":
				stream.events <- current
				current = sseEvent{}
			}
		}
	}()
	return resp, stream
}

func (s *sseStream) next(t *testing.T, name string) sseEvent {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case e, ok := <-s.events:
			require.True(t, ok, "stream closed before %s", name)
			if e.name == name {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", name)
			return sseEvent{}
		}
	}
}

func setupEventsServer(t *testing.T, opts ...apparition.Option) (*httptest.Server, *events.Broadcaster, uuid.UUID) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := testLogger()
	store := storage.NewRedisStoreFromClient(client, time.Hour, logger)
	broadcaster := events.NewBroadcaster(client, logger)
	ctrl := newController(store, services.NewMockLLMAPI(), broadcaster)

	s, err := ctrl.CreateSession(context.Background())
	require.NoError(t, err)

	eventsHandler := NewEventsHandler(ctrl, broadcaster, logger, opts...)
	server := httptest.NewServer(NewSessionHandler(ctrl, eventsHandler, logger))
	t.Cleanup(server.Close)
	return server, broadcaster, s.ID
}

func TestEventsHandler_StreamsNotifications(t *testing.T) {
	server, broadcaster, id := setupEventsServer(t, apparition.WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	resp, stream := openStream(t, ctx, server.URL+"/v1/sessions/"+id.String()+"/events")
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	connected := stream.next(t, "connected")
	var s session.State
	require.NoError(t, json.Unmarshal([]byte(connected.data), &s))
	assert.Equal(t, id, s.ID)

	require.NoError(t, broadcaster.Notify(context.Background(), id, session.ObjectiveCompleted("Moth Wing")))
	e := stream.next(t, "notification")
	var n session.Notification
	require.NoError(t, json.Unmarshal([]byte(e.data), &n))
	assert.Equal(t, "You've been rewarded with: Moth Wing", n.Description)
}

func TestEventsHandler_StreamsStateChanges(t *testing.T) {
	server, _, id := setupEventsServer(t, apparition.WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	resp, stream := openStream(t, ctx, server.URL+"/v1/sessions/"+id.String()+"/events")
	defer func() { _ = resp.Body.Close() }()
	stream.next(t, "connected")

	body := strings.NewReader(`{"prompt":"an abandoned hospital where the clocks are stuck at midnight"}`)
	post, err := http.Post(server.URL+"/v1/sessions/"+id.String()+"/environment", "application/json", body)
	require.NoError(t, err)
	_ = post.Body.Close()
	require.Equal(t, http.StatusOK, post.StatusCode)

	var s session.State
	require.NoError(t, json.Unmarshal([]byte(stream.next(t, "session").data), &s))
	assert.Equal(t, session.PhaseGeneratingEnvironment, s.Phase)
	require.NoError(t, json.Unmarshal([]byte(stream.next(t, "session").data), &s))
	assert.Equal(t, session.PhaseIdle, s.Phase)
	assert.NotEmpty(t, s.Environment)
}

func TestEventsHandler_StreamsApparitionPulses(t *testing.T) {
	server, _, id := setupEventsServer(t,
		apparition.WithInterval(10*time.Millisecond),
		apparition.WithRand(alwaysRand{}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	resp, stream := openStream(t, ctx, server.URL+"/v1/sessions/"+id.String()+"/events")
	defer func() { _ = resp.Body.Close() }()

	e := stream.next(t, "pulse")
	var p apparition.Pulse
	require.NoError(t, json.Unmarshal([]byte(e.data), &p))
	assert.True(t, p.Visible)
	assert.GreaterOrEqual(t, p.TopPercent, apparition.MinPercent)
	assert.LessOrEqual(t, p.LeftPercent, apparition.MaxPercent)
}

func TestEventsHandler_UnknownSession(t *testing.T) {
	server, _, _ := setupEventsServer(t)

	resp, err := http.Get(server.URL + "/v1/sessions/" + uuid.New().String() + "/events")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
