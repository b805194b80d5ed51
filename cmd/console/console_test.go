package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/nightmare-engine/pkg/apparition"
	"github.com/jwebster45206/nightmare-engine/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitEnvironment(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/sessions/"+id.String()+"/environment" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["prompt"] != "a lighthouse with no keeper" {
			t.Errorf("prompt = %q", body["prompt"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"session":{"id":"` + id.String() + `","environment":"The lamp turns by itself.","inventory":[],"score":0,"loading_phase":"idle"}}`))
	}))
	defer srv.Close()

	res, err := submitEnvironment(srv.Client(), srv.URL, id, "a lighthouse with no keeper")
	require.NoError(t, err)
	require.NotNil(t, res.State)
	assert.Equal(t, "The lamp turns by itself.", res.State.Environment)
	assert.Nil(t, res.Notification)
}

func TestSessionAction_GenerationFailureCarriesNotification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"Failed to devise a twisted fate. Please try again.","notification":{"kind":"error","title":"Error Devising Fate","description":"Failed to devise a twisted fate. Please try again."}}`))
	}))
	defer srv.Close()

	_, err := submitObjective(srv.Client(), srv.URL, uuid.New(), session.DifficultyHard)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	require.NotNil(t, apiErr.Notification)
	assert.Equal(t, session.TitleObjectiveFailed, apiErr.Notification.Title)
	assert.Equal(t, session.MsgObjectiveFailed, err.Error())
}

func TestDoJSON_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := completeObjective(srv.Client(), srv.URL, uuid.New())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, err.Error(), "status 500")
}

func TestNextDifficulty(t *testing.T) {
	assert.Equal(t, session.DifficultyMedium, nextDifficulty(session.DifficultyEasy))
	assert.Equal(t, session.DifficultyHard, nextDifficulty(session.DifficultyMedium))
	assert.Equal(t, session.DifficultyEasy, nextDifficulty(session.DifficultyHard))
	assert.Equal(t, session.DifficultyEasy, nextDifficulty(""))
}

func TestOverlayGhost(t *testing.T) {
	view := strings.Repeat(strings.Repeat(".", 20)+"\n", 9) + strings.Repeat(".", 20)

	assert.Equal(t, view, overlayGhost(view, apparition.Pulse{}, 20, 10), "hidden pulse leaves the view alone")

	out := overlayGhost(view, apparition.Pulse{Visible: true, TopPercent: 50, LeftPercent: 10}, 20, 10)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 10)
	assert.True(t, strings.HasPrefix(lines[5], ".."), lines[5])
	assert.Contains(t, lines[5], ghostGlyph)
	assert.Equal(t, strings.Repeat(".", 20), lines[4])

	mirrored := overlayGhost(view, apparition.Pulse{Visible: true, TopPercent: 90, LeftPercent: 90, Mirrored: true}, 20, 10)
	lines = strings.Split(mirrored, "\n")
	assert.Contains(t, lines[9], ghostGlyphMirrored)
}
