//go:build integration
// +build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jwebster45206/nightmare-engine/integration/runner"
	"github.com/jwebster45206/nightmare-engine/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prompt = "a drowned lighthouse where the lamp still turns at night"

var testRunner *runner.Runner

func TestMain(m *testing.M) {
	apiBaseURL := os.Getenv("API_BASE_URL")
	if apiBaseURL == "" {
		apiBaseURL = "http://localhost:8080" // Default to localhost
	}

	fmt.Printf("Running Nightmare Engine Integration Tests\n")
	fmt.Printf("   API Base URL: %s\n", apiBaseURL)

	testRunner = runner.NewRunner(apiBaseURL)
	testRunner.Logger = func(format string, args ...interface{}) {
		fmt.Printf("   "+format+"\n", args...)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	healthy := testRunner.Healthy(ctx)
	cancel()
	if !healthy {
		fmt.Fprintf(os.Stderr, "API at %s is not healthy\n", apiBaseURL)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func TestFullObjectiveLoop(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s, err := testRunner.CreateSession(ctx)
	require.NoError(t, err)
	defer func() { _ = testRunner.DeleteSession(context.Background(), s.ID) }()

	envRes, err := testRunner.SubmitEnvironment(ctx, s.ID, prompt)
	require.NoError(t, err)
	require.NotEmpty(t, envRes.State.Environment)
	assert.Equal(t, session.PhaseIdle, envRes.State.Phase)

	for i, d := range session.Difficulties {
		objRes, err := testRunner.SubmitObjective(ctx, s.ID, d)
		require.NoError(t, err, d)
		require.NotNil(t, objRes.State.Objective)
		assert.NotEmpty(t, objRes.State.Objective.Objective)
		reward := objRes.State.Objective.Reward
		require.NotEmpty(t, reward)

		done, err := testRunner.CompleteObjective(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, (i+1)*session.ScorePerObjective, done.State.Score)
		assert.Equal(t, reward, done.State.Inventory[i])
		assert.Nil(t, done.State.Objective)
		require.NotNil(t, done.Notification)
		assert.Equal(t, session.TitleObjectiveComplete, done.Notification.Title)
	}
}

func TestRejectedRequests(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s, err := testRunner.CreateSession(ctx)
	require.NoError(t, err)
	defer func() { _ = testRunner.DeleteSession(context.Background(), s.ID) }()

	var statusErr *runner.StatusError

	_, err = testRunner.SubmitEnvironment(ctx, s.ID, "too short")
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Status)

	_, err = testRunner.SubmitObjective(ctx, s.ID, session.DifficultyEasy)
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusConflict, statusErr.Status)

	res, err := testRunner.CompleteObjective(ctx, s.ID)
	require.NoError(t, err)
	assert.Zero(t, res.State.Score)
	assert.Nil(t, res.Notification)

	got, err := testRunner.Session(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Environment)
}
