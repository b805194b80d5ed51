package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "production", slog.LevelInfo)
	WithSession(log, "abc").Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "abc", line["session_id"])
}

func TestNew_DevelopmentIsText(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "development", slog.LevelWarn)
	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "msg=shown"))
}
