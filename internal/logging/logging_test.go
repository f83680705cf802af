package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/yamdb/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Debug("hidden")
	logger.Info("shown", slog.String("k", "v"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "v", entry["k"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(config.LoggingConfig{Level: "debug", Format: "text"}, &buf).Debug("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
