package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LoggerConfig{Level: "info", Format: "json", Name: "shopload"}, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Error("session failed", zap.String("step", "login"), zap.String("target", "10.0.0.1:80"))
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "shopload", entry["logger"])
	assert.Equal(t, "session failed", entry["msg"])
	assert.Equal(t, "login", entry["step"])
	assert.Equal(t, "10.0.0.1:80", entry["target"])
}

func TestNewLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LoggerConfig{Level: "DEBUG", Format: "console"}, &buf)
	require.NoError(t, err)

	logger.Debug("worker started", zap.Int("worker", 3))
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "worker started")
	assert.Contains(t, out, `"worker": 3`)
}

func TestNewLogger_ColorIgnoresStdout(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = saved })

	var colored, plain bytes.Buffer
	logger, err := NewLogger(LoggerConfig{Format: "console", Color: true}, &colored)
	require.NoError(t, err)
	logger.Warn("slow backend")

	logger, err = NewLogger(LoggerConfig{Format: "console"}, &plain)
	require.NoError(t, err)
	logger.Warn("slow backend")

	assert.Contains(t, colored.String(), "\x1b[33mWARN\x1b[0m")
	assert.NotContains(t, plain.String(), "\x1b[")
}

func TestNewLogger_Invalid(t *testing.T) {
	_, err := NewLogger(LoggerConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = NewLogger(LoggerConfig{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}
