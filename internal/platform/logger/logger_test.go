package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSONOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, "production", slog.LevelInfo)
	log.Info("application submitted", "application_id", "abc")
	log.Debug("dropped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "application submitted", entry["msg"])
	assert.Equal(t, "verity", entry["service"])
	assert.Equal(t, "abc", entry["application_id"])
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	assert.Equal(t, slog.LevelDebug, levelFromEnv())
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, slog.LevelInfo, levelFromEnv())
}
