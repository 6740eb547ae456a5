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

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{" warn ", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestSetupJSON(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	var buf bytes.Buffer
	log := Setup("warn", FormatJSON, &buf)

	log.Info("hidden")
	log.Warn("shown", "poet", "mutanabbi")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "mutanabbi", entry["poet"])
}

func TestSetupWarnsOnBadLevel(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	var buf bytes.Buffer
	log := Setup("chatty", FormatText, &buf)
	assert.Contains(t, buf.String(), "invalid log level configured")
	assert.Contains(t, buf.String(), "configured_level=chatty")

	buf.Reset()
	log.Debug("quiet")
	assert.Empty(t, buf.String())
	assert.Same(t, log, slog.Default())
}
