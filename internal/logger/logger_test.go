package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestSimpleLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn", "text")

	l.Info("hidden")
	l.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown key=value")
}

func TestSimpleLogger_WithKeepsFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, "debug", "text")
	child := base.With("component", "cart")

	child.Debug("loaded", "lines", 2)
	base.Debug("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "component=cart lines=2")
	assert.NotContains(t, lines[1], "component=cart")
}

func TestSimpleLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", "json")

	l.Error("save failed", "key", "cart", "error", errors.New("disk full"))

	out := buf.String()
	start := strings.Index(out, "{")
	require.GreaterOrEqual(t, start, 0)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out[start:]), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "save failed", entry["msg"])
	assert.Equal(t, "cart", entry["key"])
	assert.Equal(t, "disk full", entry["error"])
}
