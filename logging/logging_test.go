package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := ParseLevel(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestParseLevel_Unknown(t *testing.T) {
	_, err := ParseLevel("verbose")
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warn")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "url", "http://example.com")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "url=http://example.com")
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))

	logger := slog.Default()
	assert.Same(t, logger, OrDiscard(logger))
}
