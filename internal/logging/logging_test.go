package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/mse-history/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "ParseLevel(%q)", tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sync.log")

	logger, closer, err := New(config.LoggingConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("run complete", "issuers", 3)
	logger.Debug("suppressed")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"run complete"`)
	assert.Contains(t, string(data), `"issuers":3`)
	assert.NotContains(t, string(data), "suppressed")
}

func TestNew_UnknownFormat(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Format: "xml", Output: "stdout"})
	assert.Error(t, err)
}
