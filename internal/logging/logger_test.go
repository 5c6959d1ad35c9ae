package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trebuchet-org/nftwallet/internal/domain/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warning ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelWarn},
		{"verbose", slog.LevelWarn},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.value, slog.LevelWarn))
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Setenv("NFTWALLET_LOG_LEVEL", "error")

	log := NewLogger(&config.RuntimeConfig{})
	assert.False(t, log.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, log.Enabled(context.Background(), slog.LevelError))

	debug := NewLogger(&config.RuntimeConfig{Debug: true})
	assert.True(t, debug.Enabled(context.Background(), slog.LevelDebug))
}

func TestShortPath(t *testing.T) {
	assert.Equal(t, "internal/usecase/run_scenario.go", shortPath("/home/dev/nftwallet/internal/usecase/run_scenario.go"))
	assert.Equal(t, "usecase/run_scenario.go", shortPath("/tmp/build/usecase/run_scenario.go"))
}
