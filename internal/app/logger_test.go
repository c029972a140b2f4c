package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerHonorsConfiguredLevel(t *testing.T) {
	ctx := context.Background()

	l := NewLogger(&Config{LogFormat: "json", LogLevel: "error"})
	require.False(t, l.Enabled(ctx, slog.LevelInfo))
	require.True(t, l.Enabled(ctx, slog.LevelError))

	l = NewLogger(&Config{LogLevel: "debug"})
	require.True(t, l.Enabled(ctx, slog.LevelDebug))
}

func TestLoggerDefaultsToInfo(t *testing.T) {
	ctx := context.Background()

	for _, cfg := range []*Config{nil, {LogLevel: "verbose"}} {
		l := NewLogger(cfg)
		require.True(t, l.Enabled(ctx, slog.LevelInfo))
		require.False(t, l.Enabled(ctx, slog.LevelDebug))
	}
}
