package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gsarma/mailgate/internal/logger"
)

func TestNew_ContextAttributes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: slog.LevelInfo, Output: &buf}, logger.RequestID, logger.Caller)

	ctx := logger.WithCaller(logger.WithRequestID(context.Background(), "req-1"), "agent")
	log.InfoContext(ctx, "draft staged", slog.Int("recipients", 2))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "draft staged", rec["msg"])
	require.Equal(t, "req-1", rec["request_id"])
	require.Equal(t, "agent", rec["caller"])
	require.EqualValues(t, 2, rec["recipients"])
}

func TestNew_LevelFilters(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: slog.LevelWarn, Output: &buf})
	log.Info("hidden")
	require.Zero(t, buf.Len())
	log.Warn("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestNew_NoContextValues(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.Config{Output: &buf}, logger.RequestID, nil)
	log.InfoContext(context.Background(), "x")
	require.NotContains(t, buf.String(), "request_id")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := logger.ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := logger.ParseLevel("loud")
	require.Error(t, err)
}
