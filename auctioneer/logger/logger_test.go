package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestHandler(opts *slog.HandlerOptions) (*CustomHandler, *bytes.Buffer) {
	h := NewHandler(opts)
	buf := &bytes.Buffer{}
	h.out = buf
	return h, buf
}

func TestHandlerRendersLevelAndType(t *testing.T) {
	h, buf := newTestHandler(nil)
	log := slog.New(h)

	log.Info("balances refreshed", "type", "sheets", "people", 12)

	line := buf.String()
	require.Contains(t, line, "[INFO]")
	require.Contains(t, line, "[SHEETS]")
	require.Contains(t, line, "balances refreshed")
	require.Contains(t, line, "people=12")
	require.NotContains(t, line, "type=", "the routing attr stays out of the rendered line")
}

func TestHandlerLevelFiltering(t *testing.T) {
	h, buf := newTestHandler(&slog.HandlerOptions{Level: slog.LevelWarn})
	log := slog.New(h)

	log.Info("quiet")
	require.Empty(t, buf.String())

	log.Warn("loud")
	require.Contains(t, buf.String(), "[WARN]")
}

func TestHandlerSkipsGatewayNoise(t *testing.T) {
	h, buf := newTestHandler(nil)
	log := slog.New(h)

	log.Info("sending heartbeat")
	log.Info("received gateway message")

	require.Empty(t, buf.String())
}

func TestHandlerAddSource(t *testing.T) {
	h, buf := newTestHandler(&slog.HandlerOptions{AddSource: true})
	log := slog.New(h)

	log.Info("schema ready")

	require.Contains(t, buf.String(), "source=")
	require.Contains(t, buf.String(), "logger_test.go")
}

func TestHandlerWithAttrs(t *testing.T) {
	h, buf := newTestHandler(nil)
	log := slog.New(h).With("component", "scheduler")

	log.Info("sweep finished")

	require.Contains(t, buf.String(), "component=scheduler")
}

func TestHandlerEnabledDefaultsToInfo(t *testing.T) {
	h, _ := newTestHandler(nil)
	require.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	require.True(t, h.Enabled(context.Background(), slog.LevelInfo))
}

func TestLogTypeRouting(t *testing.T) {
	tests := []struct {
		value string
		want  LogType
	}{
		{"cmd", TypeCommand},
		{"db", TypeDB},
		{"sheets", TypeSheets},
		{"error", TypeError},
		{"", TypeSystem},
	}

	for _, tt := range tests {
		r := slog.Record{Message: "msg"}
		if tt.value != "" {
			r.AddAttrs(slog.String("type", tt.value))
		}
		require.Equal(t, tt.want, logType(&r), "type %q", tt.value)
	}
}

func TestShouldSkipLogMatchesCaseInsensitively(t *testing.T) {
	r := slog.Record{Message: "Sending Heartbeat"}
	require.True(t, shouldSkipLog(&r))

	r = slog.Record{Message: strings.ToUpper("locking buckets")}
	require.True(t, shouldSkipLog(&r))

	r = slog.Record{Message: "auction resolved"}
	require.False(t, shouldSkipLog(&r))
}
