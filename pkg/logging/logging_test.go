package logging_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kairoslabs/agentcore/pkg/logging"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelWarn,
	}
	for input, want := range cases {
		require.Equal(t, want, logging.ParseLevel(input))
	}
}

func TestNew_WritesOwnModuleLogsAtWarnLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, slog.LevelWarn, "text")

	logger.Warn("something happened", "component", "dispatcher")
	require.Contains(t, buf.String(), "something happened")
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, slog.LevelInfo, "json")
	logger.Info("hello")
	require.Contains(t, buf.String(), `"msg":"hello"`)
}
