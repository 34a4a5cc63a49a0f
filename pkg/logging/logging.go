// Package logging provides the structured logger every engine component
// shares: a level-parsed slog.Logger whose handler suppresses noisy
// third-party log lines unless running at debug level.
package logging

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"strings"
)

// modulePrefix identifies this module's own call sites so the filtering
// handler can tell them apart from a dependency's logging.
const modulePrefix = "github.com/kairoslabs/agentcore"

// ParseLevel converts a level name to a slog.Level. Unrecognized input
// falls back to warn rather than erroring, matching the teacher's
// permissive config-parsing convention.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// New builds a logger writing to w at level, in either "text" or "json"
// format. Below debug, log records whose call site is outside this
// module are suppressed so a dependency's own logging does not drown out
// engine logs.
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(&filteringHandler{handler: handler, minLevel: level})
}

// filteringHandler suppresses non-module log records below debug, so
// that dependencies logging through the default slog logger (etcd,
// grpc, otel) do not add noise in normal operation.
type filteringHandler struct {
	handler  slog.Handler
	minLevel slog.Level
}

func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug || h.isOwnModule(record.PC) {
		return h.handler.Handle(ctx, record)
	}
	return nil
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{handler: h.handler.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{handler: h.handler.WithGroup(name), minLevel: h.minLevel}
}

func (h *filteringHandler) isOwnModule(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	return strings.Contains(fn.Name(), modulePrefix)
}
