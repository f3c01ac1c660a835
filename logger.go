package fracview

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// componentAttr tags every record the engine emits.
var componentAttr = slog.String("component", "fracview")

// loggerPtr stores the active logger, already tagged with componentAttr.
// Accessed atomically so that SetLogger can be called concurrently with the
// engine's goroutines.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for fracview.
// By default, fracview produces no log output. Call SetLogger to enable logging.
// Records carry a component=fracview attribute, so engine output can be
// told apart when l is shared with the rest of a program.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by fracview:
//   - [slog.LevelDebug]: per-cycle diagnostics (swaps, pans, batches and their timing)
//   - [slog.LevelInfo]: lifecycle events (engine started, stopped)
//   - [slog.LevelWarn]: rejected requests (invalid resize, lock timeouts in setters)
//   - [slog.LevelError]: failures that stop the engine (buffer allocation)
//
// Example:
//
//	fracview.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		loggerPtr.Store(newNopLogger())
		return
	}
	loggerPtr.Store(l.With(componentAttr))
}

// Logger returns the current logger used by fracview, derived from the one
// passed to SetLogger.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
