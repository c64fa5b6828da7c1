// Package security holds the audit trail for gate decisions.
package security

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Event describes one denied request. The credential itself is never part
// of an event; only the denial reason is recorded.
type Event struct {
	Reason    string
	Method    string
	Path      string
	Address   string
	Country   string
	UserAgent string
	Occurred  time.Time
}

// Recorder records gate denials for later analysis.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// LoggerRecorder writes audit events to a slog.Logger.
type LoggerRecorder struct {
	logger *slog.Logger
}

// NewLoggerRecorder returns a recorder writing to logger (discarded when nil).
func NewLoggerRecorder(logger *slog.Logger) *LoggerRecorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LoggerRecorder{logger: logger}
}

// Record implements Recorder.
func (r *LoggerRecorder) Record(ctx context.Context, event Event) {
	if r == nil || r.logger == nil {
		return
	}
	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}
	r.logger.InfoContext(ctx, "request denied",
		"reason", event.Reason,
		"method", event.Method,
		"path", event.Path,
		"address", event.Address,
		"country", event.Country,
		"ua", event.UserAgent,
		"occurred", event.Occurred.Format(time.RFC3339Nano),
	)
}

// MultiRecorder fans one event out to several recorders.
type MultiRecorder []Recorder

// Record implements Recorder.
func (m MultiRecorder) Record(ctx context.Context, event Event) {
	for _, r := range m {
		if r != nil {
			r.Record(ctx, event)
		}
	}
}
