package audit

import (
	"context"
	"errors"
	"log/slog"
	"sort"
)

// Recorder persists audit events.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// Multi sends each event to every recorder. A failing recorder does not
// stop the others; their errors are joined.
type Multi []Recorder

// Record implements Recorder.
func (m Multi) Record(ctx context.Context, e Event) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every event.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Event) error { return nil }

// LogRecorder writes events to a structured logger. Failures, rejections
// and panics log at warn or error; everything else at info.
type LogRecorder struct {
	logger *slog.Logger
}

// NewLogRecorder returns a recorder writing to logger.
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

// Record implements Recorder.
func (r *LogRecorder) Record(ctx context.Context, e Event) error {
	attrs := make([]slog.Attr, 0, len(e.Details)+3)
	attrs = append(attrs, slog.String("action", string(e.Action)))
	if e.ConnID != "" {
		attrs = append(attrs, slog.String("conn_id", e.ConnID))
	}
	if e.Peer != "" {
		attrs = append(attrs, slog.String("peer", e.Peer))
	}

	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, e.Details[k]))
	}

	r.logger.LogAttrs(ctx, levelFor(e.Action), "audit", attrs...)
	return nil
}

func levelFor(a Action) slog.Level {
	switch a {
	case ActionHandlerPanic, ActionForwardFailed:
		return slog.LevelError
	case ActionReadingRejected, ActionReadingMalformed, ActionTimestampFallback,
		ActionForwardRejected, ActionAckFailed:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
