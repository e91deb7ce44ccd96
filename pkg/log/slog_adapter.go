package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger.
// Useful for development when you want to see controller activity in
// the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("component", event.Component.String()),
		slog.String("category", event.Category.String()),
	}

	if event.DeviceID != "" {
		attrs = append(attrs, slog.String("device_id", event.DeviceID))
	}
	if event.Sequence != 0 {
		attrs = append(attrs, slog.Uint64("seq", event.Sequence))
	}

	switch {
	case event.Interrupt != nil:
		attrs = append(attrs, slog.Int("priority", event.Interrupt.Priority))
		if event.Interrupt.Latency != nil {
			attrs = append(attrs, slog.Duration("latency", *event.Interrupt.Latency))
		}
		if event.Interrupt.Duration != nil {
			attrs = append(attrs, slog.Duration("duration", *event.Interrupt.Duration))
		}
	case event.Mask != nil:
		if event.Mask.Reset {
			attrs = append(attrs, slog.Bool("reset", true))
		} else {
			attrs = append(attrs, slog.Bool("masked", event.Mask.Masked))
		}
	case event.Wait != nil:
		attrs = append(attrs,
			slog.Int("deferred", event.Wait.Deferred),
			slog.Duration("waited", event.Wait.Waited),
			slog.String("wake", event.Wait.Wake.String()),
		)
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_component", event.Error.Component.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "trace", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
