package telemetry

import (
	"context"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to the Logger interface. keyvals are
// interpreted as alternating key/value pairs, same convention as the
// teacher's telemetry.Logger callers use.
type ZerologLogger struct {
	base zerolog.Logger
}

// NewZerologLogger wraps base as a Logger.
func NewZerologLogger(base zerolog.Logger) Logger {
	return ZerologLogger{base: base}
}

func (l ZerologLogger) Debug(_ context.Context, msg string, keyvals ...any) {
	l.event(l.base.Debug(), msg, keyvals)
}

func (l ZerologLogger) Info(_ context.Context, msg string, keyvals ...any) {
	l.event(l.base.Info(), msg, keyvals)
}

func (l ZerologLogger) Warn(_ context.Context, msg string, keyvals ...any) {
	l.event(l.base.Warn(), msg, keyvals)
}

func (l ZerologLogger) Error(_ context.Context, msg string, keyvals ...any) {
	l.event(l.base.Error(), msg, keyvals)
}

func (ZerologLogger) event(ev *zerolog.Event, msg string, keyvals []any) {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, keyvals[i+1])
	}
	ev.Msg(msg)
}
