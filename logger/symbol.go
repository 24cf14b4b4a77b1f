package logger

import (
	"github.com/teranos/lanes/sym"
	"go.uber.org/zap"
)

// The glyph travels as the FieldSymbol field rather than in the message text,
// so entries can be filtered by it.

// PulseInfow logs at info level tagged with sym.Pulse.
func PulseInfow(msg string, keysAndValues ...interface{}) {
	with(FieldSymbol, sym.Pulse).Infow(msg, keysAndValues...)
}

// PulseWarnw logs at warn level tagged with sym.Pulse.
func PulseWarnw(msg string, keysAndValues ...interface{}) {
	with(FieldSymbol, sym.Pulse).Warnw(msg, keysAndValues...)
}

// WithSymbol tags every entry of l with glyph.
func WithSymbol(l *zap.SugaredLogger, glyph string) *zap.SugaredLogger {
	return l.With(FieldSymbol, glyph)
}

func AddPulseSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return WithSymbol(l, sym.Pulse)
}

// AddPulseOpenSymbol marks job start-side entries.
func AddPulseOpenSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return WithSymbol(l, sym.PulseOpen)
}

// AddPulseCloseSymbol marks job stop-side entries.
func AddPulseCloseSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return WithSymbol(l, sym.PulseClose)
}
