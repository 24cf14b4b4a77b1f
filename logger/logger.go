// Package logger holds the process-wide zap logger used by lanes and its CLI.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global sugared logger. It is a no-op until Initialize runs.
	Logger = zap.NewNop().Sugar()

	// JSONOutput records the mode of the last Initialize call.
	JSONOutput bool

	// level backs every core Initialize builds, so SetVerbosity applies after the fact.
	level = zap.NewAtomicLevelAt(zap.InfoLevel)
)

// Initialize replaces the global logger. JSON mode uses zap's production
// encoder; otherwise entries go through the minimal console encoder.
// Both write to stderr, leaving stdout to command output.
func Initialize(jsonOutput bool) error {
	if theme := os.Getenv("LANES_LOG_THEME"); theme != "" {
		SetTheme(theme)
	}

	built, err := build(jsonOutput)
	if err != nil {
		return err
	}
	JSONOutput = jsonOutput
	Logger = built.Sugar()
	return nil
}

func build(jsonOutput bool) (*zap.Logger, error) {
	if !jsonOutput {
		sink := zapcore.Lock(zapcore.AddSync(os.Stderr))
		return zap.New(zapcore.NewCore(newMinimalEncoder(), sink, level)), nil
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// SetVerbosity maps a -v count onto the shared level.
func SetVerbosity(verbosity int) {
	level.SetLevel(VerbosityToLevel(verbosity))
}

// Cleanup flushes buffered entries.
func Cleanup() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// with returns the global logger, or a no-op when a caller cleared it.
func with(extra ...interface{}) *zap.SugaredLogger {
	l := Logger
	if l == nil {
		return zap.NewNop().Sugar()
	}
	if len(extra) > 0 {
		return l.With(extra...)
	}
	return l
}

func Infow(msg string, keysAndValues ...interface{})  { with().Infow(msg, keysAndValues...) }
func Warnw(msg string, keysAndValues ...interface{})  { with().Warnw(msg, keysAndValues...) }
func Errorw(msg string, keysAndValues ...interface{}) { with().Errorw(msg, keysAndValues...) }
func Debugw(msg string, keysAndValues ...interface{}) { with().Debugw(msg, keysAndValues...) }
