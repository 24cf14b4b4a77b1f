package logger

import (
	"context"

	"go.uber.org/zap"
)

// Field names shared by every structured log call in lanes.
const (
	// Identity
	FieldJobID     = "job_id"
	FieldCommandID = "command_id"
	FieldComponent = "component"

	// Lifecycle
	FieldState  = "state"
	FieldFrom   = "from"
	FieldStatus = "status"
	FieldMode   = "mode"

	// Execution contexts
	FieldLane     = "lane"
	FieldPriority = "priority"
	FieldDelayMS  = "delay_ms"

	// Timing and counts
	FieldDurationMS = "duration_ms"
	FieldCount      = "count"

	// Errors
	FieldError = "error"

	// Glyph for the log line (꩜, ✿, ❀)
	FieldSymbol = "symbol"
)

// scope is the logging context carried through a command's ctx. Each With*
// call copies it, so sibling contexts never see each other's fields.
type scope struct {
	jobID     string
	commandID uint32
	component string
}

type scopeKey struct{}

func scopeOf(ctx context.Context) scope {
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

func withScope(ctx context.Context, edit func(*scope)) context.Context {
	s := scopeOf(ctx)
	edit(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithJobID tags ctx with the job a command belongs to.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return withScope(ctx, func(s *scope) { s.jobID = jobID })
}

// WithCommandID tags ctx with the running command.
func WithCommandID(ctx context.Context, commandID uint32) context.Context {
	return withScope(ctx, func(s *scope) { s.commandID = commandID })
}

// WithComponent tags ctx with the subsystem doing the logging.
func WithComponent(ctx context.Context, component string) context.Context {
	return withScope(ctx, func(s *scope) { s.component = component })
}

// FieldsFromContext returns the tags on ctx as key-value pairs for Infow and friends.
// Unset tags are omitted.
func FieldsFromContext(ctx context.Context) []interface{} {
	s := scopeOf(ctx)
	var fields []interface{}
	if s.jobID != "" {
		fields = append(fields, FieldJobID, s.jobID)
	}
	if s.commandID != 0 {
		fields = append(fields, FieldCommandID, s.commandID)
	}
	if s.component != "" {
		fields = append(fields, FieldComponent, s.component)
	}
	return fields
}

// LoggerFromContext returns the global logger carrying the tags on ctx.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	return with(FieldsFromContext(ctx)...)
}

// ComponentLogger returns the global logger named for a component, for
// injection into constructors:
//
//	rt := async.NewRuntime(async.WithLogger(logger.ComponentLogger("pulse")))
func ComponentLogger(name string) *zap.SugaredLogger {
	return with().Named(name)
}

// ChildLogger adds fields to parent.
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
