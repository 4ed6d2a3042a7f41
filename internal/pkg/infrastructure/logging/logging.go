package logging

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type loggerContextKey struct {
	name string
}

var loggerCtxKey = &loggerContextKey{"logger"}

// NewLogger creates a service scoped logger and stores it in the returned
// context so that deeper layers can retrieve it without plumbing.
func NewLogger(ctx context.Context, serviceName, serviceVersion string) (context.Context, zerolog.Logger) {
	logger := log.With().
		Str("service", strings.ToLower(serviceName)).
		Str("version", serviceVersion).
		Logger()

	return NewContextWithLogger(ctx, logger), logger
}

func NewContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, logger)
}

// GetLoggerFromContext returns the logger stored in ctx, falling back to the
// global logger when none has been stored.
func GetLoggerFromContext(ctx context.Context) zerolog.Logger {
	logger, ok := ctx.Value(loggerCtxKey).(zerolog.Logger)
	if !ok {
		return log.Logger
	}

	return logger
}

// With returns a child logger tagged with a component name, stored in the
// returned context.
func With(ctx context.Context, component string) (context.Context, zerolog.Logger) {
	logger := GetLoggerFromContext(ctx).With().Str("component", component).Logger()
	return NewContextWithLogger(ctx, logger), logger
}
