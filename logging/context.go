package logging

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

// fallback is used by FromContext when no logger was installed. It
// defaults to a no-op logger so an IndexSet used without WithLogger
// never panics or writes to stderr by surprise; tests and callers that
// want output call zap.ReplaceGlobals-style plumbing via WithLogger
// instead.
var fallback = zap.NewNop().Sugar()

// WithLogger returns a context carrying l, retrievable later via
// FromContext.
func WithLogger(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger installed on ctx by WithLogger, or a
// no-op logger if none was installed.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.SugaredLogger); ok && l != nil {
		return l
	}
	return fallback
}
