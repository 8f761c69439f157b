package logger

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type contextKey int

const loggerKey contextKey = iota

// EchoKey is the echo context key holding the request-scoped logger
const EchoKey = "logger"

// WithLogger returns a copy of the context carrying the logger
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the request logger from the echo context
func FromContext(c echo.Context) *zap.Logger {
	if l, ok := c.Get(EchoKey).(*zap.Logger); ok {
		return l
	}
	return FromStdContext(c.Request().Context())
}

// FromStdContext retrieves the logger from a plain context, falling back to the global one
func FromStdContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return GetLogger()
}

// Enrich attaches fields to the request logger in both the echo and request contexts
func Enrich(c echo.Context, fields ...zap.Field) *zap.Logger {
	l := FromContext(c).With(fields...)
	c.Set(EchoKey, l)
	c.SetRequest(c.Request().WithContext(WithLogger(c.Request().Context(), l)))
	return l
}
