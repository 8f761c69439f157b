package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/pkg/logger"
	"go.uber.org/zap"
)

// RequestLogger logs every request once it has been handled
func RequestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)
		if err != nil {
			// let echo write the response so the logged status is final
			c.Error(err)
		}

		status := c.Response().Status
		fields := []zap.Field{
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.RealIP()),
		}

		log := logger.FromContext(c)
		switch {
		case status >= 500:
			log.Error("HTTP Request", append(fields, zap.Error(err))...)
		case status >= 400:
			log.Warn("HTTP Request", fields...)
		default:
			log.Info("HTTP Request", fields...)
		}

		return nil
	}
}
