package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/pkg/logger"
	"go.uber.org/zap"
)

// RequestIDMiddleware adds a unique request ID to each request and a request-scoped logger
func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
			c.Request().Header.Set(echo.HeaderXRequestID, requestID)
		}

		c.Response().Header().Set(echo.HeaderXRequestID, requestID)

		c.Set(logger.EchoKey, logger.GetLogger())
		logger.Enrich(c, zap.String("request_id", requestID))

		return next(c)
	}
}
