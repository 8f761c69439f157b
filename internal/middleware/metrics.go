package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/prometheus"
)

// HTTPMetrics records request counts and durations by route
func HTTPMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)

		status := c.Response().Status
		if err != nil {
			status = http.StatusInternalServerError
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
		}
		method := c.Request().Method
		path := c.Path()
		statusStr := strconv.Itoa(status)

		prometheus.HttpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
		prometheus.HttpRequestDuration.WithLabelValues(method, path, statusStr).Observe(time.Since(start).Seconds())
		prometheus.RecordStatus(status, method, path)

		return err
	}
}
