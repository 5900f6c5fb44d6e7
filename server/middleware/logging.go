package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/observability"
)

const slowRequest = 500 * time.Millisecond

// RequestLogger logs each request at a level chosen by status and records
// request metrics. /health is counted but not logged. metrics may be nil.
func RequestLogger(log *logger.Logger, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(c.Request.Context(), c.Request.Method, route, status, latency)
		if c.Request.URL.Path == "/health" {
			return
		}

		fields := map[string]interface{}{
			"method":             c.Request.Method,
			"path":               c.Request.URL.Path,
			"route":              route,
			logger.FieldStatus:   status,
			logger.FieldDuration: latency.Milliseconds(),
			"client":             c.ClientIP(),
		}
		if latency > slowRequest {
			fields["slow"] = true
		}
		if len(c.Errors) > 0 {
			fields[logger.FieldError] = c.Errors.Last().Error()
		}

		l := log.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			l.Error("Request completed", fields)
		case status >= 400:
			l.Warn("Request completed", fields)
		default:
			l.Debug("Request completed", fields)
		}
	}
}
