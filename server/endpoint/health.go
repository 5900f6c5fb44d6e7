// Package endpoint provides the operational HTTP endpoints.
package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/vidpipe/component"
)

// HealthChecker returns the health of each registered component.
type HealthChecker func(ctx context.Context) []component.Health

// Overall folds component health into one status: any unhealthy
// component makes the service unhealthy, any degraded one degraded.
func Overall(components []component.Health) component.HealthStatus {
	status := component.StatusHealthy
	for _, h := range components {
		switch h.Status {
		case component.StatusUnhealthy:
			return component.StatusUnhealthy
		case component.StatusDegraded:
			status = component.StatusDegraded
		}
	}
	return status
}

// Health reports service health with per-component detail. Unhealthy
// answers 503.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		components := []component.Health{}
		if checker != nil {
			components = checker(c.Request.Context())
		}
		status := Overall(components)

		httpStatus := http.StatusOK
		if status == component.StatusUnhealthy {
			httpStatus = http.StatusServiceUnavailable
		}
		c.JSON(httpStatus, gin.H{
			"status":     status,
			"service":    serviceName,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"components": components,
		})
	}
}
