package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/vidpipe/version"
)

var startTime = time.Now()

// Info reports build information and uptime.
func Info(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := version.Get()
		c.JSON(http.StatusOK, gin.H{
			"service":    serviceName,
			"version":    v.Version,
			"commit":     v.Commit,
			"build_time": v.BuildTime,
			"go_version": v.GoVersion,
			"dirty":      v.Dirty,
			"uptime":     time.Since(startTime).Round(time.Second).String(),
		})
	}
}
