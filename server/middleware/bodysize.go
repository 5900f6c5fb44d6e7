package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/vidpipe/util"
)

const defaultMaxBodySize = 10 << 20

// BodySizeLimit caps request bodies at maxSize ("10MB", "512KB").
func BodySizeLimit(maxSize string) gin.HandlerFunc {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, size)
		c.Next()
	}
}
