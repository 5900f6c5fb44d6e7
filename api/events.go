package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/vidpipe/server"
	"github.com/kbukum/vidpipe/sse"
)

// RegisterEvents mounts GET /pipelines/:id/events, a Server-Sent Events
// stream of node status changes in that pipeline.
func (h *Handler) RegisterEvents(r gin.IRouter, hub *sse.Hub) {
	r.Group(Prefix).GET("/pipelines/:id/events", func(c *gin.Context) {
		p, err := h.engine.GetPipeline(c.Request.Context(), c.Param("id"))
		if err != nil {
			server.RespondWithError(c, err)
			return
		}
		hub.Serve(c.Writer, c.Request, p.ID)
	})
}
