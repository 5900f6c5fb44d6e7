package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/vidpipe/callback"
	"github.com/kbukum/vidpipe/engine"
	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/output"
	"github.com/kbukum/vidpipe/schema"
	"github.com/kbukum/vidpipe/server"
	"github.com/kbukum/vidpipe/validation"
)

// Prefix is where the API is mounted.
const Prefix = "/api/v1"

// Handler serves the admin and callback routes.
type Handler struct {
	engine    *engine.Engine
	callbacks *callback.Router
	outputs   *output.Resolver
	schemas   *schema.Registry
}

// New creates a Handler.
func New(e *engine.Engine, callbacks *callback.Router, outputs *output.Resolver, schemas *schema.Registry) *Handler {
	return &Handler{engine: e, callbacks: callbacks, outputs: outputs, schemas: schemas}
}

// Register mounts every route under Prefix.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group(Prefix)

	g.GET("/pipelines", h.ListPipelines)
	g.POST("/pipelines", h.CreatePipeline)
	g.GET("/pipelines/:id", h.GetPipeline)
	g.PATCH("/pipelines/:id", h.UpdatePipeline)
	g.DELETE("/pipelines/:id", h.DeletePipeline)
	g.GET("/pipelines/:id/plan", h.Plan)
	g.GET("/pipelines/:id/nodes", h.ListNodes)
	g.POST("/pipelines/:id/nodes", h.CreateNode)

	g.GET("/nodes/:id", h.GetNode)
	g.PATCH("/nodes/:id", h.UpdateNode)
	g.DELETE("/nodes/:id", h.DeleteNode)
	g.POST("/nodes/:id/execute", h.Execute)
	g.GET("/nodes/:id/output", h.Output)
	g.POST("/nodes/:id/fail", h.Fail)

	g.POST("/callbacks", h.Callback)
	g.POST("/callbacks/progress", h.Progress)

	g.GET("/schemas", h.Schemas)
}

// bind decodes the JSON body into v. An empty body leaves v untouched
// when optional is set.
func bind(c *gin.Context, v any, optional bool) bool {
	err := c.ShouldBindJSON(v)
	if err == nil {
		return true
	}
	if optional && err == io.EOF {
		return true
	}
	server.RespondWithError(c, errors.InvalidInput("body", err.Error()))
	return false
}

func (h *Handler) Schemas(c *gin.Context) {
	server.RespondList(c, h.schemas.All())
}

// Callback applies a completion report. Stale reports answer 409.
func (h *Handler) Callback(c *gin.Context) {
	var cb callback.Callback
	if !bind(c, &cb, false) {
		return
	}
	if err := validation.Struct(cb); err != nil {
		server.RespondWithError(c, err)
		return
	}
	n, err := h.callbacks.Handle(c.Request.Context(), cb)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, n)
}

// Progress merges a progress report. Stale reports are accepted and ignored.
func (h *Handler) Progress(c *gin.Context) {
	var p callback.Progress
	if !bind(c, &p, false) {
		return
	}
	if err := validation.Struct(p); err != nil {
		server.RespondWithError(c, err)
		return
	}
	out, err := h.callbacks.HandleProgress(c.Request.Context(), p)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": out.Applied})
}
