package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/vidpipe/engine"
	"github.com/kbukum/vidpipe/server"
)

func (h *Handler) ListPipelines(c *gin.Context) {
	ps, err := h.engine.ListPipelines(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondList(c, ps)
}

func (h *Handler) CreatePipeline(c *gin.Context) {
	var in engine.PipelineInput
	if !bind(c, &in, false) {
		return
	}
	p, err := h.engine.CreatePipeline(c.Request.Context(), in)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, p)
}

func (h *Handler) GetPipeline(c *gin.Context) {
	p, err := h.engine.GetPipeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, p)
}

func (h *Handler) UpdatePipeline(c *gin.Context) {
	var patch engine.PipelinePatch
	if !bind(c, &patch, false) {
		return
	}
	p, err := h.engine.UpdatePipeline(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, p)
}

func (h *Handler) DeletePipeline(c *gin.Context) {
	if err := h.engine.DeletePipeline(c.Request.Context(), c.Param("id")); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondNoContent(c)
}

func (h *Handler) Plan(c *gin.Context) {
	plan, err := h.engine.Plan(c.Request.Context(), c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, plan)
}
