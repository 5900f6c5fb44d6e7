package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/vidpipe/engine"
	"github.com/kbukum/vidpipe/server"
)

func (h *Handler) ListNodes(c *gin.Context) {
	nodes, err := h.engine.ListNodes(c.Request.Context(), c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondList(c, nodes)
}

func (h *Handler) CreateNode(c *gin.Context) {
	var in engine.NodeInput
	if !bind(c, &in, false) {
		return
	}
	n, err := h.engine.CreateNode(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, n)
}

func (h *Handler) GetNode(c *gin.Context) {
	n, err := h.engine.GetNode(c.Request.Context(), c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, n)
}

func (h *Handler) UpdateNode(c *gin.Context) {
	var patch engine.NodePatch
	if !bind(c, &patch, false) {
		return
	}
	n, err := h.engine.UpdateNode(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, n)
}

func (h *Handler) DeleteNode(c *gin.Context) {
	if err := h.engine.DeleteNode(c.Request.Context(), c.Param("id")); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondNoContent(c)
}

// Execute answers 202 once the node is queued.
func (h *Handler) Execute(c *gin.Context) {
	n, err := h.engine.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, n)
}

type failRequest struct {
	Message string `json:"message" validate:"max=2000"`
}

// Fail lets an operator fail an in-progress node.
func (h *Handler) Fail(c *gin.Context) {
	var req failRequest
	if !bind(c, &req, true) {
		return
	}
	n, err := h.engine.Fail(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, n)
}

// Output redirects to a signed URL, or returns it with ?format=json.
func (h *Handler) Output(c *gin.Context) {
	u, err := h.outputs.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if c.Query("format") == "json" {
		server.RespondOK(c, u)
		return
	}
	c.Redirect(http.StatusFound, u.URL)
}
