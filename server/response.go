package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/vidpipe/errors"
)

// DataResponse is the success envelope.
type DataResponse struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta carries list metadata.
type Meta struct {
	Total int `json:"total"`
}

// RespondWithError writes err. AppErrors keep their status and body;
// anything else becomes a 500.
func RespondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		_ = c.Error(err)
		c.JSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, apperrors.Internal(err).ToResponse())
}

// RespondOK sends 200 with data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// RespondList sends 200 with items and their count.
func RespondList[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, DataResponse{Data: items, Meta: &Meta{Total: len(items)}})
}

// RespondCreated sends 201 with data.
func RespondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, DataResponse{Data: data})
}

// RespondAccepted sends 202 with data.
func RespondAccepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, DataResponse{Data: data})
}

// RespondNoContent sends 204.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
