package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/claimflow/internal/domain/apperr"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    apperr.Kind `json:"kind,omitempty"`
}

// StatusFor maps a workflow error kind to an HTTP status code
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindIllegalTransition, apperr.KindStaleBatchState:
		return http.StatusConflict
	case apperr.KindValidationFailed, apperr.KindInvalidBatch:
		return http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// fail writes err. Infrastructure faults are logged and their detail is withheld.
func (h *Handlers) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, Response{Success: false, Error: "internal error", Kind: apperr.KindInternal})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error(), Kind: apperr.KindOf(err)})
}
