package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkravets/gamescout/internal/agent"
	"github.com/mkravets/gamescout/internal/belief"
)

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "ok",
		"data":    data,
	})
}

func fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
		"data":    nil,
	})
}

// failErr maps core errors onto the envelope.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, agent.ErrNotFound):
		fail(c, http.StatusNotFound, 40004, "game not found")
	case errors.Is(err, belief.ErrValidation):
		fail(c, http.StatusBadRequest, 10002, err.Error())
	default:
		fail(c, http.StatusInternalServerError, 50001, "internal error")
	}
}
