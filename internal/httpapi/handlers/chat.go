package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkravets/gamescout/internal/agent"
)

type chatRequest struct {
	History []agent.Turn `json:"history"`
	Message string       `json:"message" binding:"required"`
}

// Chat runs one assistant turn. Belief updates extracted from the reply are
// applied before responding, so the returned events reflect this turn.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "message is required")
		return
	}

	reply, events, err := h.Agent.Chat(c.Request.Context(), req.History, req.Message)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{
		"reply":  reply,
		"events": events,
	})
}
