package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mkravets/gamescout/internal/agent"
	"github.com/mkravets/gamescout/internal/storefront"
)

type Handler struct {
	Agent      *agent.Service
	Steam      *storefront.Steam
	CheapShark *storefront.CheapShark
	AIEnabled  bool
	Log        zerolog.Logger
}

func NewHandler(a *agent.Service, steam *storefront.Steam, cs *storefront.CheapShark, aiEnabled bool, log zerolog.Logger) *Handler {
	return &Handler{Agent: a, Steam: steam, CheapShark: cs, AIEnabled: aiEnabled, Log: log}
}

func (h *Handler) Health(c *gin.Context) {
	ok(c, gin.H{
		"status":       "ok",
		"ai_available": h.AIEnabled,
	})
}
