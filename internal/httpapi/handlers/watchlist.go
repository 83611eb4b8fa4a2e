package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkravets/gamescout/internal/belief"
)

func (h *Handler) GetWatchlist(c *gin.Context) {
	all := c.Query("all") == "1" || c.Query("all") == "true"
	ok(c, gin.H{"games": h.Agent.Watchlist(all)})
}

func (h *Handler) GetGame(c *gin.Context) {
	g, err := h.Agent.Game(c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"game": g})
}

func (h *Handler) RemoveGame(c *gin.Context) {
	if err := h.Agent.Remove(c.Request.Context(), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	ok(c, nil)
}

type replaceWatchlistReq struct {
	Games []belief.Update `json:"games"`
}

// ReplaceWatchlist swaps the tracked set for the submitted one and returns
// the authoritative merged result, plus any events the merge produced so the
// client can update its event view without a second poll.
func (h *Handler) ReplaceWatchlist(c *gin.Context) {
	var req replaceWatchlistReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	games, events, err := h.Agent.ReplaceWatchlist(c.Request.Context(), req.Games)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{
		"games":  games,
		"events": events,
	})
}
