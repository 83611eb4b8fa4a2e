package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListEvents returns recent trend events, most-recent-last. The `since`
// cursor is the last event id a caller has seen; the response carries the
// next cursor so repeated polling never re-delivers.
func (h *Handler) ListEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	since := c.Query("since")

	events := h.Agent.Events(limit, since)

	next := since
	if len(events) > 0 {
		next = events[len(events)-1].ID
	}
	ok(c, gin.H{
		"events":     events,
		"next_since": next,
	})
}
