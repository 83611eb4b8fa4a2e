package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Search looks up games on the Steam store by title.
func (h *Handler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, 10001, "query parameter q is required")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 || limit > 25 {
		limit = 10
	}

	results, err := h.Steam.Search(c.Request.Context(), q, limit)
	if err != nil {
		h.Log.Warn().Err(err).Str("query", q).Msg("steam search failed")
		fail(c, http.StatusBadGateway, 50201, "storefront unavailable")
		return
	}
	ok(c, gin.H{"results": results})
}

// AppDetails returns current Steam price details for one app id, without
// requiring the app to be on the watchlist.
func (h *Handler) AppDetails(c *gin.Context) {
	appID := c.Param("appid")
	details, err := h.Steam.AppDetails(c.Request.Context(), appID)
	if err != nil {
		h.Log.Warn().Err(err).Str("appid", appID).Msg("steam app details failed")
		fail(c, http.StatusBadGateway, 50201, "storefront unavailable")
		return
	}
	if details == nil {
		fail(c, http.StatusNotFound, 40004, "game not found")
		return
	}
	ok(c, gin.H{"game": details})
}

// ListStores returns the storefronts the deals aggregator covers.
func (h *Handler) ListStores(c *gin.Context) {
	stores, err := h.CheapShark.Stores(c.Request.Context())
	if err != nil {
		h.Log.Warn().Err(err).Msg("cheapshark stores failed")
		fail(c, http.StatusBadGateway, 50201, "storefront unavailable")
		return
	}
	ok(c, gin.H{"stores": stores})
}

// TopDeals returns the current best deals across stores, ranked by CheapShark.
func (h *Handler) TopDeals(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 || limit > 60 {
		limit = 10
	}

	deals, err := h.CheapShark.TopDeals(c.Request.Context(), limit)
	if err != nil {
		h.Log.Warn().Err(err).Msg("cheapshark deals failed")
		fail(c, http.StatusBadGateway, 50201, "storefront unavailable")
		return
	}
	ok(c, gin.H{"deals": deals})
}

// SteamSpecials returns the featured specials from the Steam storefront.
func (h *Handler) SteamSpecials(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 || limit > 60 {
		limit = 10
	}

	specials, err := h.Steam.Specials(c.Request.Context(), limit)
	if err != nil {
		h.Log.Warn().Err(err).Msg("steam specials failed")
		fail(c, http.StatusBadGateway, 50201, "storefront unavailable")
		return
	}
	ok(c, gin.H{"specials": specials})
}
