package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mkravets/gamescout/internal/agent"
	"github.com/mkravets/gamescout/internal/httpapi/handlers"
	"github.com/mkravets/gamescout/internal/httpapi/middleware"
	"github.com/mkravets/gamescout/internal/storefront"
)

type RouterConfig struct {
	JWTSecret string
	AIEnabled bool
}

func NewRouter(a *agent.Service, steam *storefront.Steam, cs *storefront.CheapShark, cfg RouterConfig, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(log))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "route not found", "data": nil})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"code": 40500, "message": "method not allowed", "data": nil})
	})

	h := handlers.NewHandler(a, steam, cs, cfg.AIEnabled, log)

	r.GET("/health", h.Health)

	r.GET("/watchlist", h.GetWatchlist)
	r.GET("/watchlist/:id", h.GetGame)
	r.GET("/events", h.ListEvents)
	r.GET("/search", h.Search)
	r.GET("/game/:appid", h.AppDetails)
	r.GET("/stores", h.ListStores)
	r.GET("/deals/top", h.TopDeals)
	r.GET("/deals/steam", h.SteamSpecials)

	// Mutating routes sit behind JWT auth when a secret is configured.
	mut := r.Group("/")
	if cfg.JWTSecret != "" {
		mut.Use(middleware.AuthRequired(cfg.JWTSecret))
	}
	mut.POST("/watchlist", h.ReplaceWatchlist)
	mut.DELETE("/watchlist/:id", h.RemoveGame)
	mut.POST("/chat", h.Chat)

	return r
}
