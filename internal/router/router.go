package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prepstack/practice-engine/internal/config"
	"github.com/prepstack/practice-engine/internal/handler"
	"github.com/prepstack/practice-engine/internal/middleware"
	"github.com/prepstack/practice-engine/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── Session Group ─────────────────────────────────────────────────
	api := router.Group("/api/v1")
	{
		api.GET("/sessions/:session_id", handlers.Session.GetSession)
		api.GET("/sessions/:session_id/summary", handlers.Session.GetSummary)

		// Rate-limit the write surface: client retry storms (flaky
		// networks resubmitting PATCHes) should back off, reads should not.
		writes := api.Group("")
		if cfg.WriteRateLimit > 0 {
			limiter := middleware.NewRateLimiter(cfg.WriteRateLimit, time.Minute)
			writes.Use(limiter.Middleware())
		}
		{
			writes.POST("/sessions", handlers.Session.CreateSession)
			writes.PATCH("/sessions/:session_id", handlers.Session.PatchSession)
		}
	}

	// ─── WebSocket Group ───────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	return router
}
