package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codyseavey/bag-of-holding/backend/internal/api/handlers"
	"github.com/codyseavey/bag-of-holding/backend/internal/config"
	"github.com/codyseavey/bag-of-holding/backend/internal/services"
	"github.com/codyseavey/bag-of-holding/backend/internal/worker"
)

func SetupRouter(cfg *config.Config, store *services.SessionStore, client *worker.Client) *gin.Engine {
	router := gin.Default()
	router.Use(metricsMiddleware())

	serveFrontend := cfg.FrontendDistPath != "" && dirExists(cfg.FrontendDistPath)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsConfig.AllowCredentials = false
	router.Use(cors.New(corsConfig))

	// Initialize handlers
	helvaultHandler := handlers.NewHelvaultHandler(client, cfg.MaxUploadBytes)
	sessionHandler := handlers.NewSessionHandler(store, client)
	decklistHandler := handlers.NewDecklistHandler()
	wsHandler := handlers.NewWSHandler(client, cfg.CORSAllowedOrigins, cfg.MaxUploadBytes)

	// API routes
	api := router.Group("/api")
	{
		api.POST("/helvault", uploadLimiter(cfg.UploadRatePerMinute, cfg.UploadBurst), helvaultHandler.Upload)

		sessions := api.Group("/sessions")
		{
			sessions.GET("", sessionHandler.ListSessions)
			sessions.GET("/:id", sessionHandler.GetSession)
			sessions.GET("/:id/cards", sessionHandler.QueryCards)
			sessions.GET("/:id/inventory", sessionHandler.QueryInventory)
			sessions.GET("/:id/aggregates", sessionHandler.GetAggregates)
			sessions.GET("/:id/collections", sessionHandler.GetCollections)
			sessions.POST("/:id/matches", sessionHandler.ComputeMatches)
		}

		decklist := api.Group("/decklist")
		{
			decklist.POST("/parse", decklistHandler.Parse)
			decklist.POST("/format", decklistHandler.Format)
		}

		api.GET("/ws", wsHandler.Serve)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": store.Len()})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Serve frontend static files
	if serveFrontend {
		indexPath := filepath.Join(cfg.FrontendDistPath, "index.html")

		router.Static("/assets", filepath.Join(cfg.FrontendDistPath, "assets"))
		router.StaticFile("/favicon.ico", filepath.Join(cfg.FrontendDistPath, "favicon.ico"))

		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback - serve index.html for all non-API routes
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.File(indexPath)
		})
	}

	return router
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
