package http

import (
	"github.com/Glx28/billigst-mat/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, log zerolog.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(log))
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		groups := v1.Group("/groups")
		{
			groups.GET("", handler.ListGroups)
			groups.GET("/:name/history", handler.GetHistory)
		}

		v1.POST("/runs", handler.TriggerRun)
	}

	return router
}
