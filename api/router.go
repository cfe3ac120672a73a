package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/fetchd/api/handlers"
	"github.com/yourusername/fetchd/api/middleware"
	"github.com/yourusername/fetchd/internal/app"
	"github.com/yourusername/fetchd/internal/domain"
)

// SetupRouter sets up the HTTP router
func SetupRouter(coordinator *app.Coordinator, store domain.ProgressStore, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(coordinator)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		downloadHandler := handlers.NewDownloadHandler(coordinator, store, log)
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.StartDownload)
			downloads.GET("", downloadHandler.ListDownloads)
		}
	}

	return router
}
