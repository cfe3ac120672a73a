package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/fetchd/internal/app"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	coordinator *app.Coordinator
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(coordinator *app.Coordinator) *HealthHandler {
	return &HealthHandler{
		coordinator: coordinator,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	Running         bool   `json:"running"`
	ActiveDownloads int    `json:"active_downloads"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:          "ok",
		Version:         "1.0.0",
		Running:         h.coordinator.IsRunning(),
		ActiveDownloads: h.coordinator.ActiveCount(),
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.coordinator.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "coordinator not running",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
