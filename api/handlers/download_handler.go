package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/fetchd/internal/app"
	"github.com/yourusername/fetchd/internal/domain"
)

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	coordinator *app.Coordinator
	store       domain.ProgressStore
	logger      *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(coordinator *app.Coordinator, store domain.ProgressStore, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		coordinator: coordinator,
		store:       store,
		logger:      logger,
	}
}

// StartDownloadRequest represents a request to start a download
type StartDownloadRequest struct {
	URL string `json:"url" binding:"required"`
}

// DownloadView is a DownloadRecord prepared for display: the derived
// filename plus human-readable sizes, speed and time estimate.
type DownloadView struct {
	URL          string  `json:"url"`
	Name         string  `json:"name"`
	Failed       bool    `json:"failed"`
	Progress     string  `json:"progress"`
	Total        *string `json:"total,omitempty"`
	Percent      *string `json:"percent,omitempty"`
	Speed        string  `json:"speed"`
	TimeEstimate *string `json:"time_estimate,omitempty"`
}

// StartDownload handles POST /api/v1/downloads
func (h *DownloadHandler) StartDownload(c *gin.Context) {
	var req StartDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.coordinator.StartDownload(c.Request.Context(), req.URL); err != nil {
		h.logger.Error("Failed to start download", zap.String("url", req.URL), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": req.URL})
}

// ListDownloads handles GET /api/v1/downloads. Observers poll the
// progress store directly; the coordinator is not involved.
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	records, err := h.store.Scan(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to scan downloads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]DownloadView, 0, len(records))
	for _, record := range records {
		views = append(views, NewDownloadView(record))
	}

	c.JSON(http.StatusOK, gin.H{"downloads": views, "count": len(views)})
}

// NewDownloadView prepares a record for display.
func NewDownloadView(record *domain.DownloadRecord) DownloadView {
	view := DownloadView{
		URL:      record.URL,
		Name:     domain.FinalName(record.URL),
		Failed:   record.Failed,
		Progress: humanBytes(record.Progress),
		Speed:    humanSpeed(record.Speed),
	}
	if record.Total != nil {
		total := humanBytes(*record.Total)
		view.Total = &total

		percent := fmt.Sprintf("%.2f", float64(record.Progress)/float64(*record.Total)*100)
		view.Percent = &percent

		if record.Speed > 0 {
			estimate := humanTime(float64(*record.Total-record.Progress) / record.Speed)
			view.TimeEstimate = &estimate
		}
	}
	return view
}

func humanBytes(bytes uint64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.2f KiB", float64(bytes)/1024)
	case bytes < 1024*1024*1024:
		return fmt.Sprintf("%.2f MiB", float64(bytes)/1024/1024)
	default:
		return fmt.Sprintf("%.2f GiB", float64(bytes)/1024/1024/1024)
	}
}

func humanSpeed(speed float64) string {
	switch {
	case speed < 1024:
		return fmt.Sprintf("%.2f B/s", speed)
	case speed < 1024*1024:
		return fmt.Sprintf("%.2f KiB/s", speed/1024)
	case speed < 1024*1024*1024:
		return fmt.Sprintf("%.2f MiB/s", speed/1024/1024)
	default:
		return fmt.Sprintf("%.2f GiB/s", speed/1024/1024/1024)
	}
}

func humanTime(seconds float64) string {
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24
	switch {
	case seconds < 60:
		return fmt.Sprintf("%.0f seconds", seconds)
	case minutes < 60:
		return fmt.Sprintf("%.1f minutes", minutes)
	case hours < 24:
		return fmt.Sprintf("%.1f hours", hours)
	default:
		return fmt.Sprintf("%.1f days", days)
	}
}
