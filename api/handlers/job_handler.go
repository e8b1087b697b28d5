package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yourusername/yt-dwn/internal/app"
	"github.com/yourusername/yt-dwn/internal/domain"
)

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	orchestrator *app.Orchestrator
	repo         domain.VideoRepository
	bus          *app.EventBus
	logger       *zap.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(
	orchestrator *app.Orchestrator,
	repo domain.VideoRepository,
	bus *app.EventBus,
	logger *zap.Logger,
) *JobHandler {
	return &JobHandler{
		orchestrator: orchestrator,
		repo:         repo,
		bus:          bus,
		logger:       logger,
	}
}

// CreateJobRequest represents a request to start one or more downloads
type CreateJobRequest struct {
	URL         string `json:"url"`
	Category    string `json:"category"`
	Quality     string `json:"quality"`
	AudioOnly   bool   `json:"audioOnly"`
	Format      string `json:"format"`
	Subtitles   bool   `json:"subtitles"`
	SubLang     string `json:"subLang"`
	Concurrency int    `json:"concurrency"`
	Fragments   int    `json:"fragments"`
	OutputDir   string `json:"outputDir"`
}

// ListJobs handles GET /api/v1/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	filter := domain.ListFilter{
		Category: c.Query("category"),
		Status:   domain.VideoStatus(c.Query("status")),
	}

	videos, err := h.repo.List(filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "data": videos, "total": len(videos)})
}

// GetJob handles GET /api/v1/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	video, ok := h.findVideo(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": video})
}

// CreateJob handles POST /api/v1/jobs. Validation happens synchronously;
// the download itself runs in background and the response is 202.
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	if req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "field \"url\" is required"})
		return
	}
	if req.Category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "field \"category\" is required"})
		return
	}
	if !domain.IsVideoURL(req.URL) && !domain.IsPlaylistURL(req.URL) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid YouTube URL"})
		return
	}

	opts := domain.DownloadOptions{
		Category:    req.Category,
		Quality:     domain.Quality(req.Quality),
		AudioOnly:   req.AudioOnly,
		Format:      req.Format,
		OutputDir:   req.OutputDir,
		Subtitles:   req.Subtitles,
		SubLang:     req.SubLang,
		Concurrency: req.Concurrency,
		Fragments:   req.Fragments,
	}
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	message := "download started in background"
	if domain.IsPlaylistURL(req.URL) && !domain.IsVideoURL(req.URL) {
		message = "playlist registered, downloads started in background"
	}

	c.JSON(http.StatusAccepted, gin.H{
		"ok":      true,
		"message": message,
		"hint":    "poll GET /api/v1/jobs to follow status",
	})

	url := req.URL
	go func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("Background download panicked",
					zap.String("url", url), zap.Any("panic", r))
			}
		}()
		// Failures are already persisted and published per job; this only
		// captures synchronous submission errors.
		if _, _, err := h.orchestrator.Submit(context.Background(), url, opts); err != nil {
			h.logger.Error("Background download failed",
				zap.String("url", url), zap.Error(err))
		}
	}()
}

// DeleteJob handles DELETE /api/v1/jobs/:id?deleteFile=true|false
func (h *JobHandler) DeleteJob(c *gin.Context) {
	video, ok := h.findVideo(c)
	if !ok {
		return
	}

	if c.Query("deleteFile") == "true" && video.FilePath != "" {
		if err := os.Remove(video.FilePath); err != nil && !os.IsNotExist(err) {
			h.logger.Warn("Failed to remove artifact",
				zap.Uint("id", video.ID),
				zap.String("file", video.FilePath),
				zap.Error(err))
		}
	}

	if err := h.repo.Delete(video.ID); err != nil {
		h.logger.Error("Failed to delete job", zap.Uint("id", video.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "job removed"})
}

// StreamEvents handles GET /api/v1/jobs/:id/events — a server-sent event
// stream of the job's progress/log/done/error events. A subscriber that
// attaches after the job finished receives one synthetic terminal event.
// The stream closes on a terminal event or client disconnect; detaching
// never cancels the job.
func (h *JobHandler) StreamEvents(c *gin.Context) {
	video, ok := h.findVideo(c)
	if !ok {
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// Subscribe before re-reading status so a terminal transition between
	// the two is never missed.
	sub := h.bus.Subscribe(video.ID)
	defer h.bus.Unsubscribe(sub)

	current, err := h.repo.FindByID(video.ID)
	if err == nil && current.Status == domain.StatusDone {
		c.SSEvent(string(app.EventDone), app.Event{
			VideoID:  current.ID,
			Type:     app.EventDone,
			Title:    current.Title,
			FilePath: current.FilePath,
		})
		c.Writer.Flush()
		return
	}

	c.Stream(func(w io.Writer) bool {
		select {
		case event, open := <-sub.Events:
			if !open {
				return false
			}
			c.SSEvent(string(event.Type), event)
			return !event.IsTerminal()
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// StreamArtifact handles GET /api/v1/jobs/:id/stream — serves the
// downloaded file with byte-range support.
func (h *JobHandler) StreamArtifact(c *gin.Context) {
	video, ok := h.findVideo(c)
	if !ok {
		return
	}

	if video.FilePath == "" {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "no artifact for this job"})
		return
	}
	if _, err := os.Stat(video.FilePath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "artifact not found on disk"})
		return
	}

	// http.ServeFile handles Range requests and 416 responses.
	http.ServeFile(c.Writer, c.Request, video.FilePath)
}

// findVideo resolves the :id parameter, writing a 400/404 response on
// failure.
func (h *JobHandler) findVideo(c *gin.Context) (*domain.Video, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid job id"})
		return nil, false
	}

	video, err := h.repo.FindByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "job not found"})
			return nil, false
		}
		h.logger.Error("Failed to load job", zap.Uint64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return nil, false
	}
	return video, true
}
