package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/yt-dwn/api/handlers"
	"github.com/yourusername/yt-dwn/api/middleware"
	"github.com/yourusername/yt-dwn/internal/app"
	"github.com/yourusername/yt-dwn/internal/domain"
)

// SetupRouter sets up the HTTP router
func SetupRouter(
	orchestrator *app.Orchestrator,
	repo domain.VideoRepository,
	bus *app.EventBus,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler()
	router.GET("/health", healthHandler.Health)

	v1 := router.Group("/api/v1")
	{
		jobHandler := handlers.NewJobHandler(orchestrator, repo, bus, log)
		jobs := v1.Group("/jobs")
		{
			jobs.GET("", jobHandler.ListJobs)
			jobs.POST("", jobHandler.CreateJob)
			jobs.GET("/:id", jobHandler.GetJob)
			jobs.DELETE("/:id", jobHandler.DeleteJob)
			jobs.GET("/:id/events", jobHandler.StreamEvents)
			jobs.GET("/:id/stream", jobHandler.StreamArtifact)
		}

		categoryHandler := handlers.NewCategoryHandler()
		v1.GET("/categories", categoryHandler.ListCategories)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"ok": false, "error": "route not found"})
	})

	return router
}
