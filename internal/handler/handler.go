package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/maxviazov/range-feed-service/internal/service"
)

// Register mounts all public routes on the given engine.
// Middleware is the caller's concern so tests can run with a bare engine.
func Register(r *gin.Engine, repo Pinger, feedSvc service.FeedService) {
	h := NewHealthHandler(repo)

	// Health probes
	r.GET("/live", h.Liveness)
	r.GET("/ready", h.Readiness)

	RegisterDocs(r)

	api := r.Group(APIV1Prefix)
	{
		health := api.Group("/health")
		{
			health.GET("/live", h.Liveness)
			health.GET("/ready", h.Readiness)
		}
		NewEventHandler(feedSvc).Register(api)
	}
}
