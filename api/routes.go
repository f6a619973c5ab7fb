package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/syncgate/syncgate/api/handlers"
	"github.com/syncgate/syncgate/api/middleware"
	"github.com/syncgate/syncgate/internal/logger"
	"github.com/syncgate/syncgate/internal/repository"
	"github.com/syncgate/syncgate/internal/tracing"
	"github.com/syncgate/syncgate/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, log logger.Logger, s *services.Services, repos *repository.Repositories) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	r.GET("/health", handlers.HealthCheck)

	auth := middleware.BasicAuthMiddleware(log, repos)
	eas := r.Group(handlers.EASEndpoint)
	eas.Use(auth)
	eas.Use(tracing.TracingEnhancer(ctx, "activesync"))
	{
		eas.OPTIONS("", handlers.ActiveSyncOptions())
		eas.POST("", handlers.ActiveSyncCommand(log, s.ActiveSync, repos))
	}
}
