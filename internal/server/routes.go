// Package server configures the HTTP server and routes.
package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/photo-autopilot/internal/config"
	"github.com/fleveque/photo-autopilot/internal/handler"
	"github.com/fleveque/photo-autopilot/internal/middleware"
	"github.com/fleveque/photo-autopilot/internal/service"
	"github.com/fleveque/photo-autopilot/internal/storage"
)

// Deps bundles the dependencies handlers need. Passed explicitly — no DI
// container, no magic.
type Deps struct {
	Autopilot *service.AutopilotService
	EnhRepo   storage.EnhancementRepository
	CallRepo  storage.ProviderCallRepository
}

// RegisterRoutes sets up all HTTP routes on the Gin engine.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps, logger *zap.Logger) {
	healthHandler := handler.NewHealthHandler()
	autopilotHandler := handler.NewAutopilotHandler(deps.Autopilot, logger)
	adminHandler := handler.NewAdminHandler(deps.EnhRepo, deps.CallRepo, logger)

	// Public endpoints (no auth)
	r.GET("/healthz", healthHandler.Healthz)

	// CORS middleware applies to the entire API group.
	api := r.Group("/api/v1")
	api.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Authenticated API endpoints
	authed := api.Group("")
	authed.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	authed.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	{
		authed.POST("/autopilot/analyze", autopilotHandler.Analyze)
		authed.POST("/autopilot/enhance", autopilotHandler.Enhance)
	}

	// Admin endpoints (separate auth with admin keys)
	admin := api.Group("/admin")
	admin.Use(middleware.AdminKeyAuth(cfg.Auth.AdminKeys))
	{
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/enhancements", adminHandler.Enhancements)
	}
}
