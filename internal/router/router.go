package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-seat-reservation/internal/config"
	"github.com/iliyamo/cinema-seat-reservation/internal/engine"
	"github.com/iliyamo/cinema-seat-reservation/internal/handler"
	"github.com/iliyamo/cinema-seat-reservation/internal/middleware"
	"github.com/iliyamo/cinema-seat-reservation/internal/store"
)

// Deps bundles everything route registration needs to wire handlers and
// middleware without RegisterRoutes importing cmd/server.
type Deps struct {
	Engine    *engine.Engine
	Store     *store.Store
	Redis     *redis.Client
	Cfg       config.Config
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
}

// RegisterRoutes wires every endpoint in the external interface.
func RegisterRoutes(e *echo.Echo, deps Deps) {
	e.GET("/healthz", handler.Health)

	health := handler.NewHealthHandler(deps.Store)
	e.GET("/health", health.Ready)

	shows := handler.NewShowHandler(deps.Engine)
	e.POST("/shows/:show_id/initialize", shows.Initialize)

	cacheMW := middleware.NewRedisCache(deps.Cache, deps.Redis)
	e.GET("/shows/:show_id/seats", shows.SeatStatus, cacheMW)

	holds := handler.NewHoldHandler(deps.Engine)
	rateLimitMW := middleware.NewTokenBucket(deps.RateLimit, deps.Redis)
	e.POST("/shows/:show_id/hold", holds.Create, rateLimitMW)
	e.POST("/shows/:show_id/book", holds.Confirm)
	e.POST("/shows/:show_id/release-hold", holds.Release)

	admin := handler.NewAdminHandler(deps.Engine, deps.Cfg.AdminPasswordHash, deps.Cfg.AdminJWTSecret, deps.Cfg.AdminTokenTTLMin)
	e.POST("/admin/login", admin.Login)
	e.POST("/reset", admin.Reset, middleware.AdminAuth(deps.Cfg.AdminJWTSecret))
}
