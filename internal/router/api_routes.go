package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/leakwatch/leakwatch/internal/config"
	"github.com/leakwatch/leakwatch/internal/handler"
	"github.com/leakwatch/leakwatch/internal/middleware"
	"github.com/leakwatch/leakwatch/internal/model"
)

// RegisterChannels registers channel CRUD under /api/channels.  Admins and
// managers share the surface; plumbers never write channels.
func RegisterChannels(e *echo.Echo, h *handler.ChannelHandler, jwtSecret string) {
	g := e.Group("/api/channels",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleManager),
	)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// RegisterPlumbers registers the admin-only plumber CRUD under /api/plumbers.
// Creation shares the hashed-registration path with /api/auth/plumber/register
// so there is exactly one way a plumber account comes into existence.
func RegisterPlumbers(e *echo.Echo, h *handler.PlumberHandler, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/api/plumbers",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("", a.RegisterPlumber)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// RegisterManager registers the manager-scoped read surface plus plumber
// assignment under /api/manager.  The read endpoints go through the Redis
// response cache when one is configured; the cache key includes the
// authenticated user id so managers never see each other's pages.
func RegisterManager(e *echo.Echo, h *handler.ManagerHandler, jwtSecret string, rdb *redis.Client) {
	mws := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleManager),
	}
	if rdb != nil {
		cc := config.LoadCacheConfig()
		if cc.Enabled {
			mws = append(mws, middleware.NewRedisCache(cc, rdb))
		}
	}
	g := e.Group("/api/manager", mws...)
	g.GET("/analytics", h.Analytics)
	g.GET("/plumbers", h.PlumberList)
	g.GET("/channels", h.ChannelList)
	g.POST("/channels/:channelId/assign", h.AssignPlumber)
}

// RegisterNotifications registers the manual send (admin only) and the
// per-plumber catch-up listing (any authenticated principal).
func RegisterNotifications(e *echo.Echo, h *handler.NotificationHandler, jwtSecret string) {
	send := e.Group("/api/notifications",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	send.POST("/send", h.Send)

	read := e.Group("/api/notifications", middleware.JWTAuth(jwtSecret))
	read.GET("/:plumberId", h.ListByPlumber)
}

// RegisterReports registers report reads and on-demand generation for
// admins and managers.
func RegisterReports(e *echo.Echo, h *handler.ReportHandler, jwtSecret string) {
	g := e.Group("/api/reports",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleManager),
	)
	g.GET("", h.List)
	g.POST("/generate", h.Generate)
}
