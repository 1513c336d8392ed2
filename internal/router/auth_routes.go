package router

import (
	"github.com/labstack/echo/v4"

	"github.com/leakwatch/leakwatch/internal/handler"
	"github.com/leakwatch/leakwatch/internal/middleware"
	"github.com/leakwatch/leakwatch/internal/model"
)

// RegisterAuth registers the session lifecycle under /api/auth.  Admin
// registration is open (bootstrap); manager and plumber registration sit
// behind an admin token so only admins grow the tenant.  Logout requires a
// valid access token: only a live session can end itself.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/api/auth")
	g.POST("/admin/register", a.RegisterAdmin)
	g.POST("/login", a.Login)
	g.POST("/refresh-token", a.Refresh)

	admin := e.Group("/api/auth",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	admin.POST("/manager/register", a.RegisterManager)
	admin.POST("/plumber/register", a.RegisterPlumber)

	authed := e.Group("/api/auth", middleware.JWTAuth(jwtSecret))
	authed.POST("/logout", a.Logout)
	authed.GET("/me", a.Me)
}
