package router

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/leakwatch/leakwatch/internal/config"
	"github.com/leakwatch/leakwatch/internal/handler"
	"github.com/leakwatch/leakwatch/internal/middleware"
	"github.com/leakwatch/leakwatch/internal/ws"
)

// RegisterRoutes wires the global middleware stack, the error handler and
// the unauthenticated endpoints (health check, websocket upgrade).
func RegisterRoutes(e *echo.Echo, cfg config.Config, rdb *redis.Client, hub *ws.Hub) {
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler

	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.Secure())
	e.Use(echomw.Gzip())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{cfg.CORSOrigin},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	if rdb != nil {
		rl := config.LoadRateLimitConfig()
		if rl.Enabled {
			e.Use(middleware.NewTokenBucket(rl, rdb))
		}
	}

	e.GET("/healthz", handler.Health)
	e.GET("/ws", ws.Handler(hub))
}

// errorHandler keeps unknown routes and uncaught errors on the same
// {"message"} body shape as the handlers, and never leaks internals.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	message := "internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		switch code {
		case http.StatusNotFound:
			message = "route not found"
		case http.StatusMethodNotAllowed:
			message = "method not allowed"
		default:
			if s, ok := he.Message.(string); ok {
				message = s
			}
		}
	}
	if code == http.StatusInternalServerError {
		log.Printf("router: unhandled error on %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
		message = "internal server error"
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, echo.Map{"message": message})
}
