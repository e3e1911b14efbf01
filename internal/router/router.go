package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/alumnirel/eventlock/internal/handler"    // handlers for locks, events and admin auth
	"github.com/alumnirel/eventlock/internal/middleware" // JWT, role, lock gate, rate limit and cache middleware
	"github.com/alumnirel/eventlock/internal/utils"      // role constants
)

// RegisterRoutes registers routes that do not require authentication and
// are not lock-aware.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the admin login endpoint.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	e.POST("/api/admin/login", a.Login)
}

// RegisterLocks registers the lock API.  Verify is public and guarded by
// verifyLimit; every other route requires an ADMIN access token.
func RegisterLocks(e *echo.Echo, h *handler.LockHandler, jwtSecret string, verifyLimit echo.MiddlewareFunc) {
	g := e.Group("/api/locks")
	g.GET("/verify/:token", h.Verify, verifyLimit)

	admin := g.Group("", middleware.JWTAuth(jwtSecret), middleware.RequireRole(utils.RoleAdmin))
	admin.POST("", h.Generate)
	admin.POST("/generate", h.Generate)
	admin.GET("", h.List)
	admin.DELETE("/:id", h.Revoke)
}

// RegisterPublic registers the lock-aware public event reads.  The gate
// runs before the cache so cached responses are keyed by lock scope.
func RegisterPublic(e *echo.Echo, p *handler.PublicEventHandler, gate, cache echo.MiddlewareFunc) {
	g := e.Group("/api/events", gate, cache)
	g.GET("/ongoing", p.Ongoing)
	g.GET("/:slug", p.BySlug)
	g.GET("/:slug/flow", p.Flow)
	g.GET("/:slug/memories", p.Memories)
}
