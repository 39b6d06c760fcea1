// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"slot-swap-api/internal/config"
	"slot-swap-api/internal/handler"
	"slot-swap-api/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check used by load balancers and
// monitoring to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers authentication routes. Unauthenticated
// operations live under /v1/auth; /v1/me requires a valid access
// token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.POST("/auth/logout-all", a.LogoutAll)
}

// RegisterAPI registers the slot and swap endpoints. Every route
// requires a verified identity; the swappable-slot listing
// additionally sits behind the redis response cache, and the whole
// group is rate limited when redis is available.
func RegisterAPI(e *echo.Echo, s *handler.SlotHandler, sw *handler.SwapHandler, jwtSecret string, rdb *redis.Client) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	// Slot CRUD, owner scoped.
	g.POST("/slots", s.Create)
	g.GET("/slots", s.ListMine)
	g.GET("/slots/:id", s.Get)
	g.PATCH("/slots/:id", s.Update)
	g.DELETE("/slots/:id", s.Delete)

	// Swap protocol.
	g.GET("/swaps/slots", sw.SwappableSlots, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	g.POST("/swaps/request", sw.CreateRequest)
	g.GET("/swaps/sent", sw.Sent)
	g.GET("/swaps/received", sw.Received)
	g.GET("/swaps/history", sw.History)
	g.PUT("/swaps/:id/status", sw.SetStatus)
	g.PUT("/swaps/:id/cancel", sw.Cancel)
}
