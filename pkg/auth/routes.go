package auth

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfdesk/shelfdesk/pkg/config"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers the /auth routes and returns the middleware that
// protects every other resource. limit wraps the credential endpoints.
func RegisterRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config, limit ...echo.MiddlewareFunc) *Middleware {
	authService := NewService(db, cfg)
	authMiddleware := NewMiddleware(authService)

	h := &handler{
		authService: authService,
		cookieTTL:   cfg.TokenExpiry,
	}

	g := e.Group("/auth")
	g.POST("/register", h.register, limit...)
	g.POST("/login", h.login, limit...)
	g.POST("/logout", h.logout)
	g.GET("/me", h.me, authMiddleware.Authenticate)

	return authMiddleware
}
