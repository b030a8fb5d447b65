package auth

import (
	"github.com/labstack/echo/v4"
	"github.com/syncdeck/syncdeck/pkg/platform"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers auth routes and returns the auth service so the
// rest of the server can build middleware from it.
func RegisterRoutes(e *echo.Echo, db *bun.DB, platformClient *platform.Client, sessionSecret string) *Service {
	authService := NewService(db, platformClient, sessionSecret)

	h := &handler{
		authService: authService,
	}

	authMiddleware := NewMiddleware(authService)

	group := e.Group("/auth")
	group.GET("/me", h.me, authMiddleware.Authenticate)

	return authService
}
