package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	authService *Service
}

// me returns the resolved identity of the current session.
func (h *handler) me(c echo.Context) error {
	identity, ok := IdentityFromContext(c)
	if !ok {
		// Authenticate middleware didn't run; treat as unauthenticated.
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
	}

	return errors.WithStack(c.JSON(http.StatusOK, identity))
}
