package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/syncdeck/syncdeck/pkg/errcodes"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "syncdeck_session"
	// ContextKeyIdentity is the echo context key the resolved identity is
	// stored under.
	ContextKeyIdentity = "identity"
)

// Middleware provides authentication middleware.
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{
		authService: authService,
	}
}

// Authenticate validates the session token from the cookie or Authorization
// header, resolves the caller's identity (creating the user row on first
// sight), and stores the identity in the request context. Requests without a
// valid session get a 401; that's a normal outcome, not a server error.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		token := sessionToken(c)
		if token == "" {
			return errcodes.Unauthorized("Authentication required")
		}

		claims, err := m.authService.ValidateSessionToken(token)
		if err != nil {
			return errcodes.Unauthorized("Invalid or expired token")
		}

		identity, err := m.authService.ResolveIdentity(ctx, claims)
		if err != nil {
			return err
		}

		c.Set(ContextKeyIdentity, identity)

		return next(c)
	}
}

func sessionToken(c echo.Context) string {
	cookie, err := c.Cookie(CookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return ""
}

// IdentityFromContext retrieves the resolved identity from the Echo context.
func IdentityFromContext(c echo.Context) (*Identity, bool) {
	identity, ok := c.Get(ContextKeyIdentity).(*Identity)
	return identity, ok
}
