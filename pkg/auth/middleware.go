package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shishobooks/circulation/pkg/errcodes"
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

// Authenticate accepts the session cookie or a bearer token and returns 401
// when neither carries a valid session for the current PIN.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		token := tokenFromRequest(c)
		if token == "" {
			return errcodes.Unauthorized("Authentication required.")
		}

		claims, err := m.authService.ValidateSession(ctx, token)
		if err != nil {
			return errcodes.Unauthorized("Invalid or expired session.")
		}

		c.Set("session_subject", claims.Subject)

		return next(c)
	}
}

func tokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}
