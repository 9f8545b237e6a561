package auth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers the auth routes. Everything except the
// PIN change is reachable without a session.
func RegisterRoutesWithGroup(g *echo.Group, authService *Service, mw *Middleware) {
	h := &handler{
		authService: authService,
	}

	g.GET("/status", h.status)
	g.POST("/setup", h.setup)
	g.POST("/login", h.login)
	g.POST("/logout", h.logout)
	g.POST("/pin", h.changePIN, mw.Authenticate)
}
