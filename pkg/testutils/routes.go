// Package testutils provides test-only API endpoints.
// These routes are only registered when ENVIRONMENT=test.
package testutils

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/circulation/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers test-only routes.
// These endpoints should ONLY be registered in test environments.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authService *auth.Service) {
	h := &handler{db: db, authService: authService}

	test := e.Group("/test")
	test.POST("/session", h.createSession)
	test.DELETE("/data", h.deleteAllData)
}
