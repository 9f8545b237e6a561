package jobs

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers job routes on a pre-configured group.
// File names in job requests resolve inside exportDir.
func RegisterRoutesWithGroup(g *echo.Group, jobService *Service, exportDir string) {
	h := &handler{
		jobService: jobService,
		exportDir:  exportDir,
	}

	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.POST("", h.create)
}
