package joblogs

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/circulation/pkg/jobs"
)

// RegisterRoutes registers job log routes on the jobs group.
func RegisterRoutes(jobsGroup *echo.Group, jobLogService *Service, jobService *jobs.Service) {
	h := &handler{
		jobLogService: jobLogService,
		jobService:    jobService,
	}

	// GET /jobs/:id/logs
	jobsGroup.GET("/:id/logs", h.listLogs)
}
