package joblogs

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/circulation/pkg/errcodes"
	"github.com/shishobooks/circulation/pkg/jobs"
	"github.com/shishobooks/circulation/pkg/models"
)

type handler struct {
	jobLogService *Service
	jobService    *jobs.Service
}

func (h *handler) listLogs(c echo.Context) error {
	ctx := c.Request().Context()

	jobID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Job")
	}

	job, err := h.jobService.RetrieveJob(ctx, jobs.RetrieveJobOptions{
		ID: &jobID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	params := ListJobLogsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if params.FromLine != nil && params.ToLine != nil && *params.ToLine < *params.FromLine {
		return errcodes.ValidationError(`"to_line" must be greater than or equal to "from_line"`)
	}

	logs, err := h.jobLogService.ListJobLogs(ctx, ListJobLogsOptions{
		JobID:    jobID,
		AfterID:  params.AfterID,
		Levels:   params.Level,
		RowsOnly: params.Rows,
		FromLine: params.FromLine,
		ToLine:   params.ToLine,
		Limit:    params.Limit,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	rowFailures, err := h.jobLogService.CountRowFailures(ctx, jobID)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Logs        []*models.JobLog `json:"logs"`
		RowFailures int              `json:"row_failures"`
		Job         *models.Job      `json:"job"`
	}{logs, rowFailures, job}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
