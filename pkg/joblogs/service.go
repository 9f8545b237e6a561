package joblogs

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/circulation/pkg/models"
	"github.com/uptrace/bun"
)

// ListJobLogsOptions filters a job's log. RowsOnly keeps only entries tied to
// a CSV line, and FromLine/ToLine bound those lines inclusively; either bound
// implies RowsOnly.
type ListJobLogsOptions struct {
	JobID    int
	AfterID  *int
	Levels   []string
	RowsOnly bool
	FromLine *int
	ToLine   *int
	Limit    *int
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateJobLog(ctx context.Context, jobLog *models.JobLog) error {
	if jobLog.CreatedAt.IsZero() {
		jobLog.CreatedAt = time.Now()
	}

	_, err := svc.db.
		NewInsert().
		Model(jobLog).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

// ListJobLogs returns a job's entries in the order they were written, or in
// line order when only row entries are requested.
func (svc *Service) ListJobLogs(ctx context.Context, opts ListJobLogsOptions) ([]*models.JobLog, error) {
	logs := []*models.JobLog{}

	q := svc.db.
		NewSelect().
		Model(&logs).
		Where("jl.job_id = ?", opts.JobID)

	rowsOnly := opts.RowsOnly || opts.FromLine != nil || opts.ToLine != nil
	if rowsOnly {
		q = q.Where("jl.line IS NOT NULL").Order("jl.line ASC", "jl.id ASC")
	} else {
		q = q.Order("jl.id ASC")
	}
	if opts.FromLine != nil {
		q = q.Where("jl.line >= ?", *opts.FromLine)
	}
	if opts.ToLine != nil {
		q = q.Where("jl.line <= ?", *opts.ToLine)
	}
	if opts.AfterID != nil {
		q = q.Where("jl.id > ?", *opts.AfterID)
	}
	if len(opts.Levels) > 0 {
		q = q.Where("jl.level IN (?)", bun.In(opts.Levels))
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return logs, nil
}

// CountRowFailures returns how many CSV rows of the job were rejected. The
// job data only keeps the first few messages; this counts all of them.
func (svc *Service) CountRowFailures(ctx context.Context, jobID int) (int, error) {
	n, err := svc.db.
		NewSelect().
		Model((*models.JobLog)(nil)).
		Where("jl.job_id = ?", jobID).
		Where("jl.line IS NOT NULL").
		Where("jl.level = ?", models.JobLogLevelWarn).
		Count(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return n, nil
}
