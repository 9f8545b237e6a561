package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/circulation/pkg/errcodes"
	"github.com/shishobooks/circulation/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveJobOptions struct {
	ID *int
}

type ListJobsOptions struct {
	Limit              *int
	Offset             *int
	Statuses           []string
	Type               *string
	ProcessIDToExclude *string
	OldestFirst        bool

	includeTotal bool
}

type UpdateJobOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateJob(ctx context.Context, job *models.Job) error {
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = job.CreatedAt
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}

	if job.Data == "" && job.DataParsed != nil {
		if err := job.MarshalData(); err != nil {
			return err
		}
	}

	_, err := svc.db.
		NewInsert().
		Model(job).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveJob(ctx context.Context, opts RetrieveJobOptions) (*models.Job, error) {
	job := &models.Job{}

	q := svc.db.
		NewSelect().
		Model(job)

	if opts.ID != nil {
		q = q.Where("j.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Job")
		}
		return nil, errors.WithStack(err)
	}

	if job.Data != "" {
		if err := job.UnmarshalData(); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return job, nil
}

func (svc *Service) ListJobs(ctx context.Context, opts ListJobsOptions) ([]*models.Job, error) {
	j, _, err := svc.listJobsWithTotal(ctx, opts)
	return j, errors.WithStack(err)
}

func (svc *Service) ListJobsWithTotal(ctx context.Context, opts ListJobsOptions) ([]*models.Job, int, error) {
	opts.includeTotal = true
	return svc.listJobsWithTotal(ctx, opts)
}

func (svc *Service) listJobsWithTotal(ctx context.Context, opts ListJobsOptions) ([]*models.Job, int, error) {
	jobs := []*models.Job{}
	var total int
	var err error

	order := "j.id DESC"
	if opts.OldestFirst {
		order = "j.id ASC"
	}

	q := svc.db.
		NewSelect().
		Model(&jobs).
		Order(order)

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if len(opts.Statuses) > 0 {
		q = q.Where("j.status IN (?)", bun.In(opts.Statuses))
	}
	if opts.Type != nil {
		q = q.Where("j.type = ?", *opts.Type)
	}
	if opts.ProcessIDToExclude != nil {
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("j.process_id IS NULL").
				WhereOr("j.process_id != ?", *opts.ProcessIDToExclude)
		})
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	for _, job := range jobs {
		if err := job.UnmarshalData(); err != nil {
			return nil, 0, errors.WithStack(err)
		}
	}

	return jobs, total, nil
}

// HasActiveJobByType checks if there's a pending or in-progress job of the given type.
func (svc *Service) HasActiveJobByType(ctx context.Context, jobType string) (bool, error) {
	exists, err := svc.db.NewSelect().
		Model((*models.Job)(nil)).
		Where("type = ?", jobType).
		Where("status IN (?)", bun.In([]string{models.JobStatusPending, models.JobStatusInProgress})).
		Exists(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	return exists, nil
}

// ClaimJob moves a pending job to in_progress for processID. It reports false
// when another process got to it first.
func (svc *Service) ClaimJob(ctx context.Context, job *models.Job, processID string) (bool, error) {
	now := time.Now()
	res, err := svc.db.NewUpdate().
		Model((*models.Job)(nil)).
		Set("status = ?", models.JobStatusInProgress).
		Set("process_id = ?", processID).
		Set("updated_at = ?", now).
		Where("id = ?", job.ID).
		Where("status = ?", models.JobStatusPending).
		Exec(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	job.Status = models.JobStatusInProgress
	job.ProcessID = &processID
	job.UpdatedAt = now
	return true, nil
}

// RequeueAbandonedJobs puts in-progress jobs owned by other processes back to
// pending. It runs at worker startup, when no other worker shares the
// database.
func (svc *Service) RequeueAbandonedJobs(ctx context.Context, processID string) (int, error) {
	res, err := svc.db.NewUpdate().
		Model((*models.Job)(nil)).
		Set("status = ?", models.JobStatusPending).
		Set("process_id = NULL").
		Set("updated_at = ?", time.Now()).
		Where("status = ?", models.JobStatusInProgress).
		WhereGroup(" AND ", func(q *bun.UpdateQuery) *bun.UpdateQuery {
			return q.Where("process_id IS NULL").WhereOr("process_id != ?", processID)
		}).
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (svc *Service) UpdateJob(ctx context.Context, job *models.Job, opts UpdateJobOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	if hasColumn(opts.Columns, "data") && job.DataParsed != nil {
		if err := job.MarshalData(); err != nil {
			return err
		}
	}

	job.UpdatedAt = time.Now()
	columns := append([]string{}, opts.Columns...)
	columns = append(columns, "updated_at")

	res, err := svc.db.
		NewUpdate().
		Model(job).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("Job")
	}

	return nil
}

func hasColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}
