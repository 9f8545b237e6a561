package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/circulation/pkg/auth"
	"github.com/shishobooks/circulation/pkg/clock"
	"github.com/shishobooks/circulation/pkg/config"
	"github.com/shishobooks/circulation/pkg/database"
	"github.com/shishobooks/circulation/pkg/jobs"
	"github.com/shishobooks/circulation/pkg/ledger"
	"github.com/shishobooks/circulation/pkg/migrations"
	"github.com/shishobooks/circulation/pkg/models"
	"github.com/shishobooks/circulation/pkg/settings"
	"github.com/shishobooks/circulation/pkg/worker"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
)

// app is what every command works with. It's built in Before so --help
// works without a database.
type app struct {
	cfg    *config.Config
	db     *bun.DB
	ledger *ledger.Service
	auth   *auth.Service
	jobs   *jobs.Service
	worker *worker.Worker
}

const appKey = "app"

func openApp(c *cli.Context) error {
	if c.Args().Len() == 0 || c.Bool("help") {
		return nil
	}

	cfg, err := config.New()
	if err != nil {
		return err
	}
	db, err := database.New(cfg)
	if err != nil {
		return err
	}
	if _, err := migrations.BringUpToDate(c.Context, db); err != nil {
		return err
	}

	clk := clock.System()
	settingsService := settings.NewService(db)
	c.App.Metadata = map[string]interface{}{appKey: &app{
		cfg:    cfg,
		db:     db,
		ledger: ledger.NewService(db, settingsService, clk),
		auth:   auth.NewService(settingsService, cfg.JWTSecret),
		jobs:   jobs.NewService(db),
		worker: worker.New(cfg, db, clk),
	}}
	return nil
}

func closeApp(c *cli.Context) error {
	a, ok := c.App.Metadata[appKey].(*app)
	if !ok {
		return nil
	}
	return errors.WithStack(a.db.Close())
}

func getApp(c *cli.Context) (*app, error) {
	a, ok := c.App.Metadata[appKey].(*app)
	if !ok {
		return nil, errors.New("database is not open")
	}
	return a, nil
}

// runJob records a job for the operation and runs it in this process, so CLI
// runs show up in the job history alongside ones started over HTTP.
func (a *app) runJob(c *cli.Context, jobType, path string) (*models.Job, error) {
	if path == "" {
		resolved, err := jobs.ResolvePath(a.cfg.ExportDir, jobType, nil, time.Now())
		if err != nil {
			return nil, err
		}
		path = resolved
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	active, err := a.jobs.HasActiveJobByType(c.Context, jobType)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, errors.Errorf("a %s job is already pending or running", jobType)
	}

	// Created in progress so a running server's worker never picks it up.
	job := &models.Job{
		Type:       jobType,
		Status:     models.JobStatusInProgress,
		DataParsed: jobs.NewJobData(jobType, abs),
	}
	if err := a.jobs.CreateJob(c.Context, job); err != nil {
		return nil, err
	}

	a.worker.Run(c.Context, job)

	job, err = a.jobs.RetrieveJob(c.Context, jobs.RetrieveJobOptions{ID: &job.ID})
	if err != nil {
		return nil, err
	}
	if job.Status == models.JobStatusFailed {
		msg := "unknown error"
		if job.Error != nil {
			msg = *job.Error
		}
		return job, errors.Errorf("job %d failed: %s", job.ID, msg)
	}
	return job, nil
}

func printf(c *cli.Context, format string, args ...interface{}) {
	fmt.Fprintf(c.App.Writer, format, args...)
}
