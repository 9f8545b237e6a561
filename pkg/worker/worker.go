package worker

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shishobooks/circulation/pkg/books"
	"github.com/shishobooks/circulation/pkg/clock"
	"github.com/shishobooks/circulation/pkg/config"
	"github.com/shishobooks/circulation/pkg/joblogs"
	"github.com/shishobooks/circulation/pkg/jobs"
	"github.com/shishobooks/circulation/pkg/ledger"
	"github.com/shishobooks/circulation/pkg/members"
	"github.com/shishobooks/circulation/pkg/models"
	"github.com/shishobooks/circulation/pkg/settings"
	"github.com/uptrace/bun"
)

type processFunc func(ctx context.Context, job *models.Job, jl *joblogs.JobLogger) error

type Worker struct {
	config    *config.Config
	log       logger.Logger
	db        *bun.DB
	processID string

	processFuncs map[string]processFunc

	bookService   *books.Service
	memberService *members.Service
	ledgerService *ledger.Service
	jobService    *jobs.Service
	jobLogService *joblogs.Service

	queue          chan *models.Job
	shutdown       chan struct{}
	doneFetching   chan struct{}
	doneProcessing chan struct{}
}

func New(cfg *config.Config, db *bun.DB, clk clock.Clock) *Worker {
	w := &Worker{
		config:    cfg,
		log:       logger.New(),
		db:        db,
		processID: randStringBytes(8),

		bookService:   books.NewService(db, clk),
		memberService: members.NewService(db),
		ledgerService: ledger.NewService(db, settings.NewService(db), clk),
		jobService:    jobs.NewService(db),
		jobLogService: joblogs.NewService(db),

		queue:          make(chan *models.Job, cfg.WorkerProcesses),
		shutdown:       make(chan struct{}),
		doneFetching:   make(chan struct{}),
		doneProcessing: make(chan struct{}, cfg.WorkerProcesses),
	}

	w.processFuncs = map[string]processFunc{
		models.JobTypeImportBooks:        w.ProcessImportBooksJob,
		models.JobTypeImportMembers:      w.ProcessImportMembersJob,
		models.JobTypeExportBooks:        w.ProcessExportBooksJob,
		models.JobTypeExportMembers:      w.ProcessExportMembersJob,
		models.JobTypeExportTransactions: w.ProcessExportTransactionsJob,
		models.JobTypeBackup:             w.ProcessBackupJob,
	}

	return w
}

func (w *Worker) Start() {
	n, err := w.jobService.RequeueAbandonedJobs(context.Background(), w.processID)
	if err != nil {
		w.log.Err(err).Error("requeue abandoned jobs error")
	} else if n > 0 {
		w.log.Info("requeued abandoned jobs", logger.Data{"count": n})
	}

	go w.fetchJobs()
	for i := 0; i < w.config.WorkerProcesses; i++ {
		go w.processJobs()
	}
}

func (w *Worker) fetchJobs() {
	duration := w.config.WorkerPollInterval
	timer := time.NewTimer(duration)

	for {
		select {
		case <-w.shutdown:
			// We're shutting down, so stop adding more jobs to the queue.
			w.doneFetching <- struct{}{}
			return
		case <-timer.C:
			j, err := w.jobService.ListJobs(context.Background(), jobs.ListJobsOptions{
				Limit:       pointerutil.Int(w.config.WorkerProcesses),
				Statuses:    []string{models.JobStatusPending},
				OldestFirst: true,
			})
			if err != nil {
				w.log.Err(err).Error("list jobs error")
				timer.Reset(duration)
				continue
			}
			for _, job := range j {
				select {
				case w.queue <- job:
				case <-w.shutdown:
					w.doneFetching <- struct{}{}
					return
				}
			}
			timer.Reset(duration)
		}
	}
}

func (w *Worker) processJobs() {
	for {
		select {
		case <-w.shutdown:
			w.doneProcessing <- struct{}{}
			return
		case job := <-w.queue:
			claimed, err := w.jobService.ClaimJob(context.Background(), job, w.processID)
			if err != nil {
				w.log.Err(err).Error("claim job error")
				continue
			}
			if !claimed {
				continue
			}
			w.Run(context.Background(), job)
		}
	}
}

// Run executes job in the calling goroutine and records the outcome on the
// job row. The admin CLI uses it directly; the pool calls it after claiming.
func (w *Worker) Run(ctx context.Context, job *models.Job) {
	id, err := uuid.NewRandom()
	if err != nil {
		w.log.Err(err).Error("new uuid error")
		return
	}
	log := w.log.ID(id.String()).Root(logger.Data{"job_id": job.ID, "type": job.Type, "process_id": w.processID})
	ctx = log.WithContext(ctx)
	jl := w.jobLogService.NewJobLogger(ctx, job.ID, log)

	if job.Status == models.JobStatusPending {
		claimed, err := w.jobService.ClaimJob(ctx, job, w.processID)
		if err != nil {
			log.Err(err).Error("claim job error")
			return
		}
		if !claimed {
			log.Info("job already claimed by another process")
			return
		}
	}

	if job.DataParsed == nil && job.Data != "" {
		if err := job.UnmarshalData(); err != nil {
			w.fail(ctx, job, jl, err)
			return
		}
	}

	fn, ok := w.processFuncs[job.Type]
	if !ok {
		w.fail(ctx, job, jl, errors.Errorf("no process function for job type %q", job.Type))
		return
	}

	start := time.Now()
	if err := w.safeProcess(ctx, fn, job, jl); err != nil {
		w.fail(ctx, job, jl, err)
		return
	}

	// Update job to be completed so that it's not picked up anymore.
	job.Status = models.JobStatusCompleted
	job.Progress = 100
	err = w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{
		Columns: []string{"status", "progress", "data"},
	})
	if err != nil {
		log.Err(err).Error("update job error")
		return
	}
	jl.Info("job completed", logger.Data{"duration": time.Since(start).String()})
}

func (w *Worker) safeProcess(ctx context.Context, fn processFunc, job *models.Job, jl *joblogs.JobLogger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("job panicked: %v", r)
		}
	}()
	return fn(ctx, job, jl)
}

func (w *Worker) fail(ctx context.Context, job *models.Job, jl *joblogs.JobLogger, cause error) {
	jl.Error("job failed", cause, nil)

	job.Status = models.JobStatusFailed
	job.Error = pointerutil.String(cause.Error())
	columns := []string{"status", "error"}
	if job.DataParsed != nil {
		columns = append(columns, "data")
	}
	if err := w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{Columns: columns}); err != nil {
		logger.FromContext(ctx).Err(err).Error("update job error")
	}
}

// reportProgress stores a percentage without failing the job on error.
func (w *Worker) reportProgress(ctx context.Context, job *models.Job, done, total int) {
	if total <= 0 {
		return
	}
	progress := done * 100 / total
	if progress == job.Progress {
		return
	}
	job.Progress = progress
	if err := w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{Columns: []string{"progress"}}); err != nil {
		logger.FromContext(ctx).Err(err).Warn("update job progress error")
	}
}

func (w *Worker) Shutdown() {
	close(w.shutdown)

	<-w.doneFetching
	for i := 0; i < w.config.WorkerProcesses; i++ {
		<-w.doneProcessing
	}
}

const letterBytes = "abcdef0123456789"

func randStringBytes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Intn(len(letterBytes))]
	}
	return string(b)
}
