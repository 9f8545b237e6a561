package worker

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/circulation/pkg/books"
	"github.com/shishobooks/circulation/pkg/csvio"
	"github.com/shishobooks/circulation/pkg/database"
	"github.com/shishobooks/circulation/pkg/joblogs"
	"github.com/shishobooks/circulation/pkg/ledger"
	"github.com/shishobooks/circulation/pkg/members"
	"github.com/shishobooks/circulation/pkg/models"
)

func (w *Worker) ProcessExportBooksJob(ctx context.Context, job *models.Job, jl *joblogs.JobLogger) error {
	data, err := exportData(job)
	if err != nil {
		return err
	}

	list, err := w.bookService.ListBooks(ctx, books.ListBooksOptions{})
	if err != nil {
		return err
	}
	if err := writeFile(data.Path, func(out io.Writer) error { return csvio.WriteBooks(out, list) }); err != nil {
		return err
	}

	data.Rows = len(list)
	jl.Info("exported books", logger.Data{"path": data.Path, "rows": data.Rows})
	return nil
}

func (w *Worker) ProcessExportMembersJob(ctx context.Context, job *models.Job, jl *joblogs.JobLogger) error {
	data, err := exportData(job)
	if err != nil {
		return err
	}

	list, err := w.memberService.ListMembers(ctx, members.ListMembersOptions{})
	if err != nil {
		return err
	}
	if err := writeFile(data.Path, func(out io.Writer) error { return csvio.WriteMembers(out, list) }); err != nil {
		return err
	}

	data.Rows = len(list)
	jl.Info("exported members", logger.Data{"path": data.Path, "rows": data.Rows})
	return nil
}

func (w *Worker) ProcessExportTransactionsJob(ctx context.Context, job *models.Job, jl *joblogs.JobLogger) error {
	data, err := exportData(job)
	if err != nil {
		return err
	}

	list, err := w.ledgerService.ListTransactions(ctx, ledger.ListTransactionsOptions{})
	if err != nil {
		return err
	}
	if err := writeFile(data.Path, func(out io.Writer) error { return csvio.WriteTransactions(out, list) }); err != nil {
		return err
	}

	data.Rows = len(list)
	jl.Info("exported transactions", logger.Data{"path": data.Path, "rows": data.Rows})
	return nil
}

func (w *Worker) ProcessBackupJob(ctx context.Context, job *models.Job, jl *joblogs.JobLogger) error {
	data, ok := job.DataParsed.(*models.JobBackupData)
	if !ok || data.Path == "" {
		return errors.New("backup job has no file path")
	}
	if err := os.MkdirAll(filepath.Dir(data.Path), 0o755); err != nil {
		return errors.WithStack(err)
	}
	if _, err := os.Stat(data.Path); err == nil {
		return errors.Errorf("backup target %s already exists", data.Path)
	}

	if err := database.Backup(ctx, w.db, data.Path); err != nil {
		return err
	}

	jl.Info("database backed up", logger.Data{"path": data.Path})
	return nil
}

func exportData(job *models.Job) (*models.JobExportData, error) {
	data, ok := job.DataParsed.(*models.JobExportData)
	if !ok || data.Path == "" {
		return nil, errors.New("export job has no file path")
	}
	return data, nil
}

// writeFile writes through a temp file in the target directory and renames it
// into place, so a failed export never leaves a partial file behind.
func writeFile(path string, write func(out io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithStack(err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.WithStack(err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(tmp.Name(), path))
}
