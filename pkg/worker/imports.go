package worker

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/circulation/pkg/csvio"
	"github.com/shishobooks/circulation/pkg/joblogs"
	"github.com/shishobooks/circulation/pkg/models"
)

// maxImportErrors caps how many row errors are kept on the job itself; the
// job log has all of them.
const maxImportErrors = 20

func (w *Worker) ProcessImportBooksJob(ctx context.Context, job *models.Job, jl *joblogs.JobLogger) error {
	data, err := importData(job)
	if err != nil {
		return err
	}

	f, err := os.Open(data.Path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", data.Path)
	}
	defer f.Close()

	rows, err := csvio.ReadBooks(f)
	if err != nil {
		return err
	}

	for i, row := range rows {
		err := row.Err
		if err == nil {
			err = w.bookService.CreateBook(ctx, row.Value)
		}
		recordRow(data, jl, row.Line, err)
		w.reportProgress(ctx, job, i+1, len(rows))
	}

	jl.Info("imported books", logger.Data{"imported": data.Imported, "failed": data.Failed})
	return nil
}

func (w *Worker) ProcessImportMembersJob(ctx context.Context, job *models.Job, jl *joblogs.JobLogger) error {
	data, err := importData(job)
	if err != nil {
		return err
	}

	f, err := os.Open(data.Path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", data.Path)
	}
	defer f.Close()

	rows, err := csvio.ReadMembers(f)
	if err != nil {
		return err
	}

	for i, row := range rows {
		err := row.Err
		if err == nil {
			err = w.memberService.CreateMember(ctx, row.Value)
		}
		recordRow(data, jl, row.Line, err)
		w.reportProgress(ctx, job, i+1, len(rows))
	}

	jl.Info("imported members", logger.Data{"imported": data.Imported, "failed": data.Failed})
	return nil
}

func importData(job *models.Job) (*models.JobImportData, error) {
	data, ok := job.DataParsed.(*models.JobImportData)
	if !ok || data.Path == "" {
		return nil, errors.New("import job has no file path")
	}
	data.Imported, data.Failed, data.Errors = 0, 0, nil
	return data, nil
}

func recordRow(data *models.JobImportData, jl *joblogs.JobLogger, line int, err error) {
	if err == nil {
		data.Imported++
		return
	}
	data.Failed++
	jl.RowFailed(line, err)
	if len(data.Errors) < maxImportErrors {
		data.Errors = append(data.Errors, fmt.Sprintf("line %d: %s", line, err.Error()))
	}
}
