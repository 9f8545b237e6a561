package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	JobTypeImportBooks        = "import_books"
	JobTypeImportMembers      = "import_members"
	JobTypeExportBooks        = "export_books"
	JobTypeExportMembers      = "export_members"
	JobTypeExportTransactions = "export_transactions"
	JobTypeBackup             = "backup"
)

type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID         int         `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Type       string      `bun:",nullzero" json:"type"`
	Status     string      `bun:",nullzero" json:"status"`
	Data       string      `bun:",nullzero" json:"-"`
	DataParsed interface{} `bun:"-" json:"data"`
	Progress   int         `json:"progress"`
	ProcessID  *string     `json:"process_id,omitempty"`
	Error      *string     `json:"error,omitempty"`
}

func (job *Job) UnmarshalData() error {
	switch job.Type {
	case JobTypeImportBooks, JobTypeImportMembers:
		job.DataParsed = &JobImportData{}
	case JobTypeExportBooks, JobTypeExportMembers, JobTypeExportTransactions:
		job.DataParsed = &JobExportData{}
	case JobTypeBackup:
		job.DataParsed = &JobBackupData{}
	default:
		return errors.Errorf("unknown job type %q", job.Type)
	}

	err := json.Unmarshal([]byte(job.Data), job.DataParsed)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// MarshalData serializes DataParsed into Data.
func (job *Job) MarshalData() error {
	b, err := json.Marshal(job.DataParsed)
	if err != nil {
		return errors.WithStack(err)
	}
	job.Data = string(b)
	return nil
}

type JobImportData struct {
	Path     string   `json:"path"`
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

type JobExportData struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

type JobBackupData struct {
	Path string `json:"path"`
}
