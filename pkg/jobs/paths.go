package jobs

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shishobooks/circulation/pkg/errcodes"
	"github.com/shishobooks/circulation/pkg/models"
)

// ResolvePath maps a job's file name onto the export directory. Names must be
// plain file names; import jobs need one, the others get a timestamped
// default.
func ResolvePath(exportDir, jobType string, fileName *string, now time.Time) (string, error) {
	name := ""
	if fileName != nil {
		name = *fileName
	}

	if name == "" {
		switch jobType {
		case models.JobTypeImportBooks, models.JobTypeImportMembers:
			return "", errcodes.ValidationError("Import jobs need a file_name inside the export directory.")
		case models.JobTypeBackup:
			name = fmt.Sprintf("backup-%s.db", now.UTC().Format("20060102-150405"))
		default:
			name = fmt.Sprintf("%s-%s.csv", strings.TrimPrefix(jobType, "export_"), now.UTC().Format("20060102-150405"))
		}
	}

	if name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", errcodes.ValidationError("file_name must be a plain file name.")
	}

	return filepath.Join(exportDir, name), nil
}

// NewJobData builds the initial data payload for a job type.
func NewJobData(jobType, path string) interface{} {
	switch jobType {
	case models.JobTypeImportBooks, models.JobTypeImportMembers:
		return &models.JobImportData{Path: path}
	case models.JobTypeBackup:
		return &models.JobBackupData{Path: path}
	default:
		return &models.JobExportData{Path: path}
	}
}
