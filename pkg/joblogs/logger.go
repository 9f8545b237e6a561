package joblogs

import (
	"context"

	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/circulation/pkg/models"
)

const maxDataValueLen = 1024

// JobLogger writes to the process log and to the job's persisted log, so
// operators can see per-row import failures through the API.
type JobLogger struct {
	jobID   int
	service *Service
	log     logger.Logger
	ctx     context.Context
}

// NewJobLogger creates a new JobLogger for a specific job.
func (svc *Service) NewJobLogger(ctx context.Context, jobID int, log logger.Logger) *JobLogger {
	return &JobLogger{
		jobID:   jobID,
		service: svc,
		log:     log.Data(logger.Data{"job_id": jobID}),
		ctx:     ctx,
	}
}

func (l *JobLogger) Info(msg string, data logger.Data) {
	l.log.Info(msg, data)
	l.persist(models.JobLogLevelInfo, msg, nil, data)
}

func (l *JobLogger) Warn(msg string, data logger.Data) {
	l.log.Warn(msg, data)
	l.persist(models.JobLogLevelWarn, msg, nil, data)
}

// RowFailed records a CSV row that could not be imported.
func (l *JobLogger) RowFailed(line int, err error) {
	l.log.Err(err).Warn("row failed", logger.Data{"line": line})
	l.persist(models.JobLogLevelWarn, err.Error(), &line, nil)
}

func (l *JobLogger) Error(msg string, err error, data logger.Data) {
	l.log.Err(err).Error(msg, data)
	if data == nil {
		data = logger.Data{}
	}
	if err != nil {
		data["error"] = err.Error()
	}
	l.persist(models.JobLogLevelError, msg, nil, data)
}

func (l *JobLogger) persist(level, msg string, line *int, data logger.Data) {
	var dataStr *string
	if len(data) > 0 {
		truncated := make(logger.Data, len(data))
		for k, v := range data {
			if s, ok := v.(string); ok && len(s) > maxDataValueLen {
				truncated[k] = truncateMiddle(s, maxDataValueLen)
			} else {
				truncated[k] = v
			}
		}
		if b, err := json.Marshal(truncated); err == nil {
			s := string(b)
			dataStr = &s
		}
	}

	jobLog := &models.JobLog{
		JobID:   l.jobID,
		Level:   level,
		Message: msg,
		Line:    line,
		Data:    dataStr,
	}

	if err := l.service.CreateJobLog(l.ctx, jobLog); err != nil {
		l.log.Err(err).Warn("failed to persist job log")
	}
}

func truncateMiddle(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	half := (maxLen - 5) / 2
	return s[:half] + " ... " + s[len(s)-half:]
}
