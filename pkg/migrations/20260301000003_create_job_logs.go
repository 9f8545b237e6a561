package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE job_logs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				job_id INTEGER REFERENCES jobs (id) ON DELETE CASCADE NOT NULL,
				level TEXT NOT NULL CHECK (level IN ('info', 'warn', 'error')),
				message TEXT NOT NULL,
				line INTEGER,
				data TEXT
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_job_logs_job_id ON job_logs (job_id)`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("DROP TABLE IF EXISTS job_logs")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
