package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`
			INSERT INTO settings (key, value) VALUES
				('fine_rules', '{"student":{"daily_rate":5,"grace_period":0,"max_fine":500},"faculty":{"daily_rate":2,"grace_period":3,"max_fine":200},"public":{"daily_rate":10,"grace_period":0,"max_fine":1000}}'),
				('lending_periods', '{"student":14,"faculty":30,"public":7}')
`)
		if err != nil {
			return errors.WithStack(err)
		}

		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("DROP TABLE IF EXISTS settings")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
