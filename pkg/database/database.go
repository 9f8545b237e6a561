package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/circulation/pkg/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type key int

const ctxKey key = 0

func WithLogging(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey, true)
}

type logQueryHook struct {
	log logger.Logger
}

func (*logQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (qh *logQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	enabled, ok := ctx.Value(ctxKey).(bool)
	if !ok || !enabled {
		return
	}

	qh.log.Debug(event.Query, logger.Data{"duration_ms": time.Since(event.StartTime).Milliseconds()})
}

// New opens the SQLite store. All access goes through a single connection so
// that every bun transaction is also the only writer in flight; lend and
// return depend on that to check and adjust copy counts atomically.
func New(cfg *config.Config) (*bun.DB, error) {
	var (
		connector driver.Connector
		err       error
	)
	drv := sqliteshim.Driver()
	if dc, ok := drv.(driver.DriverContext); ok {
		connector, err = dc.OpenConnector(cfg.DatabaseFilePath)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	} else {
		connector = &dsnConnector{driver: drv, dsn: cfg.DatabaseFilePath}
	}

	sqldb := sql.OpenDB(&busyRetryConnector{Connector: connector, maxRetries: cfg.DatabaseMaxRetries})
	sqldb.SetMaxOpenConns(1)
	sqldb.SetConnMaxLifetime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if cfg.DatabaseDebug {
		db.AddQueryHook(&logQueryHook{logger.NewWithLevel("debug")})
	}

	for i := 0; i < cfg.DatabaseConnectRetryCount; i++ {
		_, err = db.Exec("SELECT 1")
		if err == nil {
			break
		}
		time.Sleep(cfg.DatabaseConnectRetryDelay)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := configure(db, cfg); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func configure(db *bun.DB, cfg *config.Config) error {
	if cfg.DatabaseFilePath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return errors.Wrap(err, "failed to enable WAL mode")
		}
	}

	if _, err := db.Exec("PRAGMA busy_timeout=?", cfg.DatabaseBusyTimeout.Milliseconds()); err != nil {
		return errors.Wrap(err, "failed to set busy_timeout")
	}

	// Transactions cascade with their book or member.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return errors.Wrap(err, "failed to enable foreign keys")
	}

	return nil
}

// Backup writes a consistent copy of the database to path.
func Backup(ctx context.Context, db bun.IDB, path string) error {
	_, err := db.ExecContext(ctx, "VACUUM INTO ?", path)
	return errors.Wrapf(err, "failed to back up database to %s", path)
}

var (
	uniqueRE = regexp.MustCompile(`UNIQUE constraint failed: ([a-z_]+)\.([a-z_]+)`)
	checkRE  = regexp.MustCompile(`CHECK constraint failed: ?([a-z_]*)`)
)

// UniqueViolation reports the table and column of a unique-index collision,
// if err is one.
func UniqueViolation(err error) (table, column string, ok bool) {
	if err == nil {
		return "", "", false
	}
	m := uniqueRE.FindStringSubmatch(err.Error())
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// CheckViolation reports whether err is a CHECK constraint failure and, when
// the driver includes it, the name of the failed constraint.
func CheckViolation(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	m := checkRE.FindStringSubmatch(err.Error())
	if m == nil {
		return "", false
	}
	return m[1], true
}
