package database

import (
	"context"
	"database/sql/driver"
	"math/rand"
	"strings"
	"time"
)

const (
	backoffBase = 25 * time.Millisecond
	backoffCap  = time.Second
)

var busyMarkers = []string{
	"database is locked",
	"database table is locked",
	"SQLITE_BUSY",
	"SQLITE_LOCKED",
	"(5)",
	"(6)",
}

// isBusyError reports whether err is SQLite telling us another connection
// holds the lock. Both modernc.org/sqlite and mattn/go-sqlite3 only expose
// this through the message text.
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range busyMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsBusy reports whether err, once retries are spent, is still SQLite lock
// contention rather than a real failure.
func IsBusy(err error) bool {
	return isBusyError(err)
}

// withBusyRetry runs fn until it succeeds, fails with a non-busy error, the
// context is done, or maxRetries retries have been spent.
func withBusyRetry(ctx context.Context, maxRetries int, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !isBusyError(err) || attempt >= maxRetries {
			return err
		}

		delay := backoffBase << attempt
		if delay > backoffCap || delay <= 0 {
			delay = backoffCap
		}
		delay += time.Duration(rand.Int63n(int64(delay/4) + 1))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// dsnConnector adapts drivers that only implement driver.Driver.
type dsnConnector struct {
	driver driver.Driver
	dsn    string
}

func (dc *dsnConnector) Connect(_ context.Context) (driver.Conn, error) {
	return dc.driver.Open(dc.dsn)
}

func (dc *dsnConnector) Driver() driver.Driver {
	return dc.driver
}

// busyRetryConnector hands out connections whose statements retry on
// SQLITE_BUSY.
type busyRetryConnector struct {
	driver.Connector
	maxRetries int
}

func (bc *busyRetryConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := bc.Connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &busyRetryConn{conn: conn, maxRetries: bc.maxRetries}, nil
}

type busyRetryConn struct {
	conn       driver.Conn
	maxRetries int
}

func (c *busyRetryConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *busyRetryConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var (
		stmt driver.Stmt
		err  error
	)
	if pc, ok := c.conn.(driver.ConnPrepareContext); ok {
		stmt, err = pc.PrepareContext(ctx, query)
	} else {
		stmt, err = c.conn.Prepare(query)
	}
	if err != nil {
		return nil, err
	}
	return &busyRetryStmt{stmt: stmt, maxRetries: c.maxRetries}, nil
}

func (c *busyRetryConn) Close() error {
	return c.conn.Close()
}

func (c *busyRetryConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *busyRetryConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	var tx driver.Tx
	err := withBusyRetry(ctx, c.maxRetries, func() error {
		var err error
		if bt, ok := c.conn.(driver.ConnBeginTx); ok {
			tx, err = bt.BeginTx(ctx, opts)
		} else {
			tx, err = c.conn.Begin() //nolint:staticcheck // fallback for drivers without BeginTx
		}
		return err
	})
	return tx, err
}

func (c *busyRetryConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	ec, ok := c.conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	var res driver.Result
	err := withBusyRetry(ctx, c.maxRetries, func() error {
		var err error
		res, err = ec.ExecContext(ctx, query, args)
		return err
	})
	return res, err
}

func (c *busyRetryConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	qc, ok := c.conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	var rows driver.Rows
	err := withBusyRetry(ctx, c.maxRetries, func() error {
		var err error
		rows, err = qc.QueryContext(ctx, query, args)
		return err
	})
	return rows, err
}

func (c *busyRetryConn) Ping(ctx context.Context) error {
	if p, ok := c.conn.(driver.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (c *busyRetryConn) ResetSession(ctx context.Context) error {
	if r, ok := c.conn.(driver.SessionResetter); ok {
		return r.ResetSession(ctx)
	}
	return nil
}

func (c *busyRetryConn) IsValid() bool {
	if v, ok := c.conn.(driver.Validator); ok {
		return v.IsValid()
	}
	return true
}

type busyRetryStmt struct {
	stmt       driver.Stmt
	maxRetries int
}

func (s *busyRetryStmt) Close() error  { return s.stmt.Close() }
func (s *busyRetryStmt) NumInput() int { return s.stmt.NumInput() }

func (s *busyRetryStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), namedValues(args))
}

func (s *busyRetryStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), namedValues(args))
}

func (s *busyRetryStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	var res driver.Result
	err := withBusyRetry(ctx, s.maxRetries, func() error {
		var err error
		if ec, ok := s.stmt.(driver.StmtExecContext); ok {
			res, err = ec.ExecContext(ctx, args)
		} else {
			res, err = s.stmt.Exec(plainValues(args)) //nolint:staticcheck // fallback for old drivers
		}
		return err
	})
	return res, err
}

func (s *busyRetryStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	var rows driver.Rows
	err := withBusyRetry(ctx, s.maxRetries, func() error {
		var err error
		if qc, ok := s.stmt.(driver.StmtQueryContext); ok {
			rows, err = qc.QueryContext(ctx, args)
		} else {
			rows, err = s.stmt.Query(plainValues(args)) //nolint:staticcheck // fallback for old drivers
		}
		return err
	})
	return rows, err
}

func namedValues(args []driver.Value) []driver.NamedValue {
	named := make([]driver.NamedValue, len(args))
	for i, v := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return named
}

func plainValues(args []driver.NamedValue) []driver.Value {
	values := make([]driver.Value, len(args))
	for i, arg := range args {
		values[i] = arg.Value
	}
	return values
}
