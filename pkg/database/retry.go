package database

import (
	"context"
	"database/sql/driver"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// busyRetrier reruns an operation while SQLite reports the database as busy
// or locked, backing off exponentially with jitter between attempts.
type busyRetrier struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	clock      clockwork.Clock
}

func newBusyRetrier(maxRetries int) busyRetrier {
	return busyRetrier{
		maxRetries: maxRetries,
		baseDelay:  50 * time.Millisecond,
		maxDelay:   2 * time.Second,
		clock:      clockwork.NewRealClock(),
	}
}

// isBusyError matches the busy/locked errors of both the cgo and the pure-Go
// SQLite drivers.
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, needle := range []string{
		"database is locked",
		"database table is locked",
		"SQLITE_BUSY",
		"SQLITE_LOCKED",
		"(5)",
		"(6)",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

func (r busyRetrier) delay(attempt int) time.Duration {
	d := r.baseDelay << attempt
	if d <= 0 || d > r.maxDelay {
		return r.maxDelay
	}
	if quarter := int64(d / 4); quarter > 0 {
		d += time.Duration(rand.Int64N(quarter))
	}
	if d > r.maxDelay {
		d = r.maxDelay
	}
	return d
}

func (r busyRetrier) do(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !isBusyError(err) || attempt >= r.maxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clock.After(r.delay(attempt)):
		}
	}
}

// busyConnector hands out connections whose statements go through a
// busyRetrier.
type busyConnector struct {
	driver.Connector
	retrier busyRetrier
}

func (bc *busyConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := bc.Connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &busyConn{Conn: conn, retrier: bc.retrier}, nil
}

type busyConn struct {
	driver.Conn
	retrier busyRetrier
}

func (c *busyConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *busyConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var (
		stmt driver.Stmt
		err  error
	)
	if p, ok := c.Conn.(driver.ConnPrepareContext); ok {
		stmt, err = p.PrepareContext(ctx, query)
	} else {
		stmt, err = c.Conn.Prepare(query)
	}
	if err != nil {
		return nil, err
	}
	return &busyStmt{Stmt: stmt, retrier: c.retrier}, nil
}

func (c *busyConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *busyConn) BeginTx(ctx context.Context, opts driver.TxOptions) (tx driver.Tx, err error) {
	err = c.retrier.do(ctx, func() error {
		var innerErr error
		if b, ok := c.Conn.(driver.ConnBeginTx); ok {
			tx, innerErr = b.BeginTx(ctx, opts)
		} else {
			tx, innerErr = c.Conn.Begin() //nolint:staticcheck // required by driver.Conn
		}
		return innerErr
	})
	return tx, err
}

func (c *busyConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (res driver.Result, err error) {
	execer, ok := c.Conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	err = c.retrier.do(ctx, func() error {
		var innerErr error
		res, innerErr = execer.ExecContext(ctx, query, args)
		return innerErr
	})
	return res, err
}

func (c *busyConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (rows driver.Rows, err error) {
	queryer, ok := c.Conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	err = c.retrier.do(ctx, func() error {
		var innerErr error
		rows, innerErr = queryer.QueryContext(ctx, query, args)
		return innerErr
	})
	return rows, err
}

func (c *busyConn) Ping(ctx context.Context) error {
	if p, ok := c.Conn.(driver.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (c *busyConn) ResetSession(ctx context.Context) error {
	if r, ok := c.Conn.(driver.SessionResetter); ok {
		return r.ResetSession(ctx)
	}
	return nil
}

func (c *busyConn) IsValid() bool {
	if v, ok := c.Conn.(driver.Validator); ok {
		return v.IsValid()
	}
	return true
}

type busyStmt struct {
	driver.Stmt
	retrier busyRetrier
}

func (s *busyStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), namedValues(args))
}

func (s *busyStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), namedValues(args))
}

func (s *busyStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (res driver.Result, err error) {
	err = s.retrier.do(ctx, func() error {
		var innerErr error
		if e, ok := s.Stmt.(driver.StmtExecContext); ok {
			res, innerErr = e.ExecContext(ctx, args)
		} else {
			res, innerErr = s.Stmt.Exec(plainValues(args)) //nolint:staticcheck // required by driver.Stmt
		}
		return innerErr
	})
	return res, err
}

func (s *busyStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (rows driver.Rows, err error) {
	err = s.retrier.do(ctx, func() error {
		var innerErr error
		if q, ok := s.Stmt.(driver.StmtQueryContext); ok {
			rows, innerErr = q.QueryContext(ctx, args)
		} else {
			rows, innerErr = s.Stmt.Query(plainValues(args)) //nolint:staticcheck // required by driver.Stmt
		}
		return innerErr
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
