package sql

import (
	"context"
	"database/sql/driver"
	"errors"

	"github.com/kroma-labs/sqlevent/instrument"
)

// Compile-time interface checks.
var (
	_ driver.Conn               = (*eventConn)(nil)
	_ driver.ConnPrepareContext = (*eventConn)(nil)
	_ driver.ConnBeginTx        = (*eventConn)(nil)
	_ driver.ExecerContext      = (*eventConn)(nil)
	_ driver.QueryerContext     = (*eventConn)(nil)
	_ driver.Pinger             = (*eventConn)(nil)
	_ driver.SessionResetter    = (*eventConn)(nil)
	_ driver.Validator          = (*eventConn)(nil)
	_ driver.NamedValueChecker  = (*eventConn)(nil)
)

// eventConn wraps a driver.Conn with event instrumentation.
// database/sql never uses a driver connection concurrently, so one
// wrapper (and its call depth) per connection is enough.
type eventConn struct {
	conn driver.Conn
	cfg  *config
	w    *instrument.Wrapper
}

// newEventConn creates a new instrumented connection.
func newEventConn(conn driver.Conn, cfg *config) *eventConn {
	return &eventConn{
		conn: conn,
		cfg:  cfg,
		w:    cfg.inst.NewWrapper(),
	}
}

// Prepare implements driver.Conn.
func (c *eventConn) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return newEventStmt(stmt, c, query), nil
}

// Close implements driver.Conn.
func (c *eventConn) Close() error {
	return c.conn.Close()
}

// Begin implements driver.Conn.
// Deprecated: Use BeginTx instead. This exists for driver.Conn interface compatibility.
func (c *eventConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// PrepareContext implements driver.ConnPrepareContext.
func (c *eventConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var stmt driver.Stmt
	var err error

	if preparer, ok := c.conn.(driver.ConnPrepareContext); ok {
		stmt, err = preparer.PrepareContext(ctx, query)
	} else {
		stmt, err = c.conn.Prepare(query)
	}

	if err != nil {
		return nil, err
	}
	return newEventStmt(stmt, c, query), nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *eventConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	tx, err := instrument.Run(ctx, c.w, instrument.Query{SQL: "BEGIN"},
		func(ctx context.Context) (driver.Tx, error) {
			if beginner, ok := c.conn.(driver.ConnBeginTx); ok {
				return beginner.BeginTx(ctx, opts)
			}
			return c.conn.Begin() //nolint:staticcheck // Fallback for older drivers
		},
	)
	if err != nil {
		return nil, err
	}

	return newEventTx(ctx, tx, c), nil
}

// ExecContext implements driver.ExecerContext.
//
// Drivers without ExecerContext, or that answer driver.ErrSkip, are served
// by preparing the statement on this connection; the nested statement call
// does not produce a second event.
func (c *eventConn) ExecContext(
	ctx context.Context,
	query string,
	args []driver.NamedValue,
) (driver.Result, error) {
	return instrument.Run(ctx, c.w, newQuery(query, args),
		func(ctx context.Context) (driver.Result, error) {
			if execer, ok := c.conn.(driver.ExecerContext); ok {
				result, err := execer.ExecContext(ctx, query, args)
				if !errors.Is(err, driver.ErrSkip) {
					if err == nil {
						recordResult(ctx, result)
					}
					return result, err
				}
			}
			return c.execPrepared(ctx, query, args)
		},
	)
}

// QueryContext implements driver.QueryerContext.
func (c *eventConn) QueryContext(
	ctx context.Context,
	query string,
	args []driver.NamedValue,
) (driver.Rows, error) {
	return instrument.Run(ctx, c.w, newQuery(query, args),
		func(ctx context.Context) (driver.Rows, error) {
			if queryer, ok := c.conn.(driver.QueryerContext); ok {
				rows, err := queryer.QueryContext(ctx, query, args)
				if !errors.Is(err, driver.ErrSkip) {
					return rows, err
				}
			}
			return c.queryPrepared(ctx, query, args)
		},
	)
}

func (c *eventConn) execPrepared(
	ctx context.Context,
	query string,
	args []driver.NamedValue,
) (driver.Result, error) {
	stmt, err := c.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	return stmt.(*eventStmt).ExecContext(ctx, args)
}

func (c *eventConn) queryPrepared(
	ctx context.Context,
	query string,
	args []driver.NamedValue,
) (driver.Rows, error) {
	stmt, err := c.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.(*eventStmt).QueryContext(ctx, args)
	if err != nil {
		_ = stmt.Close()
		return nil, err
	}
	return &stmtRows{Rows: rows, stmt: stmt}, nil
}

// Ping implements driver.Pinger.
func (c *eventConn) Ping(ctx context.Context) error {
	if pinger, ok := c.conn.(driver.Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

// ResetSession implements driver.SessionResetter.
func (c *eventConn) ResetSession(ctx context.Context) error {
	if resetter, ok := c.conn.(driver.SessionResetter); ok {
		return resetter.ResetSession(ctx)
	}
	return nil
}

// IsValid implements driver.Validator.
func (c *eventConn) IsValid() bool {
	if validator, ok := c.conn.(driver.Validator); ok {
		return validator.IsValid()
	}
	return true
}

// CheckNamedValue implements driver.NamedValueChecker.
func (c *eventConn) CheckNamedValue(nv *driver.NamedValue) error {
	if checker, ok := c.conn.(driver.NamedValueChecker); ok {
		return checker.CheckNamedValue(nv)
	}
	return driver.ErrSkip
}

// newQuery describes a statement and its arguments for the event.
func newQuery(query string, args []driver.NamedValue) instrument.Query {
	return instrument.Query{SQL: query, Params: instrument.NamedValues(args)}
}

// recordResult adds the affected row count to the in-flight event.
func recordResult(ctx context.Context, result driver.Result) {
	if result == nil {
		return
	}
	if n, err := result.RowsAffected(); err == nil {
		instrument.AddField(ctx, instrument.FieldRowsAffected, n)
	}
}

// stmtRows closes the statement prepared for a query once its rows are closed.
type stmtRows struct {
	driver.Rows
	stmt driver.Stmt
}

func (r *stmtRows) Close() error {
	err := r.Rows.Close()
	if stmtErr := r.stmt.Close(); err == nil {
		err = stmtErr
	}
	return err
}
