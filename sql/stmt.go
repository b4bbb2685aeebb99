package sql

import (
	"context"
	"database/sql/driver"

	"github.com/kroma-labs/sqlevent/instrument"
)

// Compile-time interface checks.
var (
	_ driver.Stmt              = (*eventStmt)(nil)
	_ driver.StmtExecContext   = (*eventStmt)(nil)
	_ driver.StmtQueryContext  = (*eventStmt)(nil)
	_ driver.NamedValueChecker = (*eventStmt)(nil)
)

// eventStmt wraps a driver.Stmt with event instrumentation.
// It shares the call depth of the connection that prepared it.
type eventStmt struct {
	stmt  driver.Stmt
	conn  *eventConn
	query string
}

// newEventStmt creates a new instrumented statement.
func newEventStmt(stmt driver.Stmt, conn *eventConn, query string) *eventStmt {
	return &eventStmt{
		stmt:  stmt,
		conn:  conn,
		query: query,
	}
}

// Close implements driver.Stmt.
func (s *eventStmt) Close() error {
	return s.stmt.Close()
}

// NumInput implements driver.Stmt.
func (s *eventStmt) NumInput() int {
	return s.stmt.NumInput()
}

// Exec implements driver.Stmt.
// Deprecated: Use ExecContext instead. This exists for driver.Stmt interface compatibility.
func (s *eventStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), valueToNamedValue(args))
}

// Query implements driver.Stmt.
// Deprecated: Use QueryContext instead. This exists for driver.Stmt interface compatibility.
func (s *eventStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), valueToNamedValue(args))
}

// ExecContext implements driver.StmtExecContext.
func (s *eventStmt) ExecContext(
	ctx context.Context,
	args []driver.NamedValue,
) (driver.Result, error) {
	return instrument.Run(ctx, s.conn.w, newQuery(s.query, args),
		func(ctx context.Context) (driver.Result, error) {
			var result driver.Result
			var err error

			if execer, ok := s.stmt.(driver.StmtExecContext); ok {
				result, err = execer.ExecContext(ctx, args)
			} else {
				// Fallback to non-context version
				values := namedValueToValue(args)
				result, err = s.stmt.Exec(values) //nolint:staticcheck // Fallback for older drivers
			}

			if err != nil {
				return nil, err
			}
			recordResult(ctx, result)
			return result, nil
		},
	)
}

// QueryContext implements driver.StmtQueryContext.
func (s *eventStmt) QueryContext(
	ctx context.Context,
	args []driver.NamedValue,
) (driver.Rows, error) {
	return instrument.Run(ctx, s.conn.w, newQuery(s.query, args),
		func(ctx context.Context) (driver.Rows, error) {
			if queryer, ok := s.stmt.(driver.StmtQueryContext); ok {
				return queryer.QueryContext(ctx, args)
			}
			// Fallback to non-context version
			values := namedValueToValue(args)
			return s.stmt.Query(values) //nolint:staticcheck // Fallback for older drivers
		},
	)
}

// CheckNamedValue implements driver.NamedValueChecker.
func (s *eventStmt) CheckNamedValue(nv *driver.NamedValue) error {
	if checker, ok := s.stmt.(driver.NamedValueChecker); ok {
		return checker.CheckNamedValue(nv)
	}
	return s.conn.CheckNamedValue(nv)
}

// namedValueToValue converts NamedValue slice to Value slice.
func namedValueToValue(named []driver.NamedValue) []driver.Value {
	values := make([]driver.Value, len(named))
	for i, nv := range named {
		values[i] = nv.Value
	}
	return values
}

// valueToNamedValue converts Value slice to positional NamedValue slice.
func valueToNamedValue(values []driver.Value) []driver.NamedValue {
	named := make([]driver.NamedValue, len(values))
	for i, v := range values {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return named
}
