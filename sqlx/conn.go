package sqlx

import (
	"context"
	"database/sql"
	"io"

	"github.com/jmoiron/sqlx"

	"github.com/kroma-labs/sqlevent/instrument"
)

// Adapter is the ORM-style query surface: raw execution plus one entry
// point per query shape. Every call produces one event.
type Adapter interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	ExecQuery(ctx context.Context, query, name string, binds ...instrument.Param) (*Result, error)
	ExecInsert(ctx context.Context, query, name string, binds ...instrument.Param) (sql.Result, error)
	ExecUpdate(ctx context.Context, query, name string, binds ...instrument.Param) (int64, error)
	ExecDelete(ctx context.Context, query, name string, binds ...instrument.Param) (int64, error)
}

// Compile-time interface checks.
var (
	_ Adapter         = (*Conn)(nil)
	_ sqlx.ExtContext = (*Conn)(nil)
	_ Adapter         = (*DB)(nil)
	_ sqlx.ExtContext = (*DB)(nil)
	_ Adapter         = (*Tx)(nil)
	_ sqlx.ExtContext = (*Tx)(nil)
)

// session is the part of *sqlx.DB, *sqlx.Conn and *sqlx.Tx a Conn delegates to.
type session interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
	PreparexContext(ctx context.Context, query string) (*sqlx.Stmt, error)
}

// Result is a materialized result set returned by ExecQuery.
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// Len returns the number of rows.
func (r *Result) Len() int {
	return len(r.Rows)
}

// Conn is one logical connection with its own call depth: a pooled
// session, a pinned connection or a transaction.
//
// Convenience methods delegate to the lower-level ones on the same Conn,
// so each logical call still yields exactly one event. A Conn must not be
// shared by concurrent calls; DB hands out a fresh session per call.
type Conn struct {
	ext        session
	driverName string
	w          *instrument.Wrapper
	cfg        *config
	closer     io.Closer

	// pooled sessions span many connections, so statements prepared on
	// them get a fresh wrapper per call.
	pooled bool
}

func newConn(ext session, driverName string, cfg *config) *Conn {
	return &Conn{
		ext:        ext,
		driverName: driverName,
		w:          cfg.inst.NewWrapper(),
		cfg:        cfg,
	}
}

// DriverName returns the driver name used to pick the bind type.
func (c *Conn) DriverName() string {
	return c.driverName
}

// Rebind transforms a query from QUESTION to the driver's bindvar type.
func (c *Conn) Rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(c.driverName), query)
}

// BindNamed binds a named query to a map or struct.
func (c *Conn) BindNamed(query string, arg any) (string, []any, error) {
	return sqlx.BindNamed(sqlx.BindType(c.driverName), query, arg)
}

// Close releases a pinned connection. It is a no-op for pooled sessions
// and transactions.
func (c *Conn) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// ExecContext executes a query without returning rows.
// instrument.Param arguments are recorded by name and sent as plain values.
func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	q := instrument.Query{SQL: query, Params: instrument.Args(args)}
	return instrument.Run(ctx, c.w, q, func(ctx context.Context) (sql.Result, error) {
		return c.ext.ExecContext(ctx, query, unbind(args)...)
	})
}

// QueryContext executes a query and returns rows.
func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	q := instrument.Query{SQL: query, Params: instrument.Args(args)}
	return instrument.Run(ctx, c.w, q, func(ctx context.Context) (*sql.Rows, error) {
		return c.ext.QueryContext(ctx, query, unbind(args)...)
	})
}

// QueryxContext executes a query and returns sqlx.Rows.
func (c *Conn) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	q := instrument.Query{SQL: query, Params: instrument.Args(args)}
	return instrument.Run(ctx, c.w, q, func(ctx context.Context) (*sqlx.Rows, error) {
		return c.ext.QueryxContext(ctx, query, unbind(args)...)
	})
}

// QueryRowxContext executes a query and returns a single sqlx.Row.
// Only errors known before Scan are recorded.
func (c *Conn) QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row {
	q := instrument.Query{SQL: query, Params: instrument.Args(args)}
	row, _ := instrument.Run(ctx, c.w, q, func(ctx context.Context) (*sqlx.Row, error) {
		row := c.ext.QueryRowxContext(ctx, query, unbind(args)...)
		return row, row.Err()
	})
	return row
}

// GetContext executes a query expected to return at most one row and
// scans it into dest.
func (c *Conn) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	q := instrument.Query{SQL: query, Params: instrument.Args(args)}
	return c.w.Do(ctx, q, func(ctx context.Context) error {
		return sqlx.GetContext(ctx, c, dest, query, args...)
	})
}

// SelectContext executes a query and scans all rows into dest.
func (c *Conn) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	q := instrument.Query{SQL: query, Params: instrument.Args(args)}
	return c.w.Do(ctx, q, func(ctx context.Context) error {
		return sqlx.SelectContext(ctx, c, dest, query, args...)
	})
}

// NamedExecContext executes a named query. Parameters are recorded under
// their :name.
//
// Example:
//
//	conn.NamedExecContext(ctx,
//	    "INSERT INTO animals (name, species) VALUES (:name, :species)",
//	    Animal{Name: "Max", Species: "Lion"},
//	)
func (c *Conn) NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error) {
	q := instrument.Query{SQL: query}
	if _, args, err := c.BindNamed(query, arg); err == nil {
		q.Params = namedParams(query, args)
	}

	return instrument.Run(ctx, c.w, q, func(ctx context.Context) (sql.Result, error) {
		return sqlx.NamedExecContext(ctx, c, query, arg)
	})
}

// ExecQuery runs a query and materializes its rows.
// name labels the event; an empty name falls back to the SQL verb.
//
// Example:
//
//	res, err := conn.ExecQuery(ctx,
//	    "SELECT name, species FROM animals WHERE species = $1", "Animal Load",
//	    instrument.Bind{Column: "species", Value: "Lion"},
//	)
func (c *Conn) ExecQuery(ctx context.Context, query, name string, binds ...instrument.Param) (*Result, error) {
	q := instrument.Query{SQL: query, Name: name, Params: binds}
	return instrument.Run(ctx, c.w, q, func(ctx context.Context) (*Result, error) {
		rows, err := c.QueryxContext(ctx, query, instrument.Values(binds)...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		res, err := collect(rows)
		if err != nil {
			return nil, err
		}
		instrument.AddField(ctx, instrument.FieldRowsReturned, res.Len())
		return res, nil
	})
}

// ExecInsert runs an INSERT and returns the driver result. The last insert
// id is recorded when the driver supports it.
func (c *Conn) ExecInsert(ctx context.Context, query, name string, binds ...instrument.Param) (sql.Result, error) {
	q := instrument.Query{SQL: query, Name: name, Params: binds}
	return instrument.Run(ctx, c.w, q, func(ctx context.Context) (sql.Result, error) {
		res, err := c.ExecContext(ctx, query, instrument.Values(binds)...)
		if err != nil {
			return nil, err
		}
		if id, err := res.LastInsertId(); err == nil {
			instrument.AddField(ctx, instrument.FieldLastInsertID, id)
		}
		recordRowsAffected(ctx, res)
		return res, nil
	})
}

// ExecUpdate runs an UPDATE and returns the number of affected rows.
func (c *Conn) ExecUpdate(ctx context.Context, query, name string, binds ...instrument.Param) (int64, error) {
	return c.execAffected(ctx, instrument.Query{SQL: query, Name: name, Params: binds})
}

// ExecDelete runs a DELETE and returns the number of affected rows.
func (c *Conn) ExecDelete(ctx context.Context, query, name string, binds ...instrument.Param) (int64, error) {
	return c.execAffected(ctx, instrument.Query{SQL: query, Name: name, Params: binds})
}

func (c *Conn) execAffected(ctx context.Context, q instrument.Query) (int64, error) {
	return instrument.Run(ctx, c.w, q, func(ctx context.Context) (int64, error) {
		res, err := c.ExecContext(ctx, q.SQL, instrument.Values(q.Params)...)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		instrument.AddField(ctx, instrument.FieldRowsAffected, n)
		return n, nil
	})
}

// PreparexContext prepares a statement on this connection.
func (c *Conn) PreparexContext(ctx context.Context, query string) (*Stmt, error) {
	stmt, err := c.ext.PreparexContext(ctx, query)
	if err != nil {
		return nil, err
	}

	s := &Stmt{Stmt: stmt, query: query, cfg: c.cfg}
	if !c.pooled {
		s.w = c.w
	}
	return s, nil
}

// collect reads all rows into a Result.
func collect(rows *sqlx.Rows) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &Result{Columns: columns}
	for rows.Next() {
		row := make(map[string]any, len(columns))
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		res.Rows = append(res.Rows, row)
	}
	return res, rows.Err()
}

func recordRowsAffected(ctx context.Context, res sql.Result) {
	if n, err := res.RowsAffected(); err == nil {
		instrument.AddField(ctx, instrument.FieldRowsAffected, n)
	}
}

// unbind replaces instrument.Param arguments with their values.
func unbind(args []any) []any {
	var out []any
	for i, arg := range args {
		p, ok := arg.(instrument.Param)
		if !ok {
			continue
		}
		if out == nil {
			out = make([]any, len(args))
			copy(out, args)
		}
		out[i] = p.ParamValue()
	}
	if out == nil {
		return args
	}
	return out
}
