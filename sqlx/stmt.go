package sqlx

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/kroma-labs/sqlevent/instrument"
)

// Stmt wraps *sqlx.Stmt. Each execution produces one event.
type Stmt struct {
	*sqlx.Stmt
	query string
	cfg   *config

	// w is the wrapper of the connection the statement is bound to, or nil
	// for statements prepared on the pool.
	w *instrument.Wrapper
}

func (s *Stmt) wrapper() *instrument.Wrapper {
	if s.w != nil {
		return s.w
	}
	return s.cfg.inst.NewWrapper()
}

func (s *Stmt) newQuery(args []any) instrument.Query {
	return instrument.Query{SQL: s.query, Params: instrument.Args(args)}
}

// ExecContext executes the prepared statement.
func (s *Stmt) ExecContext(ctx context.Context, args ...any) (sql.Result, error) {
	return instrument.Run(ctx, s.wrapper(), s.newQuery(args), func(ctx context.Context) (sql.Result, error) {
		res, err := s.Stmt.ExecContext(ctx, unbind(args)...)
		if err == nil {
			recordRowsAffected(ctx, res)
		}
		return res, err
	})
}

// QueryxContext executes the prepared statement and returns sqlx.Rows.
func (s *Stmt) QueryxContext(ctx context.Context, args ...any) (*sqlx.Rows, error) {
	return instrument.Run(ctx, s.wrapper(), s.newQuery(args), func(ctx context.Context) (*sqlx.Rows, error) {
		return s.Stmt.QueryxContext(ctx, unbind(args)...)
	})
}

// QueryRowxContext executes the prepared statement and returns a single sqlx.Row.
func (s *Stmt) QueryRowxContext(ctx context.Context, args ...any) *sqlx.Row {
	row, _ := instrument.Run(ctx, s.wrapper(), s.newQuery(args), func(ctx context.Context) (*sqlx.Row, error) {
		row := s.Stmt.QueryRowxContext(ctx, unbind(args)...)
		return row, row.Err()
	})
	return row
}

// GetContext executes the prepared statement for a single row.
func (s *Stmt) GetContext(ctx context.Context, dest any, args ...any) error {
	return s.wrapper().Do(ctx, s.newQuery(args), func(ctx context.Context) error {
		return s.Stmt.GetContext(ctx, dest, unbind(args)...)
	})
}

// SelectContext executes the prepared statement and scans all rows into dest.
func (s *Stmt) SelectContext(ctx context.Context, dest any, args ...any) error {
	return s.wrapper().Do(ctx, s.newQuery(args), func(ctx context.Context) error {
		return s.Stmt.SelectContext(ctx, dest, unbind(args)...)
	})
}
