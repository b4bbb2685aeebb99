package sqlx

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/kroma-labs/sqlevent/instrument"
)

// DB wraps *sqlx.DB with event instrumentation.
//
// Every query method runs on a fresh session, so concurrent callers never
// share a call depth. Methods of the embedded *sqlx.DB that DB does not
// override run uninstrumented.
type DB struct {
	*sqlx.DB
	cfg *config
}

// Open opens a database with event instrumentation.
//
// Example:
//
//	db, err := sqleventx.Open("postgres", dsn,
//	    sqleventx.WithClient(client),
//	    sqleventx.WithDBSystem("postgresql"),
//	    sqleventx.WithDBName("mydb"),
//	)
func Open(driverName, dsn string, opts ...Option) (*DB, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	cfg.Logger.Debug().
		Str("driver", driverName).
		Str("db.system", cfg.DBSystem).
		Msg("opened instrumented sqlx database")

	return &DB{DB: db, cfg: cfg}, nil
}

// Connect opens and verifies a database connection.
// It is equivalent to Open followed by Ping.
//
// Example:
//
//	db, err := sqleventx.Connect(ctx, "postgres", dsn,
//	    sqleventx.WithClient(client),
//	    sqleventx.WithDBSystem("postgresql"),
//	)
func Connect(ctx context.Context, driverName, dsn string, opts ...Option) (*DB, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, err
	}

	return &DB{DB: db, cfg: cfg}, nil
}

// NewDB wraps an existing *sql.DB with sqlx and instrumentation.
// db should not itself be opened through the sql package, or every query
// is reported twice.
//
// Example:
//
//	sqlDB, _ := sql.Open("postgres", dsn)
//	db, err := sqleventx.NewDB(sqlDB, "postgres",
//	    sqleventx.WithClient(client),
//	)
func NewDB(db *sql.DB, driverName string, opts ...Option) (*DB, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &DB{
		DB:  sqlx.NewDb(db, driverName),
		cfg: cfg,
	}, nil
}

// MustConnect is like Connect but panics on error.
func MustConnect(ctx context.Context, driverName, dsn string, opts ...Option) *DB {
	db, err := Connect(ctx, driverName, dsn, opts...)
	if err != nil {
		panic(err)
	}
	return db
}

// MustOpen is like Open but panics on error.
func MustOpen(driverName, dsn string, opts ...Option) *DB {
	db, err := Open(driverName, dsn, opts...)
	if err != nil {
		panic(err)
	}
	return db
}

// session returns a Conn over the pool for a single logical call.
func (db *DB) session() *Conn {
	c := newConn(db.DB, db.DB.DriverName(), db.cfg)
	c.pooled = true
	return c
}

// Conn pins a single connection from the pool. Calls on the returned Conn
// share one call depth; Close returns the connection to the pool.
func (db *DB) Conn(ctx context.Context) (*Conn, error) {
	conn, err := db.DB.Connx(ctx)
	if err != nil {
		return nil, err
	}

	c := newConn(conn, db.DB.DriverName(), db.cfg)
	c.closer = conn
	return c, nil
}

// ExecContext executes a query without returning rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.session().ExecContext(ctx, query, args...)
}

// Exec executes a query without returning rows.
func (db *DB) Exec(query string, args ...any) (sql.Result, error) {
	return db.ExecContext(context.Background(), query, args...)
}

// QueryContext executes a query and returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.session().QueryContext(ctx, query, args...)
}

// Query executes a query and returns rows.
func (db *DB) Query(query string, args ...any) (*sql.Rows, error) {
	return db.QueryContext(context.Background(), query, args...)
}

// QueryxContext executes a query and returns sqlx.Rows.
func (db *DB) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	return db.session().QueryxContext(ctx, query, args...)
}

// Queryx executes a query and returns sqlx.Rows.
func (db *DB) Queryx(query string, args ...any) (*sqlx.Rows, error) {
	return db.QueryxContext(context.Background(), query, args...)
}

// QueryRowxContext executes a query and returns a single sqlx.Row.
func (db *DB) QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row {
	return db.session().QueryRowxContext(ctx, query, args...)
}

// QueryRowx executes a query and returns a single sqlx.Row.
func (db *DB) QueryRowx(query string, args ...any) *sqlx.Row {
	return db.QueryRowxContext(context.Background(), query, args...)
}

// GetContext executes a query that is expected to return at most one row
// and scans the result into dest.
func (db *DB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return db.session().GetContext(ctx, dest, query, args...)
}

// Get executes a query that is expected to return at most one row
// and scans the result into dest.
func (db *DB) Get(dest any, query string, args ...any) error {
	return db.GetContext(context.Background(), dest, query, args...)
}

// SelectContext executes a query and scans all results into dest.
func (db *DB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return db.session().SelectContext(ctx, dest, query, args...)
}

// Select executes a query and scans all results into dest.
func (db *DB) Select(dest any, query string, args ...any) error {
	return db.SelectContext(context.Background(), dest, query, args...)
}

// NamedExecContext executes a named query.
func (db *DB) NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error) {
	return db.session().NamedExecContext(ctx, query, arg)
}

// NamedExec executes a named query.
func (db *DB) NamedExec(query string, arg any) (sql.Result, error) {
	return db.NamedExecContext(context.Background(), query, arg)
}

// ExecQuery runs a query and materializes its rows.
func (db *DB) ExecQuery(ctx context.Context, query, name string, binds ...instrument.Param) (*Result, error) {
	return db.session().ExecQuery(ctx, query, name, binds...)
}

// ExecInsert runs an INSERT and returns the driver result.
func (db *DB) ExecInsert(ctx context.Context, query, name string, binds ...instrument.Param) (sql.Result, error) {
	return db.session().ExecInsert(ctx, query, name, binds...)
}

// ExecUpdate runs an UPDATE and returns the number of affected rows.
func (db *DB) ExecUpdate(ctx context.Context, query, name string, binds ...instrument.Param) (int64, error) {
	return db.session().ExecUpdate(ctx, query, name, binds...)
}

// ExecDelete runs a DELETE and returns the number of affected rows.
func (db *DB) ExecDelete(ctx context.Context, query, name string, binds ...instrument.Param) (int64, error) {
	return db.session().ExecDelete(ctx, query, name, binds...)
}

// PreparexContext prepares an instrumented statement on the pool.
func (db *DB) PreparexContext(ctx context.Context, query string) (*Stmt, error) {
	return db.session().PreparexContext(ctx, query)
}

// Preparex prepares an instrumented statement on the pool.
func (db *DB) Preparex(query string) (*Stmt, error) {
	return db.PreparexContext(context.Background(), query)
}

// BeginTxx starts an instrumented transaction. The BEGIN is reported as
// its own event.
func (db *DB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	w := db.cfg.inst.NewWrapper()

	var tx *sqlx.Tx
	err := w.Do(ctx, instrument.Query{SQL: "BEGIN"}, func(ctx context.Context) error {
		var err error
		tx, err = db.DB.BeginTxx(ctx, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	return newTx(ctx, tx, db.DB.DriverName(), w, db.cfg), nil
}

// Beginx starts an instrumented transaction with default options.
func (db *DB) Beginx() (*Tx, error) {
	return db.BeginTxx(context.Background(), nil)
}

// MustBeginTx starts a transaction and panics on error.
func (db *DB) MustBeginTx(ctx context.Context, opts *sql.TxOptions) *Tx {
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		panic(err)
	}
	return tx
}

// MustBegin starts a transaction and panics on error.
func (db *DB) MustBegin() *Tx {
	return db.MustBeginTx(context.Background(), nil)
}

// Unsafe returns a version of DB that silently ignores missing destination fields.
func (db *DB) Unsafe() *DB {
	return &DB{
		DB:  db.DB.Unsafe(),
		cfg: db.cfg,
	}
}
