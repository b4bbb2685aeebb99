package sqlx

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/kroma-labs/sqlevent/instrument"
)

// Tx is an instrumented transaction. All query methods come from Conn and
// share the transaction's call depth.
type Tx struct {
	*Conn
	tx *sqlx.Tx

	// ctx is the context the transaction was started with, used to link
	// COMMIT and ROLLBACK events to the same trace.
	ctx context.Context
}

func newTx(ctx context.Context, tx *sqlx.Tx, driverName string, w *instrument.Wrapper, cfg *config) *Tx {
	c := newConn(tx, driverName, cfg)
	c.w = w
	return &Tx{
		Conn: c,
		tx:   tx,
		ctx:  context.WithoutCancel(ctx),
	}
}

// Unwrap returns the underlying *sqlx.Tx. Queries run on it directly are
// not instrumented.
func (tx *Tx) Unwrap() *sqlx.Tx {
	return tx.tx
}

// Commit commits the transaction.
func (tx *Tx) Commit() error {
	return tx.w.Do(tx.ctx, instrument.Query{SQL: "COMMIT"}, func(context.Context) error {
		return tx.tx.Commit()
	})
}

// Rollback aborts the transaction.
func (tx *Tx) Rollback() error {
	return tx.w.Do(tx.ctx, instrument.Query{SQL: "ROLLBACK"}, func(context.Context) error {
		return tx.tx.Rollback()
	})
}
