package sql

import (
	"context"
	"database/sql/driver"

	"github.com/kroma-labs/sqlevent/instrument"
)

// Compile-time interface check.
var _ driver.Tx = (*eventTx)(nil)

// eventTx wraps a driver.Tx with event instrumentation.
// COMMIT and ROLLBACK events are linked to the context the transaction
// was started with.
type eventTx struct {
	tx   driver.Tx
	conn *eventConn
	ctx  context.Context
}

// newEventTx creates a new instrumented transaction.
func newEventTx(ctx context.Context, tx driver.Tx, conn *eventConn) *eventTx {
	return &eventTx{
		tx:   tx,
		conn: conn,
		ctx:  context.WithoutCancel(ctx),
	}
}

// Commit implements driver.Tx.
func (t *eventTx) Commit() error {
	return t.conn.w.Do(t.ctx, instrument.Query{SQL: "COMMIT"}, func(context.Context) error {
		return t.tx.Commit()
	})
}

// Rollback implements driver.Tx.
func (t *eventTx) Rollback() error {
	return t.conn.w.Do(t.ctx, instrument.Query{SQL: "ROLLBACK"}, func(context.Context) error {
		return t.tx.Rollback()
	})
}
